// Package metrics exposes Prometheus collectors for HTTP traffic, dispute
// transitions, and image uploads.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tanitrust/dispute"
)

const namespace = "tanitrust"

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics owns a private registry so tests and multiple servers never collide
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	proposals    prometheus.Counter
	activations  prometheus.Counter
	votes        *prometheus.CounterVec
	resolutions  prometheus.Counter
	uploads      *prometheus.CounterVec
	uploadBytes  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route template, method and status.",
			Buckets:   latencyBuckets,
		}, []string{"route", "method", "status"}),
		proposals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispute_proposals_total",
			Help:      "Accepted settlement proposals.",
		}),
		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispute_voting_activations_total",
			Help:      "Disputes whose community voting opened.",
		}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispute_votes_total",
			Help:      "Accepted community votes by direction.",
		}, []string{"direction"}),
		resolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispute_resolutions_total",
			Help:      "Disputes resolved for the first time.",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_uploads_total",
			Help:      "Successful image uploads, split by whether the pin came from cache.",
		}, []string{"cached"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_upload_bytes_total",
			Help:      "Bytes accepted by the image upload gateway.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration,
		m.proposals,
		m.activations,
		m.votes,
		m.resolutions,
		m.uploads,
		m.uploadBytes,
	)
	return m
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) ProposalAccepted(votingActivated bool) {
	m.proposals.Inc()
	if votingActivated {
		m.activations.Inc()
	}
}

func (m *Metrics) VoteCast(d dispute.Direction) {
	m.votes.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) DisputeResolved() {
	m.resolutions.Inc()
}

func (m *Metrics) Pinned(bytes int, cached bool) {
	m.uploads.WithLabelValues(strconv.FormatBool(cached)).Inc()
	m.uploadBytes.Add(float64(bytes))
}
