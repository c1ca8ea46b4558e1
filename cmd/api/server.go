package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"tanitrust/auth"
	"tanitrust/dispute"
	"tanitrust/metrics"
	"tanitrust/order"
	"tanitrust/pinning"
	"tanitrust/product"
)

type disputeService interface {
	Create(ctx context.Context, p dispute.CreateParams) (dispute.Record, error)
	Propose(ctx context.Context, p dispute.ProposeParams) (dispute.ProposalResult, error)
	Vote(ctx context.Context, p dispute.VoteParams) (dispute.VoteResult, error)
	Resolve(ctx context.Context, disputeID, orderID string) (dispute.ResolveResult, error)
	Get(ctx context.Context, id string) (dispute.Record, error)
	VotingStatus(ctx context.Context, id string) (dispute.VotingStatus, error)
	History(ctx context.Context, id string) ([]dispute.Event, error)
}

type orderService interface {
	Sync(ctx context.Context, p order.SyncParams) (order.Record, error)
	Get(ctx context.Context, id string) (order.Record, error)
	List(ctx context.Context, f order.Filter) ([]order.Listing, error)
}

type productService interface {
	Sync(ctx context.Context, p product.SyncParams) (product.Record, error)
	Get(ctx context.Context, id string) (product.Record, error)
	Delete(ctx context.Context, id string) (product.Record, error)
	List(ctx context.Context, p product.ListParams) (product.Page, error)
}

type uploadService interface {
	Upload(ctx context.Context, f pinning.File) (pinning.Result, error)
	MaxBytes() int64
}

type tokenVerifier interface {
	Enabled() bool
	Verify(token string) (auth.Principal, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP routes to the domain services.
type Server struct {
	disputes disputeService
	orders   orderService
	products productService
	uploads  uploadService
	tokens   tokenVerifier
	db       pinger
	metrics  *metrics.Metrics
	limiter  *clientLimiter
	log      zerolog.Logger
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestID, s.withAccessLog)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/disputes/vote", s.handleVotingStatus).Methods(http.MethodGet)
	api.HandleFunc("/disputes/{id}", s.handleGetDispute).Methods(http.MethodGet)
	api.HandleFunc("/disputes/{id}/history", s.handleDisputeHistory).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/products", s.handleListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.handleGetProduct).Methods(http.MethodGet)

	writes := api.NewRoute().Subrouter()
	writes.Use(s.requireSyncToken)
	writes.HandleFunc("/disputes/create", s.handleCreateDispute).Methods(http.MethodPost)
	writes.HandleFunc("/disputes/update", s.handleProposeDispute).Methods(http.MethodPost)
	writes.HandleFunc("/disputes/resolve", s.handleResolveDispute).Methods(http.MethodPost)
	writes.HandleFunc("/disputes/vote", s.handleVote).Methods(http.MethodPost)
	writes.HandleFunc("/orders/sync", s.handleSyncOrder).Methods(http.MethodPost)
	writes.HandleFunc("/products/sync", s.handleSyncProduct).Methods(http.MethodPost)
	writes.HandleFunc("/products/upload-ipfs", s.withUploadLimit(s.handleUpload)).Methods(http.MethodPost)
	writes.HandleFunc("/products/{id}", s.handleDeleteProduct).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Dur("timeout", shutdownTimeout).Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
