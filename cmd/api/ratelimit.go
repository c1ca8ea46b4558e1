package main

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// clientLimiter hands each client IP its own token bucket. Buckets for the
// least recently seen clients are evicted once the table is full.
type clientLimiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

// newClientLimiter returns nil when perMinute is not positive, which disables limiting.
func newClientLimiter(perMinute, burst, clients int) (*clientLimiter, error) {
	if perMinute <= 0 {
		return nil, nil
	}
	cache, err := lru.New[string, *rate.Limiter](clients)
	if err != nil {
		return nil, err
	}
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		buckets: cache,
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
	}, nil
}

func (l *clientLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(key, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
