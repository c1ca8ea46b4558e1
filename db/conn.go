package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
)

// Options tunes pool construction. Zero values fall back to pgx defaults.
type Options struct {
	MaxConns        int32
	ConnectAttempts int
	Logger          zerolog.Logger
}

// NewPool constructs a pgx connection pool using the provided connection string
// and waits until the database answers a ping. The pool is owned by the caller
// and must be closed on shutdown.
func NewPool(ctx context.Context, connString string, opts Options) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("db: empty connection string")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: create pool: %w", err)
	}

	if err := waitReady(ctx, pool, opts.ConnectAttempts, opts.Logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// waitReady pings the pool with exponential backoff. Only process startup
// retries; request-path store calls never do.
func waitReady(ctx context.Context, pool *pgxpool.Pool, attempts int, log zerolog.Logger) error {
	if attempts <= 0 {
		attempts = 1
	}
	b := &backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		wait := b.Duration()
		log.Warn().Err(err).Int("attempt", i+1).Dur("retry_in", wait).Msg("database not ready")
		select {
		case <-ctx.Done():
			return fmt.Errorf("db: wait ready: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("db: ping after %d attempts: %w", attempts, err)
}
