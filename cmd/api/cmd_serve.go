package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"tanitrust/auth"
	"tanitrust/config"
	"tanitrust/db"
	"tanitrust/dispute"
	"tanitrust/logging"
	"tanitrust/metrics"
	"tanitrust/order"
	"tanitrust/pinning"
	"tanitrust/product"
)

const (
	uploadBurst   = 5
	uploadClients = 10000
)

func newServeCmd(a *app) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(true); err != nil {
				return err
			}
			if err := a.serve(cmd, migrate); err != nil {
				a.log.Error().Err(err).Msg("serve failed")
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringP("addr", "a", ":8080", "HTTP listen address")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending migrations before serving")
	_ = a.v.BindPFlag(config.KeyHTTPAddr, cmd.Flags().Lookup("addr"))
	return cmd
}

func (a *app) serve(cmd *cobra.Command, migrate bool) error {
	ctx := cmd.Context()
	cfg := a.cfg

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.Options{
		MaxConns:        cfg.DBMaxConns,
		ConnectAttempts: cfg.DBConnectAttempts,
		Logger:          logging.Component(a.log, "db"),
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		a.log.Info().Strs("applied", applied).Msg("migrations up to date")
	}

	m := metrics.New()

	disputes := dispute.NewService(pool, nil,
		dispute.WithLogger(logging.Component(a.log, "dispute")),
		dispute.WithObserver(m),
	)

	gateway, err := pinning.NewGateway(pinning.Config{
		JWT:       cfg.PinataJWT,
		Gateway:   cfg.PinataGateway,
		MaxBytes:  cfg.UploadMaxBytes,
		CacheSize: cfg.UploadCacheSize,
	}, pinning.NewClient(cfg.PinataAPIURL, cfg.PinataJWT, &http.Client{Timeout: 60 * time.Second}),
		m, logging.Component(a.log, "pinning"))
	if err != nil {
		return err
	}
	if cfg.PinataJWT == "" {
		a.log.Warn().Msg("PINATA_JWT not set, image uploads will fail")
	}

	limiter, err := newClientLimiter(cfg.UploadRatePerMin, uploadBurst, uploadClients)
	if err != nil {
		return fmt.Errorf("api: upload limiter: %w", err)
	}

	tokens := auth.NewService(cfg.SyncTokenSecret)
	if !tokens.Enabled() {
		a.log.Warn().Msg("SYNC_TOKEN_SECRET not set, write endpoints are unauthenticated")
	}

	srv := &Server{
		disputes: disputes,
		orders:   order.NewService(order.NewRepository(pool)),
		products: product.NewService(product.NewRepository(pool)),
		uploads:  gateway,
		tokens:   tokens,
		db:       pool,
		metrics:  m,
		limiter:  limiter,
		log:      logging.Component(a.log, "http"),
	}
	return srv.Run(ctx, cfg.HTTPAddr, cfg.ShutdownTimeout)
}
