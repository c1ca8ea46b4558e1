package main

import (
	"github.com/spf13/cobra"

	"tanitrust/db"
	"tanitrust/logging"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(true); err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, db.Options{
				MaxConns:        2,
				ConnectAttempts: a.cfg.DBConnectAttempts,
				Logger:          logging.Component(a.log, "db"),
			})
			if err != nil {
				a.log.Error().Err(err).Msg("connect failed")
				return err
			}
			defer pool.Close()

			applied, err := db.Migrate(ctx, pool)
			if err != nil {
				a.log.Error().Err(err).Msg("migrate failed")
				return err
			}
			a.log.Info().Strs("applied", applied).Msg("migrations up to date")
			return nil
		},
	}
}
