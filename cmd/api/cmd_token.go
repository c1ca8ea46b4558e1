package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tanitrust/auth"
)

// newTokenCmd mints a sync token for the presentation backend.
func newTokenCmd(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the sync write endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(false); err != nil {
				return err
			}
			token, err := auth.NewService(a.cfg.SyncTokenSecret).Issue(subject, ttl)
			if err != nil {
				a.log.Error().Err(err).Msg("issue token")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "indexer", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "Token lifetime")
	return cmd
}
