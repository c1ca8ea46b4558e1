package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tanitrust/config"
	"tanitrust/logging"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	v   *viper.Viper
	cfg config.Config
	log zerolog.Logger
}

// newRootCmd wires the CLI surface. Persistent flags override the matching
// environment variables through viper.
func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}
	var envFile string

	root := &cobra.Command{
		Use:           "tanitrust-api",
		Short:         "Marketplace sync API",
		Long:          "Mirrors on-chain orders, products and disputes and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			log, err := logging.New(os.Stdout, a.v.GetString(config.KeyLogLevel), a.v.GetString(config.KeyLogFormat))
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "Path to a .env file (missing files are ignored)")
	flags.String("log-level", "info", "Log level: debug|info|warn|error")
	flags.String("log-format", "console", "Log format: console|json")
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	root.AddCommand(newServeCmd(a), newMigrateCmd(a), newTokenCmd(a))
	return root
}

// load validates the configuration for a subcommand. Errors are logged here
// because the root command silences cobra's own printing.
func (a *app) load(requireDB bool) error {
	cfg, err := config.Load(a.v, requireDB)
	if err != nil {
		a.log.Error().Err(err).Msg("invalid configuration")
		return err
	}
	a.cfg = cfg
	return nil
}
