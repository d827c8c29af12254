package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-core/internal/app"
	"github.com/dvloznov/statement-core/internal/config"
	"github.com/dvloznov/statement-core/internal/logger"
)

type rootOptions struct {
	configPath string
	userID     string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "statement-core",
		Short: "Ingest South African bank statements and detect recurring payments",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", "", "user ID (defaults to server.default_user)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(
		newIngestCmd(opts),
		newArchiveCmd(opts),
		newDetectCmd(opts),
		newIdentifyCmd(opts),
		newMatchCmd(),
		newDisplayCmd(),
		newMigrateCmd(opts),
		newInitCmd(opts),
	)
	return rootCmd
}

// context returns a context carrying a logger built from cfg.
func (o *rootOptions) context(cfg *config.Config) context.Context {
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	if o.verbose {
		log = log.Level(zerolog.DebugLevel)
	}
	return logger.WithContext(context.Background(), log)
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

func (o *rootOptions) user(cfg *config.Config) string {
	if o.userID != "" {
		return o.userID
	}
	return cfg.Server.DefaultUser
}

// openApp loads the configuration, optionally forcing the in-memory store,
// and wires the application over it.
func (o *rootOptions) openApp(inMemory bool) (context.Context, *app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if inMemory {
		cfg.Store.Backend = config.BackendMemory
		cfg.Archive.Enabled = false
	}
	ctx := o.context(cfg)
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}
