package main

import (
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-core/internal/app"
	"github.com/dvloznov/statement-core/internal/config"
	"github.com/dvloznov/statement-core/internal/logger"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tables of the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := opts.context(cfg)

			st, err := app.OpenStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			appliedBy := "statement-core"
			if u, err := user.Current(); err == nil {
				appliedBy = u.Username
			}

			n, err := app.Migrate(ctx, st, appliedBy)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)
			log.Info().Str("store", cfg.Store.Backend).Int("applied", n).Msg("Migrations complete")

			if cfg.Store.Backend == config.BackendBigQuery {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to %s.%s\n", n, cfg.Store.BQProject, cfg.Store.BQDataset)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", cfg.Store.Backend)
			}
			return nil
		},
	}
}
