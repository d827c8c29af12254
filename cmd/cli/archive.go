package main

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-core/internal/app"
	"github.com/dvloznov/statement-core/internal/archive"
	"github.com/dvloznov/statement-core/internal/logger"
)

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	var fileType string

	cmd := &cobra.Command{
		Use:   "archive <file>",
		Short: "Upload a statement to the configured archive bucket without ingesting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Archive.Enabled {
				return errors.New("archiving is disabled (set archive.enabled in the configuration)")
			}
			ctx := opts.context(cfg)

			a, err := app.OpenArchiver(ctx, cfg.Archive)
			if err != nil {
				return err
			}
			if c, ok := a.(interface{ Close() error }); ok {
				defer c.Close()
			}

			req, err := readStatement(ctx, args[0], fileType)
			if err != nil {
				return err
			}
			if req.FileType == "" {
				req.FileType = mime.TypeByExtension(filepath.Ext(req.FileName))
			}

			key := archive.ObjectKey(cfg.Archive.Prefix, opts.user(cfg), req.FileName, uuid.New().String(), time.Now())
			log := logger.FromContext(ctx)
			log.Info().
				Str("backend", cfg.Archive.Backend).
				Str("key", key).
				Msg("Uploading statement to archive")

			uri, err := a.Archive(ctx, key, req.FileType, req.Content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %s to %s\n", args[0], uri)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileType, "type", "", "MIME type of the file (detected from the extension when empty)")
	return cmd
}
