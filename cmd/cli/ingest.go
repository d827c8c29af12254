package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-core/internal/archive"
	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/pipeline"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		fileType string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <file | gs://bucket/object>",
		Short: "Extract a statement and store its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := opts.openApp(dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := readStatement(ctx, args[0], fileType)
			if err != nil {
				return err
			}

			userID := opts.user(a.Config)
			run := a.Ingestor.Ingest
			if dryRun {
				run = a.Ingestor.Preview
			}
			state, err := run(ctx, userID, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printStatement(out, state.Statement)
			if dryRun {
				color.New(color.FgYellow).Fprintln(out, "Dry run: nothing was stored.")
				return nil
			}
			printPersistResult(out, state)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileType, "type", "", "MIME type of the file (detected from the extension when empty)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "extract and print without storing or archiving")
	return cmd
}

// readStatement reads a local file or a gs:// object.
func readStatement(ctx context.Context, src, fileType string) (pipeline.Request, error) {
	if strings.HasPrefix(src, "gs://") {
		bucket, object, err := archive.ParseGCSURI(src)
		if err != nil {
			return pipeline.Request{}, err
		}
		gcs, err := archive.NewGCSArchiver(ctx, bucket)
		if err != nil {
			return pipeline.Request{}, err
		}
		defer gcs.Close()

		data, err := gcs.Fetch(ctx, src)
		if err != nil {
			return pipeline.Request{}, err
		}
		return pipeline.Request{Content: data, FileName: path.Base(object), FileType: fileType}, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("reading statement: %w", err)
	}
	return pipeline.Request{Content: data, FileName: filepath.Base(src), FileType: fileType}, nil
}

func printStatement(w io.Writer, st *domain.Statement) {
	header := color.New(color.Bold)
	debit := color.New(color.FgRed)
	credit := color.New(color.FgGreen)

	acct := st.Account
	header.Fprintf(w, "%s %s account %s\n", acct.Bank.DisplayName(), acct.AccountType, acct.AccountNumber)
	if acct.AccountName != "" {
		fmt.Fprintf(w, "Holder:  %s\n", acct.AccountName)
	}
	fmt.Fprintf(w, "Balance: %s %s\n", domain.Currency, acct.CurrentBalance.StringFixed(2))
	from, to := st.DateRange()
	fmt.Fprintf(w, "Period:  %s to %s (%d transactions)\n\n", from, to, len(st.Transactions))

	for _, tx := range st.Transactions {
		paint := credit
		if tx.Amount.IsNegative() {
			paint = debit
		}
		fmt.Fprintf(w, "%s  %-40s ", tx.Date, truncate(tx.MerchantName, 40))
		paint.Fprintf(w, "%12s", tx.Amount.StringFixed(2))
		if tx.Category != "" {
			fmt.Fprintf(w, "  %s", tx.Category)
		}
		fmt.Fprintln(w)
	}
}

func printPersistResult(w io.Writer, state *pipeline.PipelineState) {
	fmt.Fprintln(w)
	color.New(color.FgGreen).Fprintf(w, "Inserted %d", state.Result.Inserted)
	fmt.Fprintf(w, ", skipped %d duplicates", state.Result.Skipped)
	if state.Result.Failed > 0 {
		color.New(color.FgRed).Fprintf(w, ", %d failed", state.Result.Failed)
	}
	fmt.Fprintln(w)
	if state.ArchiveURI != "" {
		fmt.Fprintf(w, "Archived to %s\n", state.ArchiveURI)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
