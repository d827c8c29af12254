package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/merchant"
	"github.com/dvloznov/statement-core/internal/pipeline"
	"github.com/dvloznov/statement-core/internal/statement"
)

func newIdentifyCmd(opts *rootOptions) *cobra.Command {
	var fileType string

	cmd := &cobra.Command{
		Use:   "identify <file>",
		Short: "Identify the bank and account type of a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := opts.context(cfg)

			req, err := readStatement(ctx, args[0], fileType)
			if err != nil {
				return err
			}

			state := &pipeline.PipelineState{Request: req}
			p := pipeline.NewPipeline(
				&pipeline.DetectFormatStep{},
				&pipeline.LoadStep{Text: statement.PDFToText{}},
				&pipeline.IdentifyStep{},
			)
			if err := p.Execute(ctx, state); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Format:  %s\n", state.Format)
			if state.Format == statement.FormatImage {
				fmt.Fprintln(out, "Bank:    identified by the vision model during ingestion")
				return nil
			}
			bank := color.New(color.FgGreen)
			if state.Bank == domain.UnknownBank {
				bank = color.New(color.FgYellow)
			}
			fmt.Fprint(out, "Bank:    ")
			bank.Fprintln(out, state.Bank.DisplayName())
			fmt.Fprintf(out, "Account: %s\n", state.AccountType)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileType, "type", "", "MIME type of the file (detected from the extension when empty)")
	return cmd
}

func newMatchCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "match <description> <merchant>",
		Short: "Score how likely two descriptions name the same merchant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b := args[0], args[1]
			score := merchant.Similarity(a, b)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %q -> %q\n", "normalized", merchant.NormalizeName(a), merchant.NormalizeName(b))
			fmt.Fprintf(out, "%-12s %q -> %q\n", "core", merchant.ExtractCore(a), merchant.ExtractCore(b))
			fmt.Fprintf(out, "%-12s %.2f  ", "score", score)
			if merchant.IsFuzzyMatch(a, b, threshold) {
				color.New(color.FgGreen).Fprintln(out, "match")
			} else {
				color.New(color.FgRed).Fprintln(out, "no match")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", merchant.DefaultThreshold, "minimum score for a match")
	return cmd
}

func newDisplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "display <description>",
		Short: "Show the display name, core, reference and category for a raw description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %s\n", "display", merchant.SmartDisplayName(desc))
			fmt.Fprintf(out, "%-10s %s\n", "core", merchant.ExtractCore(desc))
			if ref := merchant.ExtractReference(desc); ref != "" {
				fmt.Fprintf(out, "%-10s %s\n", "reference", ref)
			}
			if cat := merchant.CategoryFor(desc); cat != "" {
				fmt.Fprintf(out, "%-10s %s\n", "category", cat)
			}
			return nil
		},
	}
}
