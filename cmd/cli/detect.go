package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newDetectCmd(opts *rootOptions) *cobra.Command {
	var lookback int

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect recurring payments in stored transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lookback < 0 || lookback > 12 {
				return fmt.Errorf("--lookback must be between 1 and 12")
			}
			ctx, a, err := opts.openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if lookback == 0 {
				lookback = a.Config.Recurring.LookbackMonths
			}
			res, err := a.Detector.Detect(ctx, opts.user(a.Config), lookback)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, d := range res.Items {
				fmt.Fprintf(out, "%-30s %10s  ", d.Item.Name, d.Item.Amount.StringFixed(2))
				color.New(color.FgCyan).Fprintln(out, d.DetectionType)
			}
			color.New(color.Bold).Fprintf(out, "Added %d, skipped %d\n", res.Added, res.Skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&lookback, "lookback", 0, "lookback window in months, 1-12 (defaults to recurring.lookback_months)")
	return cmd
}
