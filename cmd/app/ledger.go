package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"SentiDash/internal/domain/models"
)

func ledgerCmd(ctx context.Context, opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show recorded predictions resolved against realized prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			rep, err := app.Pipeline().History(ctx, limit)
			if err != nil {
				return fmt.Errorf("ledger: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			return printLedger(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVar(&limit, "limit", 30, "most recent entries to show (0 = all)")
	return cmd
}

func printLedger(w io.Writer, rep models.LedgerReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPREDICTED\tSTORED\tRESOLVED\tACCURACY")
	for _, e := range rep.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\n",
			e.RunDate.Format("2006-01-02"), e.PredictedDirection, e.IsCorrect, e.Resolved, e.Accuracy)
	}
	s := rep.Summary
	fmt.Fprintf(tw, "\ntotal %d\tresolved %d\tcorrect %d\thit rate %.3f\n", s.Total, s.Resolved, s.Correct, s.HitRate)
	return tw.Flush()
}
