package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func runCmd(ctx context.Context, opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Train on the current inputs and record today's prediction",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if dryRun {
				pred, err := app.Pipeline().LatestPrediction(ctx)
				if err != nil {
					return fmt.Errorf("predict: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), pred)
			}
			res, err := app.Pipeline().Run(ctx)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "predict without writing to the ledger")
	return cmd
}
