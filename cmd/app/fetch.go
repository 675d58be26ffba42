package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func fetchCmd(ctx context.Context, opts *rootOptions) *cobra.Command {
	var thenRun bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download BTC prices and the Fear & Greed Index into the input files",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Acquirer().FetchAll(ctx)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !thenRun {
				return nil
			}
			run, err := app.Pipeline().Run(ctx)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), run)
		},
	}
	cmd.Flags().BoolVar(&thenRun, "run", false, "record a prediction after fetching")
	return cmd
}
