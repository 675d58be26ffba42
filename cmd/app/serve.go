package main

import (
	"context"

	"github.com/spf13/cobra"

	applogger "SentiDash/pkg/logger"
)

func serveCmd(ctx context.Context, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and prediction stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			cfg := app.Config()
			app.Logger().Info("starting",
				applogger.String("ledger_backend", cfg.Ledger.Backend),
				applogger.Bool("redis", cfg.Redis.Enabled),
				applogger.Bool("kafka", cfg.Kafka.Enabled),
				applogger.Int("port", cfg.Server.Port),
			)
			return app.Run(ctx)
		},
	}
}
