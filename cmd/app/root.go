package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"SentiDash/internal/di"
	"SentiDash/pkg/config"
	"SentiDash/pkg/server"
)

type rootOptions struct {
	configPath string
}

func newRootCmd(ctx context.Context) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "sentidash",
		Short:        "Bitcoin Fear & Greed direction dashboard backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config/config.yaml", "config file path")

	root.AddCommand(serveCmd(ctx, opts))
	root.AddCommand(runCmd(ctx, opts))
	root.AddCommand(fetchCmd(ctx, opts))
	root.AddCommand(ledgerCmd(ctx, opts))
	return root
}

// loadApp reads config and wires the application.
func loadApp(opts *rootOptions) (*server.App, error) {
	cfg, err := config.LoadWithEnv(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
