package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/depthview/depthview-client/internal/config"
	"github.com/depthview/depthview-client/internal/logging"
)

var Version = "0.1.0"

func newRootCommand() *cobra.Command {
	var serverFlag string

	ctx := newCommandContext(&serverFlag)

	rootCmd := &cobra.Command{
		Use:           "depthview",
		Short:         "Client for the remote video depth extraction service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Depth service base URL (overrides DEPTHVIEW_SERVER_URL)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newStubCommand(ctx))

	return rootCmd
}

type commandContext struct {
	serverFlag *string
}

func newCommandContext(serverFlag *string) *commandContext {
	_ = godotenv.Load()
	return &commandContext{serverFlag: serverFlag}
}

func (c *commandContext) setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.DownloadsDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create downloads dir: %w", err)
	}

	return cfg, logging.NewLogger(os.Stderr, cfg.LogLevel()), nil
}

func (c *commandContext) serverURL(cfg config.Config) string {
	if c.serverFlag != nil && *c.serverFlag != "" {
		return *c.serverFlag
	}
	return cfg.ServerURL()
}
