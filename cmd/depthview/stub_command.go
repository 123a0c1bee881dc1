package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/depthview/depthview-client/internal/stub"
)

func newStubCommand(cctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run a local stand-in for the depth service",
		Long: "Run a local HTTP server that accepts uploads, simulates the " +
			"processing stages, and serves placeholder outputs. Useful for " +
			"trying the client without a GPU backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := cctx.setup()
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.StubPort()
			}

			server, err := stub.NewServer(stub.ServerConfig{
				Port:    port,
				DataDir: filepath.Join(cfg.DataDir(), "stub"),
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (defaults to DEPTHVIEW_STUB_PORT)")

	return cmd
}
