package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depthview/depthview-client/internal/console"
	"github.com/depthview/depthview-client/internal/db"
	"github.com/depthview/depthview-client/internal/history"
)

func newHistoryCommand(cctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past processing jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := cctx.setup()
			if err != nil {
				return err
			}

			database, err := db.New(cfg.DBPath(), logger)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer database.Close()

			records, err := history.NewStore(database.Conn()).List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded yet.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), console.RenderHistory(records))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")

	return cmd
}
