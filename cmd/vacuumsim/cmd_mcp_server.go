package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/vacuumsim/internal/mcp"
	"github.com/nvandessel/vacuumsim/internal/store"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve vacuum simulations to AI agents over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  vacuum_run       run one agent and report its stats
  vacuum_compare   compare both policies over many trials
  vacuum_history   list saved runs and comparisons

Resources:
  vacuumsim://history/recent   recent comparisons as markdown

Tool arguments left at zero fall back to the configuration. Charts requested
with chart_file are written under ~/.vacuumsim/charts/. Every tool call is
appended to ~/.vacuumsim/audit.jsonl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			noHistory, _ := cmd.Flags().GetBool("no-history")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			globalDir, err := store.GlobalPath()
			if err != nil {
				return err
			}

			serverCfg := &mcp.Config{
				Name:       "vacuumsim",
				Version:    version,
				Simulation: cfg.Simulation(),
				Logger:     newLogger(cmd, cfg),
				AuditDir:   globalDir,
				ChartDir:   filepath.Join(globalDir, "charts"),
			}
			if !noHistory {
				history, err := openHistory(cfg)
				if err != nil {
					return err
				}
				serverCfg.Store = history
			}

			server, err := mcp.NewServer(serverCfg)
			if err != nil {
				if serverCfg.Store != nil {
					serverCfg.Store.Close()
				}
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return server.Run(ctx)
		},
	}

	cmd.Flags().Bool("no-history", false, "Disable saving and the history tool")

	return cmd
}
