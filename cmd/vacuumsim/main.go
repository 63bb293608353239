package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/vacuumsim/internal/config"
	"github.com/nvandessel/vacuumsim/internal/logging"
	"github.com/nvandessel/vacuumsim/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vacuumsim",
		Short: "Vacuum-cleaner agents on a dirty grid",
		Long: `vacuumsim runs vacuum-cleaner agents on a randomly dirty N×N grid.

Two policies are available: a reactive agent that wanders at random, and a
memory-augmented agent that remembers what it has seen and heads for
unexplored cells. Runs are seeded and reproducible.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.vacuumsim/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newCompareCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// loadConfig resolves the effective configuration for a command:
// defaults, the config file, VACUUMSIM_* variables and then --log-level.
func loadConfig(cmd *cobra.Command) (*config.VacuumConfig, error) {
	cfg, err := loadConfigUnvalidated(cmd)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if err := cfg.Set("logging.level", level); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns the operational logger. It always writes to stderr so
// stdout stays clean for reports and JSON.
func newLogger(cmd *cobra.Command, cfg *config.VacuumConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// newDecisionLogger opens ~/.vacuumsim/decisions.jsonl at debug and trace.
// It returns nil at info or when the directory is unavailable.
func newDecisionLogger(cfg *config.VacuumConfig) *logging.DecisionLogger {
	dir, err := store.GlobalPath()
	if err != nil {
		return nil
	}
	return logging.NewDecisionLogger(dir, cfg.Logging.Level)
}

// openHistory opens the SQLite history ledger named by the config.
func openHistory(cfg *config.VacuumConfig) (*store.SQLiteStore, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return s, nil
}

// writeJSON encodes v as a single JSON line.
func writeJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}
