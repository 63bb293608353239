// Package mcp provides an MCP (Model Context Protocol) server that lets
// agents run vacuum simulations and read the run history.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/vacuumsim/internal/logging"
	"github.com/nvandessel/vacuumsim/internal/simulation"
	"github.com/nvandessel/vacuumsim/internal/store"
)

const (
	toolRun     = "vacuum_run"
	toolCompare = "vacuum_compare"
	toolHistory = "vacuum_history"

	historyResourceURI = "vacuumsim://history/recent"
)

// Server wraps the MCP SDK server with the simulation tools.
type Server struct {
	server       *sdk.Server
	store        store.ResultStore
	sim          simulation.Config
	logger       *slog.Logger
	toolLimiters toolLimiters
	auditLogger  *AuditLogger
	chartDir     string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "vacuumsim")
	Version string // Server version

	// Simulation supplies defaults for every tool argument left unset.
	Simulation simulation.Config

	// Store is the history ledger. The server closes it. Nil disables
	// saving and history.
	Store store.ResultStore

	// Logger receives operational logs. Defaults to a discarding logger.
	Logger *slog.Logger

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	// ChartDir confines chart_file arguments. Empty disables charts.
	ChartDir string
}

// NewServer creates an MCP server with the vacuum tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if err := cfg.Simulation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation defaults: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{})

	s := &Server{
		server:       mcpServer,
		store:        cfg.Store,
		sim:          cfg.Simulation,
		logger:       logger,
		toolLimiters: newToolLimiters(),
		chartDir:     cfg.ChartDir,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server started", "tools", []string{toolRun, toolCompare, toolHistory})
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the store and the audit log.
func (s *Server) Close() error {
	var firstErr error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			firstErr = err
		}
		s.store = nil
	}
	if err := s.auditLogger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
