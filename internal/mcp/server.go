// Package mcp provides an MCP (Model Context Protocol) server that exposes
// experiment validation, results, and policy classification as tools.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/compsig/internal/constants"
	"github.com/nvandessel/compsig/internal/logging"
	"github.com/nvandessel/compsig/internal/ratelimit"
	"github.com/nvandessel/compsig/internal/store"
)

// Server wraps the MCP SDK server over an output root.
type Server struct {
	server    *sdk.Server
	index     *store.Index
	artifacts *store.Artifacts
	root      string
	threshold float64
	trace     *logging.TraceLogger
	limiters  ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name      string  // Server name (e.g., "compsig")
	Version   string  // Server version
	Root      string  // Output root holding condition directories and the index
	Threshold float64 // Default classifier commit threshold
	Trace     *logging.TraceLogger
}

// NewServer creates a new MCP server with compsig tools.
func NewServer(cfg *Config) (*Server, error) {
	index, err := store.OpenIndex(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open results index: %w", err)
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = constants.DefaultCommitThreshold
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:    mcpServer,
		index:     index,
		artifacts: store.NewArtifacts(cfg.Root),
		root:      cfg.Root,
		threshold: threshold,
		trace:     cfg.Trace,
		limiters:  ratelimit.NewToolLimiters(),
	}
	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.index.Close()
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	return s.index.Close()
}
