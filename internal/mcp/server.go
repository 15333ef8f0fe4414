// Package mcp exposes agentward policy checks and cost estimation as
// MCP tools over stdio, so agent frameworks can dry-run content against
// the active policy before sending it anywhere.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/agentward/agentward/internal/policy"
)

// Config holds MCP server configuration.
type Config struct {
	PolicyPath string
	Logger     zerolog.Logger
}

// Server wraps the MCP SDK server with agentward policy tools.
type Server struct {
	mcpServer *mcpsdk.Server
	engine    *policy.Engine
	reloader  *policy.Reloader
	log       zerolog.Logger
}

// New creates an MCP server with the policy loaded from cfg.PolicyPath.
// An empty path uses the built-in forbidden patterns only.
func New(cfg Config) (*Server, error) {
	pc, err := policy.LoadConfig(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("mcp: load policy: %w", err)
	}

	s := &Server{
		engine: policy.NewEngine(pc, nil),
		log:    cfg.Logger,
	}

	if cfg.PolicyPath != "" {
		s.reloader, err = policy.NewReloader(s.engine, cfg.PolicyPath, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("mcp: watch policy: %w", err)
		}
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "agentward",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport, with the policy file
// watcher running alongside. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.reloader != nil {
		go func() {
			if err := s.reloader.Run(ctx); err != nil {
				s.log.Warn().Err(err).Msg("policy watcher stopped")
			}
		}()
	}
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "agentward_check",
		Description: "Check text against the agentward content policy without sending it anywhere (dry-run). Returns whether it would be flagged and why.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "agentward_estimate",
		Description: "Estimate the USD cost of an LLM call from its model name and token counts.",
	}, s.handleEstimate)
}
