package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	wardmcp "github.com/agentward/agentward/internal/mcp"
)

var mcpPolicy string

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpPolicy, "policy", "", "Path to policy YAML (hot-reloaded on change)")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs agentward as an MCP (Model Context Protocol) server over stdio.\nExposes tools: agentward_check, agentward_estimate.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	srv, err := wardmcp.New(wardmcp.Config{
		PolicyPath: mcpPolicy,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "agentward MCP server running on stdio")
	if mcpPolicy != "" {
		fmt.Fprintf(os.Stderr, "Policy: %s (hot-reload enabled)\n", mcpPolicy)
	}
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
