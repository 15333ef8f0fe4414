// Package cli implements the agentward command line: the telemetry
// collector, policy dry-run checks, and the MCP stdio server.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentward",
	Short: "Runtime guardrails and observability for autonomous agents",
	Long:  "Intercepts model calls and agent-to-agent messages, evaluates content policy,\nenforces per-run call ceilings, and collects telemetry.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
