package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags "-X .../internal/cli.version=... -X .../internal/cli.commit=...".
var (
	version = "0.1.0"
	commit  = "dev"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentward %s (%s, %s)\n", version, commit, runtime.Version())
	},
}
