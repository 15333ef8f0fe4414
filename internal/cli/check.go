package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentward/agentward/internal/policy"
)

var (
	checkPolicy    string
	checkDirection string
	checkFormat    string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkPolicy, "policy", "", "Path to policy YAML (optional)")
	checkCmd.Flags().StringVar(&checkDirection, "direction", "egress", "Message direction (egress|ingress)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Evaluate text against the content policy",
	Long: "Runs the keyword and pattern policy over the given text and reports\n" +
		"the verdict. Reads stdin when no argument is given.\n\n" +
		"Exit code 0 when clean, 1 when flagged.\n" +
		"Use in CI or shell pipelines to gate agent output.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	var direction policy.Direction
	switch checkDirection {
	case "egress":
		direction = policy.Egress
	case "ingress":
		direction = policy.Ingress
	default:
		return fmt.Errorf("unknown direction %q, want egress or ingress", checkDirection)
	}

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	cfg, err := policy.LoadConfig(checkPolicy)
	if err != nil {
		return err
	}
	engine := policy.NewEngine(cfg, nil)
	v := engine.Evaluate(cmd.Context(), text, direction)

	switch checkFormat {
	case "json":
		out, _ := json.MarshalIndent(map[string]any{
			"flagged": v.Blocked,
			"source":  string(v.Source),
			"matches": v.Matches,
			"reason":  v.Reason,
		}, "", "  ")
		fmt.Println(string(out))
	default:
		if v.Blocked {
			fmt.Printf("FLAGGED (%s): %s\n", v.Source, v.Reason)
			if len(v.Matches) > 0 {
				fmt.Printf("  matches: %s\n", strings.Join(v.Matches, ", "))
			}
		} else {
			fmt.Println("clean")
		}
	}

	if v.Blocked {
		os.Exit(1)
	}
	return nil
}
