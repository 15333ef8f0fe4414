package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentward/agentward/internal/collector"
)

var (
	runsServer  string
	runsAPIKey  string
	runsProject string
	runsLimit   int
	runsFormat  string
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsServer, "server", "http://localhost:8000", "Collector base URL")
	runsCmd.Flags().StringVar(&runsAPIKey, "api-key", "", "Collector API key")
	runsCmd.Flags().StringVar(&runsProject, "project", "", "Filter by project")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 0, "Maximum runs to list")
	runsCmd.Flags().StringVarP(&runsFormat, "format", "f", "text", "Output format (text|json)")
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs from the collector",
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	endpoint := runsServer + "/v1/runs"
	q := url.Values{}
	if runsProject != "" {
		q.Set("project", runsProject)
	}
	if runsLimit > 0 {
		q.Set("limit", strconv.Itoa(runsLimit))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if runsAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+runsAPIKey)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("collector unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("collector returned %d: %s", resp.StatusCode, body)
	}

	var runs []collector.RunSummary
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if runsFormat == "json" {
		out, _ := json.MarshalIndent(runs, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	for _, r := range runs {
		started := time.UnixMilli(r.StartedAt).Format(time.RFC3339)
		fmt.Printf("%s  %-10s  %-10s  $%.4f  %s\n", r.ID, r.Project, r.Status, r.TotalCostUSD, started)
		if r.TerminationReason != "" {
			fmt.Printf("  terminated: %s\n", r.TerminationReason)
		}
	}
	return nil
}
