package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentward/agentward/internal/policy"
	"github.com/agentward/agentward/internal/pricing"
)

// CheckInput defines parameters for the agentward_check tool.
type CheckInput struct {
	Text      string `json:"text" jsonschema:"text to evaluate against the content policy"`
	Direction string `json:"direction,omitempty" jsonschema:"egress (outbound, default) or ingress (inbound)"`
}

// CheckOutput contains the policy verdict.
type CheckOutput struct {
	Flagged bool     `json:"flagged"`
	Source  string   `json:"source"`
	Matches []string `json:"matches,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

// EstimateInput defines parameters for the agentward_estimate tool.
type EstimateInput struct {
	Model            string `json:"model" jsonschema:"model name, e.g. gpt-4o-mini"`
	PromptTokens     int    `json:"prompt_tokens" jsonschema:"prompt token count"`
	CompletionTokens int    `json:"completion_tokens" jsonschema:"completion token count"`
}

// EstimateOutput contains the estimated cost.
type EstimateOutput struct {
	Model   string  `json:"model"`
	CostUSD float64 `json:"cost_usd"`
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	direction := policy.Egress
	switch input.Direction {
	case "", string(policy.Egress):
	case string(policy.Ingress):
		direction = policy.Ingress
	default:
		return nil, CheckOutput{}, fmt.Errorf("unknown direction %q, want egress or ingress", input.Direction)
	}

	v := s.engine.Evaluate(ctx, input.Text, direction)

	out := CheckOutput{
		Flagged: v.Blocked,
		Source:  string(v.Source),
		Matches: v.Matches,
		Reason:  v.Reason,
	}
	if v.Blocked {
		out.Detail = v.Detail()
	}
	return nil, out, nil
}

func (s *Server) handleEstimate(ctx context.Context, req *mcpsdk.CallToolRequest, input EstimateInput) (*mcpsdk.CallToolResult, EstimateOutput, error) {
	if input.Model == "" {
		return nil, EstimateOutput{}, fmt.Errorf("model is required")
	}
	return nil, EstimateOutput{
		Model:   input.Model,
		CostUSD: pricing.Estimate(input.Model, input.PromptTokens, input.CompletionTokens),
	}, nil
}
