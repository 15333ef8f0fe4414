// Package judge implements the semantic policy judge: an
// OpenAI-compatible chat model asked to classify one agent message.
// Judge availability is best-effort; callers treat any error as a skip,
// never as a block.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentward/agentward/internal/policy"
)

// DefaultModel is used when no judge model is configured.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are a content moderation system. Respond only with valid JSON."

// reviewResponse is the JSON shape the judge model must return.
type reviewResponse struct {
	HasViolation  bool    `json:"has_violation"`
	ViolationType string  `json:"violation_type"`
	Severity      string  `json:"severity"`
	Explanation   string  `json:"explanation"`
	Confidence    float64 `json:"confidence"`
}

// completionAPI is the slice of the OpenAI client the judge needs.
// Narrowed for testability.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Judge reviews messages with a chat model. Implements policy.Judge.
type Judge struct {
	api   completionAPI
	model string
}

// New creates a Judge talking to the OpenAI API with the given key.
// baseURL overrides the endpoint for OpenAI-compatible servers; empty
// means the default API.
func New(apiKey, baseURL, model string) *Judge {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return newWithAPI(openai.NewClientWithConfig(cfg), model)
}

func newWithAPI(api completionAPI, model string) *Judge {
	if model == "" {
		model = DefaultModel
	}
	return &Judge{api: api, model: model}
}

// Review asks the model whether the message violates policy. Errors
// mean the judge is unavailable, not that the message is clean or dirty.
func (j *Judge) Review(ctx context.Context, text string, direction policy.Direction) (policy.Finding, error) {
	prompt := fmt.Sprintf(
		"Analyze this agent message for policy violations and respond with JSON only.\n\n"+
			"DIRECTION: %s\nMESSAGE: %s\n\n"+
			`Fields: {"has_violation": bool, "violation_type": str|null, "severity": "low|medium|high|critical"|null, "explanation": str, "confidence": number}`,
		direction, text,
	)

	resp, err := j.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   250,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return policy.Finding{}, fmt.Errorf("judge: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return policy.Finding{}, fmt.Errorf("judge: empty response")
	}

	var rr reviewResponse
	raw := cleanJSON(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &rr); err != nil {
		return policy.Finding{}, fmt.Errorf("judge: malformed response: %w", err)
	}

	f := policy.Finding{
		Violation:   rr.HasViolation,
		Type:        rr.ViolationType,
		Severity:    rr.Severity,
		Explanation: rr.Explanation,
		Confidence:  rr.Confidence,
	}
	if f.Violation {
		if f.Type == "" {
			f.Type = "llm_violation"
		}
		if f.Severity == "" {
			f.Severity = "medium"
		}
	}
	return f, nil
}

// cleanJSON strips markdown fences some models wrap around JSON output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
