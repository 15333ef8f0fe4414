package agentward

import (
	"context"

	"github.com/agentward/agentward/internal/event"
	"github.com/agentward/agentward/internal/pricing"
)

// Message is one chat turn handed to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelCall describes an intended model invocation.
type ModelCall struct {
	Model    string
	Messages []Message
}

// ModelResult carries the model's answer and usage back through the
// interception layer. Raw holds the provider response untouched.
type ModelResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	Raw              any
}

// ModelFunc is the model-call signature that WrapModel guards.
type ModelFunc func(ctx context.Context, call ModelCall) (*ModelResult, error)

// WrapModel returns a ModelFunc that enforces the call ceiling before
// invoking fn and records usage, cost, and telemetry after it returns.
// Once the ceiling is crossed the run is terminated and every further
// call fails with a *TerminatedError without reaching fn.
func (c *Client) WrapModel(fn ModelFunc) ModelFunc {
	return func(ctx context.Context, call ModelCall) (*ModelResult, error) {
		r := c.ensureRun()
		if !r.Active() {
			snap := r.Snapshot()
			return nil, &TerminatedError{RunID: r.ID, Reason: snap.TerminationReason}
		}

		seq, exceeded := c.guard.IncrementAndCheck(r.ID)
		if exceeded {
			if r.Terminate("max_llm_calls exceeded") {
				snap := r.Snapshot()
				c.emitEvent(event.NewRunTerminated(r.ID, snap.TerminationReason, snap.EndedAt))
				c.emitRun(snap)
				c.log.Warn().Str("run_id", r.ID).Int("attempts", seq).Msg("model call ceiling crossed, run terminated")
			}
			return nil, &TerminatedError{RunID: r.ID, Reason: "max_llm_calls exceeded"}
		}

		result, err := fn(ctx, call)
		if err != nil {
			return nil, err
		}

		cost := pricing.Estimate(call.Model, result.PromptTokens, result.CompletionTokens)
		r.AddCost(cost)
		r.RecordLLMCall()

		c.emitEvent(event.NewLLMCall(
			r.ID, seq, call.Model,
			flattenMessages(call.Messages), result.Content,
			result.PromptTokens, result.CompletionTokens, cost,
		))
		c.emitRun(r.Snapshot())

		return result, nil
	}
}

// flattenMessages joins chat turns into one prompt string for storage.
func flattenMessages(msgs []Message) string {
	var b []byte
	for i, m := range msgs {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, m.Role...)
		b = append(b, ": "...)
		b = append(b, m.Content...)
	}
	return string(b)
}
