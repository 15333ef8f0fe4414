// Package agentward provides in-process guardrails and observability
// for Go agent frameworks. It wraps model-call and agent-to-agent send
// functions, evaluates outbound and inbound content against a keyword
// and semantic policy, enforces a hard ceiling on model calls per run,
// and ships telemetry to a collector on a best-effort basis.
//
// Usage:
//
//	aw, err := agentward.New(
//	    agentward.WithProject("support-bot"),
//	    agentward.WithMaxLLMCalls(100),
//	    agentward.WithServerURL("http://localhost:8000"),
//	)
//	guarded := aw.WrapModel(callModel)
//	result, err := guarded(ctx, agentward.ModelCall{Model: "gpt-4o-mini", Messages: msgs})
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/agentward/agentward/sdk/go/agentward.
package agentward
