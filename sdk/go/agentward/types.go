package agentward

import (
	"fmt"

	"github.com/agentward/agentward/internal/policy"
)

// Direction tells which way a message is travelling.
type Direction = policy.Direction

const (
	// Egress is agent-to-outside traffic.
	Egress = policy.Egress
	// Ingress is outside-to-agent traffic.
	Ingress = policy.Ingress
)

// Verdict is the policy evaluation outcome for one message.
type Verdict = policy.Verdict

// TerminatedError is returned when a run has been hard-stopped and an
// intercepted action is rejected without invoking the wrapped function.
type TerminatedError struct {
	RunID  string
	Reason string
}

func (e *TerminatedError) Error() string {
	return fmt.Sprintf("agentward: run %s terminated: %s", e.RunID, e.Reason)
}

// ViolationError is returned when an outbound message is blocked by
// policy in enforcement mode. The wrapped send is never invoked.
type ViolationError struct {
	RunID   string
	Verdict Verdict
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("agentward: message blocked: %s", e.Verdict.Detail())
}
