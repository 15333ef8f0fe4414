// Package run owns the lifecycle of one tracked execution context: its
// identity, status state machine, and aggregate counters. The manager is
// the single point of truth for whether a run may still proceed.
package run

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the run state. Completed and terminated are terminal: no
// transition ever leaves them.
type Status string

const (
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusTerminated Status = "terminated"
)

// Run is one execution context for an agent workflow.
type Run struct {
	ID        string
	Project   string
	StartedAt int64 // epoch ms

	mu                sync.Mutex
	status            Status
	endedAt           int64
	terminationReason string
	totalCostUSD      float64
	llmCalls          int
}

// New creates a running Run with a generated id.
func New(project string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Project:   project,
		StartedAt: time.Now().UnixMilli(),
		status:    StatusRunning,
	}
}

// Status returns the current status.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Active reports whether the run may still admit new actions.
func (r *Run) Active() bool {
	return r.Status() == StatusRunning
}

// Terminate moves the run to terminated. Idempotent: returns true only
// on the call that performed the transition, so the caller emits exactly
// one run_terminated event.
func (r *Run) Terminate(reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusRunning {
		return false
	}
	r.status = StatusTerminated
	r.terminationReason = reason
	r.endedAt = time.Now().UnixMilli()
	return true
}

// Complete moves the run to completed. Idempotent like Terminate.
func (r *Run) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusRunning {
		return false
	}
	r.status = StatusCompleted
	r.endedAt = time.Now().UnixMilli()
	return true
}

// AddCost accumulates a per-call cost into the running total. Safe for
// concurrent calls; accumulation is a serialized add, never a
// read-modify-write race.
func (r *Run) AddCost(usd float64) {
	r.mu.Lock()
	r.totalCostUSD += usd
	r.mu.Unlock()
}

// RecordLLMCall bumps the model-call tally kept on the run attributes.
func (r *Run) RecordLLMCall() {
	r.mu.Lock()
	r.llmCalls++
	r.mu.Unlock()
}

// Snapshot is a consistent picture of the run for telemetry upserts.
type Snapshot struct {
	ID                string  `json:"id"`
	Project           string  `json:"project"`
	StartedAt         int64   `json:"started_at"`
	EndedAt           int64   `json:"ended_at,omitempty"`
	Status            Status  `json:"status"`
	TerminationReason string  `json:"termination_reason,omitempty"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
	LLMCalls          int     `json:"llm_calls"`
}

// Snapshot returns the run attributes at one instant.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:                r.ID,
		Project:           r.Project,
		StartedAt:         r.StartedAt,
		EndedAt:           r.endedAt,
		Status:            r.status,
		TerminationReason: r.terminationReason,
		TotalCostUSD:      r.totalCostUSD,
		LLMCalls:          r.llmCalls,
	}
}
