// Package event defines the trace event taxonomy emitted by the
// interception layer. Events are immutable facts: once constructed they
// are handed to the emitter and never mutated.
package event

import "time"

// Type identifies what kind of occurrence an event records.
type Type string

const (
	RunStarted         Type = "run_started"
	LLMCall            Type = "llm_call"
	A2AMessageSend     Type = "a2a_message_send"
	A2AMessageReceive  Type = "a2a_message_receive"
	GuardrailViolation Type = "a2a_guardrail_violation"
	RunTerminated      Type = "run_terminated"
	RunCompleted       Type = "run_completed"
)

// A2A reports whether events of this type belong to the A2A ingest
// endpoint rather than the run-lifecycle/LLM one.
func (t Type) A2A() bool {
	switch t {
	case A2AMessageSend, A2AMessageReceive, GuardrailViolation:
		return true
	}
	return false
}

// Truncation caps for stored payloads.
const (
	MaxPromptBytes  = 8000
	MaxPayloadBytes = 500
	MaxReasonBytes  = 180
)

// Event is one trace record. The payload is flat: lifecycle, LLM, and
// A2A fields coexist and serialize with omitempty so each type carries
// only what it needs on the wire.
type Event struct {
	Type      Type   `json:"type"`
	RunID     string `json:"run_id"`
	CreatedAt int64  `json:"created_at"` // epoch milliseconds

	// Lifecycle fields.
	Project      string `json:"project,omitempty"`
	StartedAt    int64  `json:"started_at,omitempty"`
	EndedAt      int64  `json:"ended_at,omitempty"`
	TerminatedAt int64  `json:"terminated_at,omitempty"`
	Reason       string `json:"reason,omitempty"`

	// LLM call fields.
	Seq              int     `json:"seq,omitempty"`
	Model            string  `json:"model,omitempty"`
	Prompt           string  `json:"prompt,omitempty"`
	Response         string  `json:"response,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`

	// A2A fields.
	Method       string  `json:"method,omitempty"`
	URL          string  `json:"url,omitempty"`
	ServiceName  string  `json:"service_name,omitempty"`
	RequestData  string  `json:"request_data,omitempty"`
	ResponseData string  `json:"response_data,omitempty"`
	StatusCode   int     `json:"status_code,omitempty"`
	DurationMS   float64 `json:"duration_ms,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// NowMS returns the current time in epoch milliseconds.
func NowMS() int64 {
	return time.Now().UnixMilli()
}

// Truncate caps s at n bytes, marking the cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[truncated]"
}

// NewRunStarted records the creation of a run.
func NewRunStarted(runID, project string, startedAt int64) Event {
	return Event{
		Type:      RunStarted,
		RunID:     runID,
		Project:   project,
		StartedAt: startedAt,
		CreatedAt: NowMS(),
	}
}

// NewRunTerminated records a hard stop with its reason.
func NewRunTerminated(runID, reason string, terminatedAt int64) Event {
	return Event{
		Type:         RunTerminated,
		RunID:        runID,
		Reason:       reason,
		TerminatedAt: terminatedAt,
		CreatedAt:    NowMS(),
	}
}

// NewRunCompleted records a normal end of run.
func NewRunCompleted(runID string, endedAt int64) Event {
	return Event{
		Type:      RunCompleted,
		RunID:     runID,
		EndedAt:   endedAt,
		CreatedAt: NowMS(),
	}
}

// NewLLMCall records one completed model call with usage and cost.
func NewLLMCall(runID string, seq int, model, prompt, response string, promptTokens, completionTokens int, costUSD float64) Event {
	return Event{
		Type:             LLMCall,
		RunID:            runID,
		Seq:              seq,
		Model:            model,
		Prompt:           Truncate(prompt, MaxPromptBytes),
		Response:         Truncate(response, MaxPromptBytes),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		CostUSD:          costUSD,
		CreatedAt:        NowMS(),
	}
}

// A2AInfo carries the transport detail shared by A2A event constructors.
type A2AInfo struct {
	Method      string
	URL         string
	ServiceName string
	Payload     string
	StatusCode  int
	DurationMS  float64
	Error       string
}

// NewA2A records an A2A send or receive.
func NewA2A(t Type, runID string, info A2AInfo) Event {
	return Event{
		Type:        t,
		RunID:       runID,
		Method:      info.Method,
		URL:         info.URL,
		ServiceName: info.ServiceName,
		RequestData: Truncate(info.Payload, MaxPayloadBytes),
		StatusCode:  info.StatusCode,
		DurationMS:  info.DurationMS,
		Error:       info.Error,
		CreatedAt:   NowMS(),
	}
}

// NewViolation records a policy block. The verdict detail travels in the
// error field as label:reason:matches, capped for storage.
func NewViolation(runID string, info A2AInfo, detail string) Event {
	ev := NewA2A(GuardrailViolation, runID, info)
	ev.ServiceName = "guardrail"
	ev.Error = Truncate(detail, MaxReasonBytes)
	return ev
}
