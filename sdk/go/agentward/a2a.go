package agentward

import (
	"context"
	"fmt"
	"time"

	"github.com/agentward/agentward/internal/event"
)

// OutboundMessage is one agent-to-agent send.
type OutboundMessage struct {
	// Message is the text evaluated against policy.
	Message string
	// URL is the peer endpoint, recorded on telemetry.
	URL string
	// ServiceName labels the peer, recorded on telemetry.
	ServiceName string
}

// SendResult carries the peer's reply back through the interception
// layer.
type SendResult struct {
	StatusCode int
	Body       string
}

// SendFunc is the agent-to-agent send signature that WrapSend guards.
type SendFunc func(ctx context.Context, msg OutboundMessage) (*SendResult, error)

// WrapSend returns a SendFunc that evaluates outbound content against
// policy before invoking fn. Flagged messages always produce a
// violation event; in enforcement mode they additionally abort with a
// *ViolationError and fn is never invoked.
func (c *Client) WrapSend(fn SendFunc) SendFunc {
	return func(ctx context.Context, msg OutboundMessage) (*SendResult, error) {
		r := c.ensureRun()
		if !r.Active() {
			snap := r.Snapshot()
			return nil, &TerminatedError{RunID: r.ID, Reason: snap.TerminationReason}
		}

		v := c.engine.Evaluate(ctx, msg.Message, Egress)
		if v.Blocked {
			info := event.A2AInfo{
				Method:      "POST",
				URL:         msg.URL,
				ServiceName: msg.ServiceName,
				Payload:     msg.Message,
			}
			c.emitEvent(event.NewViolation(r.ID, info, v.Detail()))
			c.log.Warn().
				Str("run_id", r.ID).
				Str("source", string(v.Source)).
				Str("reason", v.Reason).
				Msg("outbound message flagged")

			if c.engine.Config().BlockOnViolation {
				return nil, &ViolationError{RunID: r.ID, Verdict: v}
			}
		}

		start := time.Now()
		result, err := fn(ctx, msg)
		elapsed := float64(time.Since(start).Microseconds()) / 1000

		info := event.A2AInfo{
			Method:      "POST",
			URL:         msg.URL,
			ServiceName: msg.ServiceName,
			Payload:     msg.Message,
			DurationMS:  elapsed,
		}
		if err != nil {
			info.Error = err.Error()
		} else if result != nil {
			info.StatusCode = result.StatusCode
		}
		c.emitEvent(event.NewA2A(event.A2AMessageSend, r.ID, info))

		return result, err
	}
}

// NormalizeMessage converts the payload shapes agent frameworks pass
// around into an OutboundMessage: a plain string, an OutboundMessage,
// or a map carrying a "message" key. Unknown shapes are rejected
// rather than stringified, so policy never evaluates a Go type's
// print representation.
func NormalizeMessage(payload any) (OutboundMessage, error) {
	switch p := payload.(type) {
	case string:
		return OutboundMessage{Message: p}, nil
	case OutboundMessage:
		return p, nil
	case *OutboundMessage:
		return *p, nil
	case map[string]any:
		m, ok := p["message"].(string)
		if !ok {
			return OutboundMessage{}, fmt.Errorf("agentward: message map has no string %q key", "message")
		}
		out := OutboundMessage{Message: m}
		if u, ok := p["url"].(string); ok {
			out.URL = u
		}
		if s, ok := p["service_name"].(string); ok {
			out.ServiceName = s
		}
		return out, nil
	default:
		return OutboundMessage{}, fmt.Errorf("agentward: unsupported message payload type %T", payload)
	}
}
