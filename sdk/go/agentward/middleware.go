package agentward

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentward/agentward/internal/event"
)

// discovery paths carry agent cards, not messages, and are never
// inspected.
var discoveryPaths = map[string]bool{
	"/":                       true,
	"/agent.json":             true,
	"/a2a/agent.json":         true,
	"/.well-known/agent.json": true,
}

// Middleware returns an http.Handler that evaluates inbound message
// content before passing to the next handler. Flagged requests always
// receive a 403 with a JSON body; block_on_violation only softens the
// egress side. Events attach to the active run when one exists;
// otherwise a transient run is created for the request and completed
// immediately.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || discoveryPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		msg := extractMessage(body)
		if msg == "" {
			next.ServeHTTP(w, r)
			return
		}

		rr := c.manager.Current()
		transient := rr == nil || !rr.Active()
		if transient {
			rr = c.manager.NewMinimal()
			c.emitEvent(event.NewRunStarted(rr.ID, rr.Project, rr.StartedAt))
		}
		info := event.A2AInfo{
			Method:  r.Method,
			URL:     r.URL.Path,
			Payload: msg,
		}
		c.emitEvent(event.NewA2A(event.A2AMessageReceive, rr.ID, info))

		v := c.engine.Evaluate(r.Context(), msg, Ingress)
		if v.Blocked {
			c.emitEvent(event.NewViolation(rr.ID, info, v.Detail()))
			c.log.Warn().
				Str("run_id", rr.ID).
				Str("source", string(v.Source)).
				Str("reason", v.Reason).
				Msg("inbound message rejected")
		}

		if transient {
			rr.Complete()
			snap := rr.Snapshot()
			c.emitEvent(event.NewRunCompleted(rr.ID, snap.EndedAt))
			c.emitRun(snap)
		}

		if v.Blocked {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"blocked": true,
				"source":  string(v.Source),
				"reason":  v.Reason,
				"detail":  v.Detail(),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractMessage pulls the message text from an inbound JSON payload.
// It accepts a top-level "message" string or the nested
// params.message.parts[].text shape, and returns "" when the body
// carries neither.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if m, ok := payload["message"].(string); ok {
		return m
	}

	params, ok := payload["params"].(map[string]any)
	if !ok {
		return ""
	}
	msg, ok := params["message"].(map[string]any)
	if !ok {
		return ""
	}
	parts, ok := msg["parts"].([]any)
	if !ok {
		return ""
	}
	var b bytes.Buffer
	for _, p := range parts {
		part, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(text)
		}
	}
	return b.String()
}
