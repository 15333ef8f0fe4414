package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/agentward/agentward/internal/event"
	"github.com/agentward/agentward/internal/run"
)

// outboundLimit caps collector traffic so a chatty agent cannot flood
// the sink. Burst absorbs short spikes.
const (
	outboundLimit = rate.Limit(50)
	outboundBurst = 100
)

// HTTPSink posts JSON to the collector's ingest endpoints.
type HTTPSink struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSink creates a sink for the collector at baseURL.
func NewHTTPSink(baseURL, apiKey string) *HTTPSink {
	return &HTTPSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: attemptTimeout},
		limiter: rate.NewLimiter(outboundLimit, outboundBurst),
	}
}

// PostEvent delivers one event. A2A events route to their own endpoint.
func (s *HTTPSink) PostEvent(ctx context.Context, ev event.Event) error {
	path := "/v1/events"
	if ev.Type.A2A() {
		path = "/v1/a2a-events"
	}
	return s.post(ctx, path, ev)
}

// UpsertRun delivers a run snapshot to the run-upsert endpoint.
func (s *HTTPSink) UpsertRun(ctx context.Context, snap run.Snapshot) error {
	return s.post(ctx, "/v1/runs", snap)
}

func (s *HTTPSink) post(ctx context.Context, path string, payload any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("emit: rate limiter: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("emit: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("emit: post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("emit: post %s: HTTP %d", path, resp.StatusCode)
	}
	return nil
}
