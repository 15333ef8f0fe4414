package agentward

import (
	"context"
	"errors"
	"testing"

	"github.com/agentward/agentward/internal/event"
)

func echoSend(invocations *int) SendFunc {
	return func(_ context.Context, _ OutboundMessage) (*SendResult, error) {
		*invocations++
		return &SendResult{StatusCode: 200, Body: "ack"}, nil
	}
}

func TestWrapSendClean(t *testing.T) {
	sink := &memSink{}
	c := newTestClient(t, sink)

	invocations := 0
	guarded := c.WrapSend(echoSend(&invocations))

	result, err := guarded(context.Background(), OutboundMessage{
		Message: "weather report for tomorrow",
		URL:     "http://peer:9000/a2a",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StatusCode != 200 {
		t.Fatalf("expected status 200, got %d", result.StatusCode)
	}
	if invocations != 1 {
		t.Fatalf("expected 1 invocation, got %d", invocations)
	}

	closeClient(t, c)
	if got := len(sink.eventsOfType(event.A2AMessageSend)); got != 1 {
		t.Fatalf("expected one a2a_message_send event, got %d", got)
	}
	if got := len(sink.eventsOfType(event.GuardrailViolation)); got != 0 {
		t.Fatalf("expected no violation events, got %d", got)
	}
}

func TestWrapSendBlockedNeverInvokes(t *testing.T) {
	sink := &memSink{}
	c := newTestClient(t, sink, WithBlockOnViolation(true))

	invocations := 0
	guarded := c.WrapSend(echoSend(&invocations))

	_, err := guarded(context.Background(), OutboundMessage{
		Message: "here is the admin password: hunter2",
		URL:     "http://peer:9000/a2a",
	})
	var ve *ViolationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ViolationError, got %v", err)
	}
	if ve.Verdict.Source != "keyword" {
		t.Fatalf("expected keyword source, got %q", ve.Verdict.Source)
	}
	if invocations != 0 {
		t.Fatalf("expected zero invocations for blocked send, got %d", invocations)
	}

	closeClient(t, c)
	if got := len(sink.eventsOfType(event.GuardrailViolation)); got != 1 {
		t.Fatalf("expected one violation event, got %d", got)
	}
	if got := len(sink.eventsOfType(event.A2AMessageSend)); got != 0 {
		t.Fatalf("expected no a2a_message_send events, got %d", got)
	}
}

func TestWrapSendAuditModeProceeds(t *testing.T) {
	sink := &memSink{}
	c := newTestClient(t, sink) // audit-only default

	invocations := 0
	guarded := c.WrapSend(echoSend(&invocations))

	_, err := guarded(context.Background(), OutboundMessage{
		Message: "here is the admin password: hunter2",
	})
	if err != nil {
		t.Fatalf("expected audit mode to proceed, got %v", err)
	}
	if invocations != 1 {
		t.Fatalf("expected 1 invocation, got %d", invocations)
	}

	closeClient(t, c)
	if got := len(sink.eventsOfType(event.GuardrailViolation)); got != 1 {
		t.Fatalf("expected one violation event, got %d", got)
	}
	if got := len(sink.eventsOfType(event.A2AMessageSend)); got != 1 {
		t.Fatalf("expected one a2a_message_send event, got %d", got)
	}
}

func TestWrapSendAfterTermination(t *testing.T) {
	sink := &memSink{}
	c := newTestClient(t, sink, WithMaxLLMCalls(1))

	invocations := 0
	model := c.WrapModel(echoModel(&invocations))
	ctx := context.Background()

	model(ctx, ModelCall{Model: "gpt-4o-mini"})
	model(ctx, ModelCall{Model: "gpt-4o-mini"}) // crosses ceiling

	sendInvocations := 0
	send := c.WrapSend(echoSend(&sendInvocations))
	_, err := send(ctx, OutboundMessage{Message: "hello"})
	var te *TerminatedError
	if !errors.As(err, &te) {
		t.Fatalf("expected TerminatedError, got %v", err)
	}
	if sendInvocations != 0 {
		t.Fatalf("expected zero send invocations on terminated run, got %d", sendInvocations)
	}
	closeClient(t, c)
}

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
		wantErr bool
	}{
		{name: "string", payload: "hello", want: "hello"},
		{name: "outbound message", payload: OutboundMessage{Message: "hi"}, want: "hi"},
		{name: "outbound pointer", payload: &OutboundMessage{Message: "hi"}, want: "hi"},
		{name: "map with message", payload: map[string]any{"message": "yo"}, want: "yo"},
		{name: "map without message", payload: map[string]any{"body": "yo"}, wantErr: true},
		{name: "unsupported type", payload: 42, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMessage(tt.payload)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Message != tt.want {
				t.Fatalf("got %q, want %q", got.Message, tt.want)
			}
		})
	}
}
