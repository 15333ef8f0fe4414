package emit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentward/agentward/internal/event"
	"github.com/agentward/agentward/internal/run"
)

// memSink records deliveries; optionally fails or blocks.
type memSink struct {
	mu     sync.Mutex
	events []event.Event
	runs   []run.Snapshot
	err    error
	block  chan struct{} // when non-nil, deliveries wait on it
}

func (m *memSink) PostEvent(_ context.Context, ev event.Event) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memSink) UpsertRun(_ context.Context, snap run.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, snap)
	return nil
}

func (m *memSink) eventTypes() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []event.Type
	for _, ev := range m.events {
		types = append(types, ev.Type)
	}
	return types
}

func closeEmitter(t *testing.T, e *Emitter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Close(ctx))
}

func TestEmitterDeliversInOrder(t *testing.T) {
	sink := &memSink{}
	e := New(sink)

	e.Event(event.NewRunStarted("r1", "demo", 1))
	e.Event(event.NewLLMCall("r1", 1, "gpt-4o", "p", "r", 10, 5, 0.01))
	e.Event(event.NewRunCompleted("r1", 2))
	closeEmitter(t, e)

	assert.Equal(t, []event.Type{event.RunStarted, event.LLMCall, event.RunCompleted}, sink.eventTypes())
}

func TestEmitterDeliversRunUpserts(t *testing.T) {
	sink := &memSink{}
	e := New(sink)

	e.Run(run.Snapshot{ID: "r1", Project: "demo", Status: run.StatusRunning})
	closeEmitter(t, e)

	require.Len(t, sink.runs, 1)
	assert.Equal(t, "r1", sink.runs[0].ID)
}

func TestEmitterDeliveryFailureIsDroppedSilently(t *testing.T) {
	sink := &memSink{err: errors.New("sink down")}
	e := New(sink)

	// Must not panic, block, or surface the error.
	e.Event(event.NewRunStarted("r1", "demo", 1))
	closeEmitter(t, e)
	assert.Empty(t, sink.events)
}

func TestEmitterDropNewestWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &memSink{block: block}
	e := New(sink, WithQueueSize(2))

	// First event occupies the drain goroutine; two fill the queue.
	e.Event(event.Event{Type: event.LLMCall, RunID: "in-flight"})
	time.Sleep(50 * time.Millisecond)
	e.Event(event.Event{Type: event.LLMCall, RunID: "q1"})
	e.Event(event.Event{Type: event.LLMCall, RunID: "q2"})
	e.Event(event.Event{Type: event.LLMCall, RunID: "dropped"})

	close(block)
	closeEmitter(t, e)

	var ids []string
	for _, ev := range sink.events {
		ids = append(ids, ev.RunID)
	}
	assert.Equal(t, []string{"in-flight", "q1", "q2"}, ids)
}

func TestEmitterDropOldestWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &memSink{block: block}
	e := New(sink, WithQueueSize(2), WithDropPolicy(DropOldest))

	e.Event(event.Event{Type: event.LLMCall, RunID: "in-flight"})
	time.Sleep(50 * time.Millisecond)
	e.Event(event.Event{Type: event.LLMCall, RunID: "q1"})
	e.Event(event.Event{Type: event.LLMCall, RunID: "q2"})
	e.Event(event.Event{Type: event.LLMCall, RunID: "newest"})

	close(block)
	closeEmitter(t, e)

	var ids []string
	for _, ev := range sink.events {
		ids = append(ids, ev.RunID)
	}
	require.Len(t, ids, 3)
	assert.Equal(t, "in-flight", ids[0])
	assert.Contains(t, ids, "newest")
	assert.NotContains(t, ids, "q1", "oldest queued item is sacrificed")
}

func TestEmitterEnqueueAfterCloseIsNoop(t *testing.T) {
	sink := &memSink{}
	e := New(sink)
	closeEmitter(t, e)

	// Must not panic on the closed queue.
	e.Event(event.NewRunStarted("r1", "demo", 1))
	e.Run(run.Snapshot{ID: "r1"})
	assert.Empty(t, sink.events)
}

func TestEmitterCloseTwice(t *testing.T) {
	e := New(&memSink{})
	closeEmitter(t, e)
	assert.NoError(t, e.Close(context.Background()))
}

func TestHTTPSinkRoutesEndpoints(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]int{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path]++
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL+"/", "key123")
	ctx := context.Background()

	require.NoError(t, s.PostEvent(ctx, event.NewRunStarted("r1", "demo", 1)))
	require.NoError(t, s.PostEvent(ctx, event.NewA2A(event.A2AMessageSend, "r1", event.A2AInfo{Method: "EGRESS"})))
	require.NoError(t, s.UpsertRun(ctx, run.Snapshot{ID: "r1", Status: run.StatusRunning}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, paths["/v1/events"])
	assert.Equal(t, 1, paths["/v1/a2a-events"])
	assert.Equal(t, 1, paths["/v1/runs"])
	assert.Equal(t, "Bearer key123", auth)
}

func TestHTTPSinkNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, "")
	err := s.PostEvent(context.Background(), event.NewRunStarted("r1", "demo", 1))
	assert.Error(t, err)
}

func TestHTTPSinkUnreachable(t *testing.T) {
	s := NewHTTPSink("http://127.0.0.1:1", "")
	err := s.PostEvent(context.Background(), event.NewRunStarted("r1", "demo", 1))
	assert.Error(t, err)
}
