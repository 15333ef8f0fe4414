// Package emit delivers trace events to the collector on a best-effort
// basis. Dispatch is decoupled from the intercepted call through a
// bounded queue drained by a background goroutine: a slow or dead sink
// costs events, never agent latency or memory.
package emit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentward/agentward/internal/event"
	"github.com/agentward/agentward/internal/run"
)

// Sink receives events and run snapshots. Delivery is at most once per
// attempt; the sink owns deduplication and ordering.
type Sink interface {
	PostEvent(ctx context.Context, ev event.Event) error
	UpsertRun(ctx context.Context, snap run.Snapshot) error
}

// DropPolicy selects which item is sacrificed when the queue is full.
type DropPolicy int

const (
	// DropNewest discards the incoming item, keeping queued history.
	DropNewest DropPolicy = iota
	// DropOldest discards the oldest queued item to admit the new one.
	DropOldest
)

// attemptTimeout bounds one delivery attempt.
const attemptTimeout = 3 * time.Second

// defaultQueueSize bounds the in-flight backlog.
const defaultQueueSize = 256

// item is one queued unit of work: an event or a run upsert.
type item struct {
	ev   *event.Event
	snap *run.Snapshot
}

// Emitter is the fire-and-forget dispatcher. Enqueue paths never block
// and never fail the caller; delivery failures are logged and dropped.
type Emitter struct {
	sink   Sink
	policy DropPolicy
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan item
	done   chan struct{}
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.queue = make(chan item, n)
		}
	}
}

// WithDropPolicy sets the back-pressure policy.
func WithDropPolicy(p DropPolicy) Option {
	return func(e *Emitter) { e.policy = p }
}

// WithLogger sets the logger for delivery failures.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Emitter) { e.log = log }
}

// New creates an Emitter and starts its drain goroutine.
func New(sink Sink, opts ...Option) *Emitter {
	e := &Emitter{
		sink:   sink,
		policy: DropNewest,
		log:    zerolog.Nop(),
		queue:  make(chan item, defaultQueueSize),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	go e.drain()
	return e
}

// Event enqueues a trace event. Never blocks.
func (e *Emitter) Event(ev event.Event) {
	e.enqueue(item{ev: &ev})
}

// Run enqueues a run snapshot upsert. Never blocks.
func (e *Emitter) Run(snap run.Snapshot) {
	e.enqueue(item{snap: &snap})
}

func (e *Emitter) enqueue(it item) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.queue <- it:
		return
	default:
	}

	if e.policy == DropOldest {
		// Make room, then retry once. The drain goroutine may have
		// raced us for the oldest item; dropping the new one then is
		// fine.
		select {
		case old := <-e.queue:
			e.logDrop(old)
		default:
		}
		select {
		case e.queue <- it:
			return
		default:
		}
	}
	e.logDrop(it)
}

func (e *Emitter) logDrop(it item) {
	ev := e.log.Debug()
	if it.ev != nil {
		ev.Str("type", string(it.ev.Type)).Str("run_id", it.ev.RunID)
	} else if it.snap != nil {
		ev.Str("type", "run_upsert").Str("run_id", it.snap.ID)
	}
	ev.Msg("telemetry queue full, dropping")
}

func (e *Emitter) drain() {
	defer close(e.done)
	for it := range e.queue {
		e.deliver(it)
	}
}

// deliver makes exactly one attempt. Failures are logged and the item
// is discarded so observability never becomes a failure mode for the
// observed agent.
func (e *Emitter) deliver(it item) {
	ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
	defer cancel()

	var err error
	switch {
	case it.ev != nil:
		err = e.sink.PostEvent(ctx, *it.ev)
	case it.snap != nil:
		err = e.sink.UpsertRun(ctx, *it.snap)
	}
	if err != nil {
		e.log.Warn().Err(err).Msg("telemetry delivery failed, dropping")
	}
}

// Close stops accepting items and waits for the backlog to drain, up to
// ctx. Safe to call once.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
