package agentward

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentward/agentward/internal/emit"
	"github.com/agentward/agentward/internal/event"
	"github.com/agentward/agentward/internal/judge"
	"github.com/agentward/agentward/internal/limit"
	"github.com/agentward/agentward/internal/policy"
	"github.com/agentward/agentward/internal/run"
)

// Client holds the interception pipeline: policy engine, call-limit
// guard, run lifecycle, and telemetry. Thread-safe for concurrent
// wrapped calls.
type Client struct {
	cfg     clientConfig
	engine  *policy.Engine
	guard   *limit.Guard
	manager *run.Manager
	emitter *emit.Emitter
	log     zerolog.Logger
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{project: "default"}
	for _, o := range opts {
		o(&cfg)
	}

	pc, err := policy.LoadConfig(cfg.policyPath)
	if err != nil {
		return nil, fmt.Errorf("agentward: %w", err)
	}
	pc.Forbidden = append(pc.Forbidden, cfg.forbidden...)
	if cfg.llmPolicy {
		pc.EnableLLMPolicy = true
		if cfg.llmModel != "" {
			pc.LLMPolicyModel = cfg.llmModel
		}
	}
	if cfg.judgeAudit {
		pc.LLMPolicyAfterKeyword = true
	}
	if cfg.blockExplicit {
		pc.BlockOnViolation = cfg.blockOnMatch
	}

	var j policy.Judge
	if pc.EnableLLMPolicy && cfg.llmAPIKey != "" {
		j = judge.New(cfg.llmAPIKey, cfg.llmBaseURL, pc.LLMPolicyModel)
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "agentward").Logger()
	if cfg.logger != nil {
		log = *cfg.logger
	}

	c := &Client{
		cfg:     cfg,
		engine:  policy.NewEngine(pc, j),
		guard:   limit.NewGuard(cfg.maxCalls),
		manager: run.NewManager(cfg.project),
		log:     log,
	}

	sink := cfg.sink
	if sink == nil && cfg.serverURL != "" {
		sink = emit.NewHTTPSink(cfg.serverURL, cfg.apiKey)
	}
	if sink != nil {
		var eopts []emit.Option
		if cfg.queueSize > 0 {
			eopts = append(eopts, emit.WithQueueSize(cfg.queueSize))
		}
		eopts = append(eopts, emit.WithDropPolicy(cfg.dropPolicy), emit.WithLogger(log))
		c.emitter = emit.New(sink, eopts...)
	}

	return c, nil
}

// Check evaluates content against the policy without sending anything.
func (c *Client) Check(ctx context.Context, text string, direction Direction) Verdict {
	return c.engine.Evaluate(ctx, text, direction)
}

// CurrentRun returns a snapshot of the current run, or false when no
// run has started yet.
func (c *Client) CurrentRun() (run.Snapshot, bool) {
	r := c.manager.Current()
	if r == nil {
		return run.Snapshot{}, false
	}
	return r.Snapshot(), true
}

// Close ends the current run normally, flushes pending telemetry, and
// releases the client. Safe to call once at process shutdown.
func (c *Client) Close(ctx context.Context) error {
	if r := c.manager.Current(); r != nil {
		if r.Complete() {
			snap := r.Snapshot()
			c.emitEvent(event.NewRunCompleted(r.ID, snap.EndedAt))
			c.emitRun(snap)
		}
		c.guard.Forget(r.ID)
	}
	if c.emitter != nil {
		return c.emitter.Close(ctx)
	}
	return nil
}

// ensureRun returns the current run, creating and announcing it on
// first use.
func (c *Client) ensureRun() *run.Run {
	r, created := c.manager.Ensure()
	if created {
		c.emitEvent(event.NewRunStarted(r.ID, r.Project, r.StartedAt))
		c.emitRun(r.Snapshot())
		c.log.Info().Str("run_id", r.ID).Str("project", r.Project).Msg("run started")
	}
	return r
}

func (c *Client) emitEvent(ev event.Event) {
	if c.emitter != nil {
		c.emitter.Event(ev)
	}
}

func (c *Client) emitRun(snap run.Snapshot) {
	if c.emitter != nil {
		c.emitter.Run(snap)
	}
}
