package agentward

import (
	"github.com/rs/zerolog"

	"github.com/agentward/agentward/internal/emit"
)

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	project    string
	serverURL  string
	apiKey     string
	maxCalls   int
	policyPath string
	forbidden  []string

	llmPolicy     bool
	llmAPIKey     string
	llmBaseURL    string
	llmModel      string
	judgeAudit    bool
	blockOnMatch  bool
	blockExplicit bool

	queueSize  int
	dropPolicy emit.DropPolicy
	logger     *zerolog.Logger
	sink       emit.Sink
}

// WithProject sets the project name attached to runs.
func WithProject(name string) Option {
	return func(c *clientConfig) { c.project = name }
}

// WithServerURL sets the collector base URL. Without it the client
// runs local-only and emits nothing.
func WithServerURL(url string) Option {
	return func(c *clientConfig) { c.serverURL = url }
}

// WithAPIKey sets the bearer token for collector requests.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithMaxLLMCalls sets the model-call ceiling per run. Zero or less
// disables the kill switch.
func WithMaxLLMCalls(n int) Option {
	return func(c *clientConfig) { c.maxCalls = n }
}

// WithPolicyConfig sets the path to a policy YAML file.
func WithPolicyConfig(path string) Option {
	return func(c *clientConfig) { c.policyPath = path }
}

// WithForbidden appends terms to the forbidden list. Terms containing
// a regex metacharacter are compiled as patterns.
func WithForbidden(terms ...string) Option {
	return func(c *clientConfig) { c.forbidden = append(c.forbidden, terms...) }
}

// WithLLMPolicy enables the semantic judge using the given OpenAI-style
// API key. An empty model uses the default judge model.
func WithLLMPolicy(apiKey, model string) Option {
	return func(c *clientConfig) {
		c.llmPolicy = true
		c.llmAPIKey = apiKey
		c.llmModel = model
	}
}

// WithLLMBaseURL overrides the judge API endpoint, for proxies and
// compatible servers.
func WithLLMBaseURL(url string) Option {
	return func(c *clientConfig) { c.llmBaseURL = url }
}

// WithJudgeAudit also runs the judge after a keyword match, purely as
// an audit trail. Its opinion never un-blocks a keyword match.
func WithJudgeAudit() Option {
	return func(c *clientConfig) { c.judgeAudit = true }
}

// WithBlockOnViolation makes flagged messages abort the wrapped call.
// The default is audit-only: violations are recorded and the call
// proceeds.
func WithBlockOnViolation(block bool) Option {
	return func(c *clientConfig) {
		c.blockOnMatch = block
		c.blockExplicit = true
	}
}

// WithQueueSize sets the telemetry queue capacity.
func WithQueueSize(n int) Option {
	return func(c *clientConfig) { c.queueSize = n }
}

// WithDropOldest switches the telemetry queue to drop its oldest
// entry when full, instead of the incoming one.
func WithDropOldest() Option {
	return func(c *clientConfig) { c.dropPolicy = emit.DropOldest }
}

// WithLogger sets the SDK logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *clientConfig) { c.logger = &log }
}

// withSink overrides the telemetry sink. Tests use it to capture
// emitted events without a live collector.
func withSink(s emit.Sink) Option {
	return func(c *clientConfig) { c.sink = s }
}
