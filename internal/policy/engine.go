// Package policy evaluates message content against the configured
// guardrail policy: a deterministic keyword/regex check, optionally
// combined with a semantic LLM judge. The keyword check is
// authoritative — a possibly-unreliable judge can add blocks but never
// remove them.
package policy

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Direction tells the evaluator which way a message is traveling.
type Direction string

const (
	Egress  Direction = "egress"
	Ingress Direction = "ingress"
)

// Source identifies which judge(s) contributed to a blocked verdict.
type Source string

const (
	SourceNone       Source = "none"
	SourceKeyword    Source = "keyword"
	SourceLLM        Source = "llm"
	SourceKeywordLLM Source = "keyword+llm"
)

// Verdict is the structured outcome of evaluating one message.
type Verdict struct {
	Direction Direction
	Blocked   bool
	Source    Source
	Matches   []string
	Reason    string

	// JudgeRan is true when the semantic judge was invoked and answered.
	JudgeRan bool
	// JudgeSkipped carries the failure reason when the judge was
	// configured to run but could not answer.
	JudgeSkipped string
}

// Detail renders the verdict for violation events: label:reason:matches.
func (v Verdict) Detail() string {
	label := "unauthorized_content"
	if !v.Blocked {
		label = "clean"
	}
	return fmt.Sprintf("%s:%s:%s", label, v.Reason, strings.Join(v.Matches, ","))
}

// Finding is the semantic judge's answer for one message.
type Finding struct {
	Violation   bool
	Type        string
	Severity    string
	Explanation string
	Confidence  float64
}

// Judge is a model-based evaluator consulted in addition to keyword
// matching. Implementations must honor ctx cancellation.
type Judge interface {
	Review(ctx context.Context, text string, direction Direction) (Finding, error)
}

// defaultJudgeTimeout bounds one judge invocation so a hung judge never
// stalls the pipeline.
const defaultJudgeTimeout = 10 * time.Second

// matcher is one compiled forbidden term.
type matcher struct {
	term string
	re   *regexp.Regexp // nil for plain substring terms
}

// Engine evaluates policy for messages. Safe for concurrent use; the
// config may be swapped at runtime via SetConfig (hot reload).
type Engine struct {
	judge        Judge
	judgeTimeout time.Duration

	mu       sync.RWMutex
	cfg      *Config
	matchers []matcher
}

// NewEngine builds an Engine for the given config. The judge may be nil
// when semantic policy is disabled.
func NewEngine(cfg *Config, judge Judge) *Engine {
	e := &Engine{judge: judge, judgeTimeout: defaultJudgeTimeout}
	e.SetConfig(cfg)
	return e
}

// SetConfig swaps the active config and recompiles matchers.
func (e *Engine) SetConfig(cfg *Config) {
	if cfg == nil {
		cfg = &Config{}
	}
	ms := compileMatchers(cfg.Forbidden)
	e.mu.Lock()
	e.cfg = cfg
	e.matchers = ms
	e.mu.Unlock()
}

// Config returns the active config.
func (e *Engine) Config() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// compileMatchers builds the full matcher set: built-in substrings,
// built-in regexes, configured terms, and the environment extra list.
// A term containing a regex metacharacter is compiled as a pattern; a
// term that fails to compile degrades to substring matching.
func compileMatchers(extra []string) []matcher {
	var ms []matcher
	for _, s := range defaultSubstrings {
		ms = append(ms, matcher{term: s})
	}
	for _, p := range defaultRegexes {
		if re, err := regexp.Compile("(?i)" + p); err == nil {
			ms = append(ms, matcher{term: "re:" + p, re: re})
		}
	}
	for _, lst := range [][]string{extra, envForbidden()} {
		for _, s := range lst {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if looksLikeRegex(s) {
				if re, err := regexp.Compile("(?i)" + s); err == nil {
					ms = append(ms, matcher{term: s, re: re})
					continue
				}
			}
			ms = append(ms, matcher{term: s})
		}
	}
	return ms
}

// looksLikeRegex reports whether a term contains a regex-only
// metacharacter and should be matched as a pattern.
func looksLikeRegex(s string) bool {
	return strings.ContainsAny(s, `\[](){}|^$*+?`)
}

// Evaluate checks one message. It never returns an error: judge
// failures degrade to the keyword-only verdict with a skip reason.
func (e *Engine) Evaluate(ctx context.Context, text string, direction Direction) Verdict {
	v := Verdict{Direction: direction, Source: SourceNone}
	if text == "" {
		v.Reason = "empty_or_none"
		return v
	}

	e.mu.RLock()
	cfg := e.cfg
	matchers := e.matchers
	e.mu.RUnlock()

	// Step 1: deterministic keyword/regex check.
	lowered := strings.ToLower(text)
	for _, m := range matchers {
		if m.re != nil {
			if m.re.MatchString(text) {
				v.Matches = append(v.Matches, m.term)
			}
		} else if strings.Contains(lowered, strings.ToLower(m.term)) {
			v.Matches = append(v.Matches, m.term)
		}
	}
	keywordBlocked := len(v.Matches) > 0
	if keywordBlocked {
		v.Blocked = true
		v.Source = SourceKeyword
		v.Reason = string(direction) + "_forbidden_content"
	} else {
		v.Reason = "no_matches"
	}

	// Step 2: semantic check. After a keyword match it runs only in
	// audit mode, and its opinion never un-blocks.
	wantJudge := cfg.EnableLLMPolicy && (!keywordBlocked || cfg.LLMPolicyAfterKeyword)
	if !wantJudge {
		return v
	}
	if e.judge == nil {
		v.JudgeSkipped = "judge not configured"
		v.Reason = v.Reason + "|" + string(direction) + "_llm_skipped"
		return v
	}

	jctx, cancel := context.WithTimeout(ctx, e.judgeTimeout)
	defer cancel()

	finding, err := e.judge.Review(jctx, text, direction)
	if err != nil {
		v.JudgeSkipped = err.Error()
		v.Reason = v.Reason + "|" + string(direction) + "_llm_skipped"
		return v
	}
	v.JudgeRan = true

	// Step 3: combine.
	if finding.Violation {
		llmReason := fmt.Sprintf("%s_llm_policy:%s:%.2f", direction, finding.Severity, finding.Confidence)
		if keywordBlocked {
			v.Source = SourceKeywordLLM
			v.Reason = v.Reason + "|" + llmReason
		} else {
			v.Blocked = true
			v.Source = SourceLLM
			v.Reason = llmReason
		}
		if finding.Explanation != "" {
			v.Matches = append(v.Matches, finding.Explanation)
		}
	}
	return v
}
