package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvForbidden is the environment variable carrying extra forbidden
// terms, comma-separated.
const EnvForbidden = "AGENTWARD_FORBIDDEN"

// Config controls content policy evaluation.
type Config struct {
	// Forbidden is the operator-supplied term list. Terms containing a
	// regex metacharacter are additionally compiled as patterns.
	Forbidden []string `yaml:"forbidden"`

	// EnableLLMPolicy turns on the semantic judge.
	EnableLLMPolicy bool `yaml:"enable_llm_policy"`

	// LLMPolicyModel selects the judge model.
	LLMPolicyModel string `yaml:"llm_policy_model"`

	// LLMPolicyAfterKeyword also runs the judge after a keyword match,
	// purely as an audit. Its outcome never un-blocks a keyword match.
	LLMPolicyAfterKeyword bool `yaml:"llm_policy_after_keyword"`

	// BlockOnViolation makes a blocked verdict abort the call. When
	// false, violations are recorded but the call proceeds (audit-only).
	BlockOnViolation bool `yaml:"block_on_violation"`
}

// defaultSubstrings are the built-in forbidden terms, matched
// case-insensitively as substrings.
var defaultSubstrings = []string{
	"password",
	"api_key",
	"secret key",
	"ssn",
	"credit card",
}

// defaultRegexes are the built-in forbidden patterns.
var defaultRegexes = []string{
	`\b\d{3}-\d{2}-\d{4}\b`, // SSN
	`sk-[A-Za-z0-9]{20,}`,   // sk- style API keys
	`(?:\d[ -]*?){13,16}`,   // card-number shaped digit runs
}

// LoadConfig reads a policy config from a YAML file. An empty path
// returns the zero config (built-in terms only, no judge, audit-only).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("policy: parse config: %w", err)
	}
	return cfg, nil
}

// envForbidden returns extra terms from the environment list.
func envForbidden() []string {
	raw := os.Getenv(EnvForbidden)
	if raw == "" {
		return nil
	}
	var terms []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			terms = append(terms, s)
		}
	}
	return terms
}
