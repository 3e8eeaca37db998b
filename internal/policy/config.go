package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ConfigBlockRule is a user-supplied always-block pattern.
type ConfigBlockRule struct {
	Description string `yaml:"description"`
	Pattern     string `yaml:"pattern"`
	Suggestion  string `yaml:"suggestion"`
}

// Config extends the built-in policy. Built-in block rules and risky
// intents can be added to but never removed.
type Config struct {
	BlockRules   []ConfigBlockRule `yaml:"block_rules"`
	RiskyIntents []string          `yaml:"risky_intents"`
}

// LoadConfig reads policy extensions from a YAML file.
// Empty path falls back to ~/.command-guardian/policy.yaml.
// A missing file returns nil (built-ins only). Invalid YAML or an
// uncompilable pattern returns an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil
		}
		path = filepath.Join(home, ".command-guardian", "policy.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("policy: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("policy: parse config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) compileBlockRules() ([]BlockRule, error) {
	out := make([]BlockRule, 0, len(c.BlockRules))
	for _, r := range c.BlockRules {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("policy: block rule %q: %w", r.Description, err)
		}
		out = append(out, BlockRule{
			Description: r.Description,
			Suggestion:  r.Suggestion,
			pattern:     re,
		})
	}
	return out, nil
}
