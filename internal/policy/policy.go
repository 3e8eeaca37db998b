// Package policy decides whether a classified command may execute.
//
// Evaluation order (must not be changed):
//  1. Block gate — always-block patterns, hard deny, no override
//  2. Risk gate  — risky intents deny with RequiresAuth
//  3. Default    — allow
package policy

import (
	"fmt"

	"github.com/RazorglintLabs/command-guardian/internal/classify"
)

// Decision is the policy outcome for a command.
type Decision string

const (
	Allow Decision = "ALLOW"
	Deny  Decision = "DENY"
)

// Result is the outcome of a single policy evaluation.
// RequiresAuth is true only on a risk-gate DENY; a block-gate DENY
// can never be authorized away.
type Result struct {
	Decision     Decision
	Reason       string
	RequiresAuth bool
	Suggestion   string
}

// Engine evaluates commands against block rules and the risky-intent
// set. The zero value is unusable; construct with NewEngine.
type Engine struct {
	blockRules []BlockRule
	risky      map[classify.Intent]bool
}

// NewEngine returns an engine with the built-in rules plus any
// extensions from cfg. A nil cfg means built-in rules only.
func NewEngine(cfg *Config) (*Engine, error) {
	e := &Engine{
		blockRules: append([]BlockRule(nil), builtinBlockRules...),
		risky:      make(map[classify.Intent]bool, len(riskyIntents)),
	}
	for _, i := range riskyIntents {
		e.risky[i] = true
	}

	if cfg == nil {
		return e, nil
	}
	extra, err := cfg.compileBlockRules()
	if err != nil {
		return nil, err
	}
	e.blockRules = append(e.blockRules, extra...)
	for _, s := range cfg.RiskyIntents {
		if !classify.Valid(s) {
			return nil, fmt.Errorf("policy: unknown risky intent %q in config", s)
		}
		e.risky[classify.Intent(s)] = true
	}
	return e, nil
}

// Evaluate returns the decision for command with classified intent.
// Pure function of its inputs: no I/O, no clock, identical inputs
// always yield identical results. The runner relies on this when it
// re-evaluates the same command before execution.
func (e *Engine) Evaluate(command string, intent classify.Intent) Result {
	// Gate 1: always-block patterns
	for _, r := range e.blockRules {
		if r.pattern.MatchString(command) {
			return Result{
				Decision:   Deny,
				Reason:     "BLOCKED: " + r.Description,
				Suggestion: r.Suggestion,
			}
		}
	}

	// Gate 2: risky intents need explicit authorization
	if e.risky[intent] {
		return Result{
			Decision:     Deny,
			Reason:       fmt.Sprintf("Risky intent (%s) requires explicit authorization.", intent),
			RequiresAuth: true,
			Suggestion:   suggestionForIntent(intent),
		}
	}

	// Gate 3: safe
	return Result{Decision: Allow, Reason: "Command allowed by policy."}
}

// BlockRuleDescriptions returns the description of every active block
// rule, in evaluation order.
func (e *Engine) BlockRuleDescriptions() []string {
	out := make([]string, len(e.blockRules))
	for i, r := range e.blockRules {
		out[i] = r.Description
	}
	return out
}

// RiskyIntents returns the active risky-intent set in classifier order.
func (e *Engine) RiskyIntents() []classify.Intent {
	var out []classify.Intent
	for _, i := range classify.AllIntents {
		if e.risky[i] {
			out = append(out, i)
		}
	}
	return out
}
