// Package runner is the only place a command can reach the shell.
//
// Four gates stand between a raw command and execution:
//
//	Gate 1 — policy decision (always-block rules end the run here)
//	Gate 2 — authorization (valid token, or explicit confirmation)
//	Gate 3 — re-classification immediately before execution; a command
//	         that now matches an unconditional block is a hard failure,
//	         distinct from a normal denial
//	Gate 4 — execution through the injected Executor
//
// Every terminating path writes exactly one receipt. A failed receipt
// write is fatal: the runner never executes when the audit write it
// owes has not landed.
package runner

import (
	"context"
	"fmt"

	"github.com/RazorglintLabs/command-guardian/internal/classify"
	"github.com/RazorglintLabs/command-guardian/internal/policy"
	"github.com/RazorglintLabs/command-guardian/internal/receipt"
	"github.com/RazorglintLabs/command-guardian/internal/token"
)

// Outcome is the terminal state of one enforcement run.
type Outcome string

const (
	// Executed: all four gates passed and the command ran.
	Executed Outcome = "executed"
	// Denied: a normal policy or authorization denial.
	Denied Outcome = "denied"
	// Blocked: the re-classification gate caught a command that became
	// unconditionally blocked between evaluation and execution. Callers
	// must surface this loudly; it is not a routine denial. The CLI
	// translates this outcome to exit code 77, while Result.ExitCode
	// stays 1 like any other denial.
	Blocked Outcome = "blocked"
)

// Result is the outcome of one run. ExitCode is meaningful for every
// outcome: 1 for denials and blocks, the command's own exit code after
// execution. The CLI layer maps Blocked to its own distinguished exit
// code before the process exits.
type Result struct {
	Outcome    Outcome
	Decision   policy.Decision
	Intent     classify.Intent
	Reason     string
	Suggestion string
	ExitCode   int
	Output     string
	Receipt    *receipt.Receipt
}

// Executor runs a verified command. Implementations never return an
// error: timeouts and failures map to a non-zero exit code plus
// diagnostic output.
type Executor interface {
	Execute(ctx context.Context, command string) (exitCode int, combinedOutput string)
}

// ConfirmFunc resolves an interactive authorization request. True
// authorizes; anything else, including a failing or cancelled
// collaborator, denies. Implementations must return promptly once ctx
// is done.
type ConfirmFunc func(ctx context.Context, intent classify.Intent, command string) bool

// Evaluator is the policy collaborator. *policy.Engine satisfies it;
// tests substitute their own to drive specific gate transitions.
type Evaluator interface {
	Evaluate(command string, intent classify.Intent) policy.Result
}

// Runner coordinates classification, policy, tokens, receipts, and
// execution for a single command.
type Runner struct {
	engine Evaluator
	tokens *token.Store
	log    *receipt.Log
	exec   Executor

	// Confirm is consulted for risky commands with no valid token.
	// Nil means non-interactive: such commands are denied outright.
	Confirm ConfirmFunc
}

// New creates a Runner with the default shell executor.
func New(engine Evaluator, tokens *token.Store, log *receipt.Log) *Runner {
	return &Runner{engine: engine, tokens: tokens, log: log, exec: &ShellExecutor{}}
}

// SetExecutor replaces the execution collaborator (tests inject fakes).
func (r *Runner) SetExecutor(e Executor) { r.exec = e }

// Run takes command through the full gate sequence. The returned error
// is reserved for infrastructure failures (a receipt that could not be
// persisted, a broken token store); enforcement outcomes, including
// hard blocks, are reported through Result.Outcome.
func (r *Runner) Run(ctx context.Context, command string) (*Result, error) {
	// Decision basis: one classification, one evaluation.
	intent := classify.Classify(command)
	pol := r.engine.Evaluate(command, intent)

	// Gate 1: unconditional denial.
	if pol.Decision == policy.Deny && !pol.RequiresAuth {
		return r.deny(intent, command, pol.Reason, pol.Suggestion)
	}

	// Gate 2: authorization for risky intents.
	var tokenID, tokenExpiry string
	if pol.RequiresAuth {
		tok, err := r.tokens.FindValid(intent)
		if err != nil {
			return nil, fmt.Errorf("runner: token lookup: %w", err)
		}
		switch {
		case tok != nil:
			tokenID = tok.TokenID
			tokenExpiry = tok.ExpiresAt
		case r.Confirm == nil:
			return r.deny(intent, command,
				"Risky intent denied (no valid token, no interactive confirmation).", pol.Suggestion)
		case ctx.Err() != nil:
			// An interrupted authorization is an implicit denial,
			// never an implicit allow.
			return r.deny(intent, command, "Run cancelled during authorization.", pol.Suggestion)
		case !r.Confirm(ctx, intent, command):
			return r.deny(intent, command, "User declined interactive authorization.", pol.Suggestion)
		}
	}

	// Cancellation that raced the confirmation answer still denies;
	// past this point the run is committed to an ALLOW receipt.
	if ctx.Err() != nil {
		return r.deny(intent, command, "Run cancelled during authorization.", "")
	}

	// Gate 3: re-classify and re-evaluate the same command string right
	// before execution. Earlier authorization is never trusted blindly.
	reIntent := classify.Classify(command)
	rePol := r.engine.Evaluate(command, reIntent)
	if rePol.Decision == policy.Deny && !rePol.RequiresAuth {
		reason := "Re-classification blocked: " + rePol.Reason
		rec, err := r.log.Append(receipt.Entry{
			Intent:   reIntent,
			Command:  command,
			Decision: policy.Deny,
			Reason:   reason,
		})
		if err != nil {
			return nil, fmt.Errorf("runner: write receipt: %w", err)
		}
		return &Result{
			Outcome:  Blocked,
			Decision: policy.Deny,
			Intent:   reIntent,
			Reason:   reason,
			ExitCode: 1,
			Receipt:  rec,
		}, nil
	}

	// The decision is final; the audit write precedes execution so a
	// crash mid-command still leaves an ALLOW receipt behind.
	reason := pol.Reason
	if pol.Decision != policy.Allow {
		reason = "Authorized (token or interactive)."
	}
	rec, err := r.log.Append(receipt.Entry{
		Intent:    intent,
		Command:   command,
		Decision:  policy.Allow,
		Reason:    reason,
		TokenID:   tokenID,
		ExpiresAt: tokenExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("runner: write receipt: %w", err)
	}

	// Gate 4: the single point of execution.
	exitCode, output := r.exec.Execute(ctx, command)

	res := &Result{
		Outcome:  Executed,
		Decision: policy.Allow,
		Intent:   intent,
		ExitCode: exitCode,
		Output:   output,
		Receipt:  rec,
	}
	if exitCode == 0 {
		res.Reason = "Executed successfully."
	} else {
		res.Reason = fmt.Sprintf("Command exited with code %d.", exitCode)
	}
	return res, nil
}

func (r *Runner) deny(intent classify.Intent, command, reason, suggestion string) (*Result, error) {
	rec, err := r.log.Append(receipt.Entry{
		Intent:   intent,
		Command:  command,
		Decision: policy.Deny,
		Reason:   reason,
	})
	if err != nil {
		return nil, fmt.Errorf("runner: write receipt: %w", err)
	}
	return &Result{
		Outcome:    Denied,
		Decision:   policy.Deny,
		Intent:     intent,
		Reason:     reason,
		Suggestion: suggestion,
		ExitCode:   1,
		Receipt:    rec,
	}, nil
}
