package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout is the ceiling for a single command execution.
const DefaultTimeout = 300 * time.Second

// TimeoutExitCode is reported when the command exceeds the timeout.
const TimeoutExitCode = 124

// ShellExecutor runs commands through /bin/sh. It satisfies the
// Executor contract: every failure mode maps to an exit code plus
// diagnostic text, never an error.
type ShellExecutor struct {
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// Execute runs command and returns its exit code and combined output.
func (s *ShellExecutor) Execute(ctx context.Context, command string) (int, string) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	out, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return TimeoutExitCode, fmt.Sprintf("[guardian] Command timed out after %s.", timeout)
	}
	if ctx.Err() == context.Canceled {
		return 1, "[guardian] Execution interrupted."
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), string(out)
		}
		return 1, fmt.Sprintf("[guardian] Execution error: %v", err)
	}
	return 0, string(out)
}
