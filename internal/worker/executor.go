// Package worker runs job commands: a Loop drives one claim/execute/finalize
// cycle at a time, and a Pool supervises a set of Loops.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultExecTimeout bounds a single command execution.
const DefaultExecTimeout = 5 * time.Minute

// Result captures the outcome of one command execution. Err is nil only
// when the command exited zero.
type Result struct {
	Output   string
	Err      error
	TimedOut bool
}

// Executor runs commands through the shell with a bounded timeout. A command
// that exits non-zero, overruns the timeout, or fails to start is reported
// through Result, never as a worker error.
type Executor struct {
	timeout time.Duration
}

func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	return &Executor{timeout: timeout}
}

// Run executes the command. The timeout context is independent of the
// worker's cancellation: an in-flight command is never abandoned on
// shutdown, only on timeout expiry (which kills the child).
func (e *Executor) Run(command string) Result {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err == nil {
		return Result{Output: outputStr}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{
			Output:   outputStr,
			Err:      fmt.Errorf("command timed out after %v", e.timeout),
			TimedOut: true,
		}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{
			Output: outputStr,
			Err:    fmt.Errorf("command exited with code %d", exitErr.ExitCode()),
		}
	}
	return Result{
		Output: outputStr,
		Err:    fmt.Errorf("command failed to start: %w", err),
	}
}
