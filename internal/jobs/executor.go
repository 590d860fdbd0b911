package jobs

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Output is what a finished process left behind.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs a command to completion. A non-zero exit is reported through
// Output.ExitCode with a nil error; the error is reserved for processes that
// could not be started or were stopped by ctx.
type Executor interface {
	Execute(ctx context.Context, dir, name string, args ...string) (Output, error)
}

// CommandExecutor runs commands with os/exec.
type CommandExecutor struct {
	// WaitDelay bounds how long pipes are drained after the process is
	// killed. Zero means two seconds.
	WaitDelay time.Duration
}

func (e CommandExecutor) Execute(ctx context.Context, dir, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 2 * time.Second
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		out.ExitCode = -1
		return out, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	if err != nil {
		out.ExitCode = -1
		return out, err
	}
	return out, nil
}
