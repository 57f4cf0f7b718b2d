package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultShellTimeout bounds every shell invocation. The timeout is the
// only cancellation backstop for a command already in flight.
const DefaultShellTimeout = 30 * time.Second

// Shell runs commands through /bin/sh with a fixed timeout.
type Shell struct {
	timeout time.Duration
}

// NewShell creates a shell runner. Non-positive timeouts fall back to
// the default.
func NewShell(timeout time.Duration) *Shell {
	if timeout <= 0 {
		timeout = DefaultShellTimeout
	}
	return &Shell{timeout: timeout}
}

// Run executes the command and combines stdout, stderr and the exit
// code into one descriptive result. It never returns an error; every
// failure mode is captured as text.
func (s *Shell) Run(ctx context.Context, command string) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{
			Text: fmt.Sprintf("Command timed out after %d seconds.", int(s.timeout.Seconds())),
			OK:   false,
		}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{Text: fmt.Sprintf("Execution error: %v", err), OK: false}
		}
	}

	var b strings.Builder
	if stdout.Len() > 0 {
		fmt.Fprintf(&b, "STDOUT:\n%s\n", stdout.String())
	}
	if stderr.Len() > 0 {
		fmt.Fprintf(&b, "STDERR:\n%s\n", stderr.String())
	}
	fmt.Fprintf(&b, "Return code: %d", exitCode)

	return Result{Text: b.String(), OK: exitCode == 0}
}
