package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/doeshing/shellgate/internal/domain"
)

// waitDelay bounds how long Wait keeps draining pipes held open by
// grandchildren after the shell itself was killed.
const waitDelay = 2 * time.Second

// localRunner runs commands through the host shell.
type localRunner struct {
	shell string
}

func newLocalRunner(shell string) *localRunner {
	return &localRunner{shell: shell}
}

func (r *localRunner) run(ctx context.Context, command string, _ domain.Target, timeout time.Duration) attempt {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(attemptCtx, r.shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	err := cmd.Run()
	out := attempt{stdout: stdout.String(), stderr: stderr.String()}

	switch {
	case err == nil:
		return out
	case ctx.Err() != nil:
		out.exitCode = -1
		out.failure = domain.FailureTransportError
		out.message = "execution cancelled"
		return out
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		out.exitCode = -1
		out.failure = domain.FailureTimeout
		out.message = timeoutMessage(timeout)
		return out
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.exitCode = exitErr.ExitCode()
		out.failure = domain.FailureNonZeroExit
		out.message = fmt.Sprintf("command failed with exit code %d", out.exitCode)
		return out
	}

	out.exitCode = -1
	out.failure = domain.FailureTransportError
	out.message = fmt.Sprintf("execution error: %v", err)
	return out
}

func (r *localRunner) probe(context.Context, domain.Target) (bool, string) {
	return true, "local host is always reachable"
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("command timed out after %gs", timeout.Seconds())
}
