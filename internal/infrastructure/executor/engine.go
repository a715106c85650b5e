// Package executor runs commands on the local host or over SSH with a
// bounded retry loop and a wall-clock limit per attempt.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// attempt is the outcome of running a command once.
type attempt struct {
	stdout   string
	stderr   string
	exitCode int
	failure  domain.FailureKind
	message  string
}

func (a attempt) ok() bool {
	return a.failure == domain.FailureNone
}

// runner executes a single attempt. Implementations must release every
// resource they open before returning.
type runner interface {
	run(ctx context.Context, command string, target domain.Target, timeout time.Duration) attempt
	probe(ctx context.Context, target domain.Target) (bool, string)
}

// Engine implements ports.CommandExecutor.
type Engine struct {
	opts   domain.ExecutionOptions
	local  runner
	remote runner
	logger ports.Logger
}

// NewEngine builds an engine with the given options, filling unset values with defaults.
func NewEngine(opts domain.ExecutionOptions, logger ports.Logger) *Engine {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = domain.DefaultMaxRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = domain.DefaultAttemptTimeout
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = domain.DefaultRetryDelay
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = domain.DefaultDialTimeout
	}
	if opts.Shell == "" {
		opts.Shell = domain.DefaultShell
	}
	return &Engine{
		opts:   opts,
		local:  newLocalRunner(opts.Shell),
		remote: newSSHRunner(opts.DialTimeout),
		logger: logger,
	}
}

// Options returns the effective options.
func (e *Engine) Options() domain.ExecutionOptions {
	return e.opts
}

func (e *Engine) runnerFor(target domain.Target) runner {
	if target.IsLocal() {
		return e.local
	}
	return e.remote
}

// Execute runs command until it succeeds, times out, or the retry budget is
// spent. The pause between attempts is cancellable through ctx.
func (e *Engine) Execute(ctx context.Context, command string, target domain.Target) domain.ExecutionResult {
	start := time.Now()
	run := e.runnerFor(target)

	var (
		last     attempt
		attempts int
	)
	operation := func() error {
		attempts++
		last = run.run(ctx, command, target, e.opts.Timeout)
		if last.ok() {
			return nil
		}
		err := errors.New(last.message)
		if !last.failure.Retryable() {
			return backoff.Permanent(err)
		}
		if attempts <= e.opts.MaxRetries {
			e.logDebug("attempt failed, retrying", map[string]interface{}{
				"command": command,
				"target":  target.DisplayName(),
				"attempt": attempts,
				"failure": string(last.failure),
			})
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.opts.RetryDelay), uint64(e.opts.MaxRetries)),
		ctx,
	)
	err := backoff.Retry(operation, policy)

	result := domain.ExecutionResult{
		Success:      last.ok(),
		Command:      command,
		Stdout:       last.stdout,
		Stderr:       last.stderr,
		ReturnCode:   last.exitCode,
		Duration:     time.Since(start),
		Retries:      attempts - 1,
		ErrorMessage: last.message,
		Failure:      last.failure,
	}

	if err != nil && !last.ok() && ctx.Err() != nil && last.failure != domain.FailureTimeout {
		result.Failure = domain.FailureTransportError
		result.ErrorMessage = fmt.Sprintf("execution cancelled after %d attempt(s): %s", attempts, last.message)
	}

	if !result.Success {
		e.logWarn("command failed", map[string]interface{}{
			"command":  command,
			"target":   target.DisplayName(),
			"failure":  string(result.Failure),
			"retries":  result.Retries,
			"duration": result.Duration.String(),
		})
	}
	return result
}

// ExecuteBatch runs commands strictly in order. With stopOnError the first
// failure ends the batch; the results hold only attempted commands.
func (e *Engine) ExecuteBatch(ctx context.Context, commands []string, target domain.Target, stopOnError bool) []domain.ExecutionResult {
	results := make([]domain.ExecutionResult, 0, len(commands))
	for _, command := range commands {
		result := e.Execute(ctx, command, target)
		results = append(results, result)
		if !result.Success && stopOnError {
			break
		}
	}
	return results
}

// TestConnection runs a no-op on the target and reports whether it answered.
// It does not touch any execution state.
func (e *Engine) TestConnection(ctx context.Context, target domain.Target) (bool, string) {
	return e.runnerFor(target).probe(ctx, target)
}

func (e *Engine) logDebug(msg string, fields map[string]interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, fields)
	}
}

func (e *Engine) logWarn(msg string, fields map[string]interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, fields)
	}
}

var _ ports.CommandExecutor = (*Engine)(nil)
