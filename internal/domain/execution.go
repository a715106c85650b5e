package domain

import "time"

// FailureKind classifies why an execution did not succeed.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureTimeout        FailureKind = "timeout"
	FailureNonZeroExit    FailureKind = "nonzero-exit"
	FailureAuth           FailureKind = "auth-failure"
	FailureTransportError FailureKind = "transport-error"
)

// Retryable reports whether another attempt may be made after this failure.
// A timeout leaves the target in an unknown state, so it is never retried.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureNonZeroExit, FailureAuth, FailureTransportError:
		return true
	}
	return false
}

// Err maps the failure onto the sentinel errors so callers can use errors.Is.
func (k FailureKind) Err() error {
	switch k {
	case FailureTimeout:
		return ErrExecutionTimeout
	case FailureNonZeroExit:
		return ErrExecutionFailure
	case FailureAuth, FailureTransportError:
		return ErrConnectionFailure
	}
	return nil
}

// ExecutionResult reports the final attempt of one command.
type ExecutionResult struct {
	Success    bool
	Command    string
	Stdout     string
	Stderr     string
	ReturnCode int
	// Duration is wall clock across every attempt, including retry delays.
	Duration time.Duration
	// Retries counts attempts after the first; it never exceeds the configured maximum.
	Retries      int
	ErrorMessage string
	Failure      FailureKind
}

// ErrorText returns the most useful failure text: stderr when present, else the error message.
func (r ExecutionResult) ErrorText() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.ErrorMessage
}

// ExecutionOptions tunes the engine's retry loop and attempt bounds.
type ExecutionOptions struct {
	MaxRetries  int
	Timeout     time.Duration
	RetryDelay  time.Duration
	DialTimeout time.Duration
	Shell       string
}
