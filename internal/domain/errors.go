package domain

import "errors"

var (
	// ErrSafetyBlocked marks a command stopped by a critical rule or critical path.
	ErrSafetyBlocked = errors.New("command blocked by safety policy")
	// ErrConfirmationRequired is a control-flow pause rather than a failure.
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrExecutionTimeout     = errors.New("execution timed out")
	ErrExecutionFailure     = errors.New("execution failed")
	ErrConnectionFailure    = errors.New("connection failed")
	// ErrNoIntent means the interpreter reply carried no structured block at all.
	ErrNoIntent = errors.New("no executable intent")
	// ErrMalformedIntent means a structured block was present but failed validation.
	ErrMalformedIntent = errors.New("malformed intent")
	ErrUnknownTarget   = errors.New("unknown target")
	ErrEmptyCommand    = errors.New("empty command")
)
