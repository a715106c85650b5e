package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Execution defaults
const (
	DefaultMaxRetries     = 3
	DefaultAttemptTimeout = 300 * time.Second
	DefaultRetryDelay     = time.Second
	DefaultDialTimeout    = 10 * time.Second
	DefaultShell          = "/bin/sh"
	// DefaultHTTPClientTimeout is the timeout for interpreter HTTP requests
	DefaultHTTPClientTimeout = 60 * time.Second
)

// Reply limits
const (
	// MaxReplyOutput caps stdout and stderr echoed back to the user.
	MaxReplyOutput = 500
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistorySearchLimit is the default number of search results to return
	DefaultHistorySearchLimit = 50
	// DefaultHistoryRetainDays is the default number of days to retain history
	DefaultHistoryRetainDays = 90
)

// Model configuration constants
const (
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 1024
	// HeuristicModelName selects the offline interpreter.
	HeuristicModelName = "heuristic"
)

// DefaultUser is the operator id used by the console transport.
const DefaultUser = "operator"
