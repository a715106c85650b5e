package domain

import "time"

// SessionState is where a user sits in the confirmation state machine.
type SessionState string

const (
	StateIdle                 SessionState = "idle"
	StateAwaitingConfirmation SessionState = "awaiting-confirmation"
)

// PendingOrigin records why a confirmation was requested.
type PendingOrigin string

const (
	OriginBatch         PendingOrigin = "batch"
	OriginFixSuggestion PendingOrigin = "fix-suggestion"
)

// ContextSnapshot is the minimal context carried with a request or a pending batch.
type ContextSnapshot struct {
	UserID      string
	TargetName  string
	LastCommand string
	LastError   string
}

// PendingConfirmation is a batch that waits for a user's yes or no.
// At most one exists per user.
type PendingConfirmation struct {
	ID        string
	UserID    string
	Commands  []string
	Context   ContextSnapshot
	Target    Target
	CreatedAt time.Time
	Origin    PendingOrigin
}

// Intent is the structured output of the natural-language interpreter.
type Intent struct {
	Commands             []string `json:"commands"`
	Explanation          string   `json:"explanation"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
}

// InboundMessage is one message from the transport.
type InboundMessage struct {
	UserID string
	Text   string
}

// Reply is what the orchestrator hands back to the transport.
type Reply struct {
	Text    string
	State   SessionState
	Pending *PendingConfirmation
	Results []ExecutionResult
}
