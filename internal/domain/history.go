package domain

import "time"

// HistoryRecord is one executed command as written to the history store.
// TargetName is empty for the local host.
type HistoryRecord struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	UserID     string        `json:"user_id"`
	Command    string        `json:"command"`
	TargetName string        `json:"target,omitempty"`
	Success    bool          `json:"success"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	ExitCode   int           `json:"exit_code"`
	Retries    int           `json:"retries"`
	Failure    FailureKind   `json:"failure,omitempty"`
	RiskLevel  RiskLevel     `json:"risk_level"`
	Duration   time.Duration `json:"duration_ns"`
}

// NewHistoryRecord derives a record from an execution result.
func NewHistoryRecord(userID string, target Target, risk RiskLevel, result ExecutionResult) HistoryRecord {
	return HistoryRecord{
		Timestamp:  time.Now().UTC(),
		UserID:     userID,
		Command:    result.Command,
		TargetName: target.Name(),
		Success:    result.Success,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   result.ReturnCode,
		Retries:    result.Retries,
		Failure:    result.Failure,
		RiskLevel:  risk,
		Duration:   result.Duration,
	}
}

// HistoryQuery filters Records.
type HistoryQuery struct {
	UserID string
	Search string
	Limit  int
}
