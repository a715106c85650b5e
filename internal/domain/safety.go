package domain

import "strings"

// RiskLevel is the ordered severity attached to a safety verdict.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank orders risk levels so callers can compare them (low < medium < high < critical).
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// MoreSevere reports whether r ranks above other.
func (r RiskLevel) MoreSevere(other RiskLevel) bool {
	return r.Rank() > other.Rank()
}

// ParseRiskLevel maps free-form text onto a RiskLevel, defaulting to low.
func ParseRiskLevel(value string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	case "critical":
		return RiskCritical
	default:
		return RiskLow
	}
}

// SafetyLevel is the policy strictness used once no explicit rule matched.
type SafetyLevel string

const (
	SafetyLevelLow    SafetyLevel = "low"
	SafetyLevelMedium SafetyLevel = "medium"
	SafetyLevelHigh   SafetyLevel = "high"
)

// Valid reports whether the level is one of low, medium or high.
func (s SafetyLevel) Valid() bool {
	switch s {
	case SafetyLevelLow, SafetyLevelMedium, SafetyLevelHigh:
		return true
	}
	return false
}

// SafetyVerdict is the outcome of classifying one candidate command.
type SafetyVerdict struct {
	IsSafe               bool
	RequiresConfirmation bool
	Reason               string
	RiskLevel            RiskLevel
	// MatchedRule holds the pattern or allowlist entry that decided the verdict, if any.
	MatchedRule string
}

// Blocked is the inverse of IsSafe, kept for readability at call sites.
func (v SafetyVerdict) Blocked() bool {
	return !v.IsSafe
}

// FileOperation enumerates the file access kinds checked against critical paths.
type FileOperation string

const (
	FileRead   FileOperation = "read"
	FileWrite  FileOperation = "write"
	FileDelete FileOperation = "delete"
)

// ParseFileOperation validates a user supplied operation name.
func ParseFileOperation(value string) (FileOperation, bool) {
	switch op := FileOperation(strings.ToLower(strings.TrimSpace(value))); op {
	case FileRead, FileWrite, FileDelete:
		return op, true
	}
	return "", false
}
