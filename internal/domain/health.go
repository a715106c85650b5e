package domain

// HealthStatus indicates doctor check outcomes.
type HealthStatus string

const (
	HealthOK    HealthStatus = "ok"
	HealthWarn  HealthStatus = "warn"
	HealthError HealthStatus = "error"
)

// HealthCheck captures a single diagnostic result.
type HealthCheck struct {
	Name    string
	Status  HealthStatus
	Details string
}

// HealthReport aggregates checks.
type HealthReport struct {
	Checks []HealthCheck
}

// Failed reports whether any check ended in error.
func (r HealthReport) Failed() bool {
	for _, check := range r.Checks {
		if check.Status == HealthError {
			return true
		}
	}
	return false
}

// Count returns how many checks ended with the given status.
func (r HealthReport) Count(status HealthStatus) int {
	n := 0
	for _, check := range r.Checks {
		if check.Status == status {
			n++
		}
	}
	return n
}

// HostInfo describes the local host as seen by diagnostics.
type HostInfo struct {
	OS         string
	User       string
	WorkingDir string
	// ShellPath is the resolved execution shell, empty when it cannot be found.
	ShellPath string
	Tools     []string
}
