package helpers

import (
	"sort"
	"strings"

	"github.com/doeshing/shellgate/internal/domain"
)

// CommandStatistic represents usage statistics for a command
type CommandStatistic struct {
	Command string
	Count   int
}

// HistoryStatistics summarizes a slice of history records.
type HistoryStatistics struct {
	Total            int
	Successful       int
	Retried          int
	TimedOut         int
	CommandFrequency map[string]int
	RiskCounts       map[domain.RiskLevel]int
}

// AnalyzeHistory counts outcomes, command frequency and risk levels.
func AnalyzeHistory(records []domain.HistoryRecord) HistoryStatistics {
	stats := HistoryStatistics{
		Total:            len(records),
		CommandFrequency: make(map[string]int),
		RiskCounts:       make(map[domain.RiskLevel]int),
	}
	for _, rec := range records {
		if rec.Success {
			stats.Successful++
		}
		if rec.Retries > 0 {
			stats.Retried++
		}
		if rec.Failure == domain.FailureTimeout {
			stats.TimedOut++
		}
		stats.CommandFrequency[rec.Command]++
		stats.RiskCounts[rec.RiskLevel]++
	}
	return stats
}

// CalculateTopCommands returns the top N most frequently used commands
// If limit is 0 or negative, returns all commands
func CalculateTopCommands(commandFrequency map[string]int, limit int) []CommandStatistic {
	stats := make([]CommandStatistic, 0, len(commandFrequency))
	for cmd, count := range commandFrequency {
		stats = append(stats, CommandStatistic{Command: cmd, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Command < stats[j].Command
		}
		return stats[i].Count > stats[j].Count
	})

	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// CalculateSuccessRate calculates the success rate as a percentage
func CalculateSuccessRate(successfulCount int, executedCount int) float64 {
	if executedCount == 0 {
		return 0.0
	}
	return float64(successfulCount) / float64(executedCount) * 100.0
}

var undoHints = []struct {
	prefix string
	hint   string
}{
	{"systemctl stop ", "Stopped services come back with `systemctl start <unit>`; check `systemctl status <unit>` first."},
	{"systemctl disable ", "Re-enable units with `systemctl enable <unit>`."},
	{"rm ", "Deleted files are only recoverable from backups or version control."},
	{"iptables ", "Review firewall state with `iptables -S` before changing it again."},
	{"ufw ", "Review firewall state with `ufw status verbose`."},
	{"docker rm", "Removed containers must be recreated from their image; check `docker ps -a`."},
	{"apt remove", "Removed packages can be reinstalled with `apt install <package>`."},
	{"userdel ", "Deleted accounts need `useradd` plus restoring their home directory from backup."},
}

// DeriveUndoHints suggests how to undo the riskier commands found in history.
// Returns a sorted list of unique hints
func DeriveUndoHints(records []domain.HistoryRecord) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		command := strings.ToLower(strings.TrimSpace(record.Command))
		command = strings.TrimPrefix(command, "sudo ")
		for _, h := range undoHints {
			if strings.HasPrefix(command, h.prefix) {
				seen[h.hint] = struct{}{}
			}
		}
	}

	hints := make([]string, 0, len(seen))
	for hint := range seen {
		hints = append(hints, hint)
	}
	sort.Strings(hints)
	return hints
}
