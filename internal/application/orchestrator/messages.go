package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/shellgate/internal/domain"
)

const helpText = `Send a request in plain language, or a literal command as "$ <command>".
Built-in commands:
  help             show this message
  status           show the active target and any pending confirmation
  targets          list configured targets
  switch <target>  run commands on <target> (use "switch local" to go back)
When asked to confirm, answer yes or no.`

const confirmPrompt = "Proceed with execution? (yes/no)"

// truncate caps s at limit runes.
func truncate(s string, limit int) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "\n... (truncated)"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

func blockedMessage(lines []string) string {
	var b strings.Builder
	b.WriteString("Request rejected: blocked by safety policy. Nothing was executed.\n")
	for _, line := range lines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// batchPreview lists a multi-command batch with the reasons confirmation is needed.
func batchPreview(commands []string, verdicts []domain.SafetyVerdict, target domain.Target, explanation string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d commands pending confirmation on %s:\n", len(commands), target.DisplayName())
	for i, command := range commands {
		fmt.Fprintf(&b, "  %d. %s", i+1, command)
		if verdicts[i].RequiresConfirmation {
			fmt.Fprintf(&b, "  [%s] %s", verdicts[i].RiskLevel, verdicts[i].Reason)
		}
		b.WriteByte('\n')
	}
	if explanation != "" {
		fmt.Fprintf(&b, "Why: %s\n", explanation)
	}
	b.WriteString(confirmPrompt)
	return b.String()
}

func singlePreview(preview, explanation string) string {
	if explanation == "" {
		return preview
	}
	return fmt.Sprintf("%s\n\nWhy: %s", strings.TrimSpace(preview), explanation)
}

func successMessage(results []domain.ExecutionResult, target domain.Target) string {
	if len(results) == 1 {
		r := results[0]
		output := truncate(r.Stdout, domain.MaxReplyOutput)
		if strings.TrimSpace(output) == "" {
			output = "(no output)"
		}
		return fmt.Sprintf("Command succeeded on %s in %s%s\n%s",
			target.DisplayName(), formatDuration(r.Duration), retryNote(r.Retries), output)
	}

	var total time.Duration
	for _, r := range results {
		total += r.Duration
	}
	return fmt.Sprintf("All %d commands succeeded on %s in %s.", len(results), target.DisplayName(), formatDuration(total))
}

func failureMessage(results []domain.ExecutionResult, total int, target domain.Target) string {
	failed := results[len(results)-1]
	var b strings.Builder
	if total > 1 {
		fmt.Fprintf(&b, "Step %d of %d failed on %s: %s\n", len(results), total, target.DisplayName(), failed.Command)
	} else {
		fmt.Fprintf(&b, "Command failed on %s: %s\n", target.DisplayName(), failed.Command)
	}
	b.WriteString(failed.ErrorMessage)
	b.WriteString(retryNote(failed.Retries))
	if stderr := strings.TrimSpace(failed.Stderr); stderr != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(truncate(stderr, domain.MaxReplyOutput))
	}
	if total > len(results) {
		fmt.Fprintf(&b, "\nRemaining %d command(s) were not run.", total-len(results))
	}
	return b.String()
}

func fixOffer(fix string) string {
	return fmt.Sprintf("Suggested fix: %s\nTry this? (yes/no)", fix)
}

func retryNote(retries int) string {
	switch retries {
	case 0:
		return ""
	case 1:
		return " (after 1 retry)"
	default:
		return fmt.Sprintf(" (after %d retries)", retries)
	}
}

func pendingReminder(p *domain.PendingConfirmation) string {
	what := p.Commands[0]
	if len(p.Commands) > 1 {
		what = fmt.Sprintf("%d commands starting with %s", len(p.Commands), p.Commands[0])
	}
	return fmt.Sprintf("A confirmation is pending for: %s\nPlease answer yes or no.", what)
}
