package security

import (
	"strings"

	"github.com/doeshing/shellgate/internal/domain"
)

const noEffects = "No obvious side effects detected; review the command carefully before proceeding"

// GeneratePreview renders a dry-run description of a command's likely side
// effects. Nothing is executed; the effects come from keyword rules.
func (c *Classifier) GeneratePreview(command string, snapshot domain.ContextSnapshot) string {
	var b strings.Builder
	b.WriteString("DRY-RUN preview\n")
	b.WriteString("  Command: ")
	b.WriteString(strings.TrimSpace(command))
	b.WriteString("\n")
	if snapshot.TargetName != "" {
		b.WriteString("  Target: ")
		b.WriteString(snapshot.TargetName)
		b.WriteString("\n")
	}

	b.WriteString("\nEffects:\n")
	for _, effect := range c.Effects(command) {
		b.WriteString("  - ")
		b.WriteString(effect)
		b.WriteString("\n")
	}

	b.WriteString("\nProceed with execution? (yes/no)")
	return b.String()
}

// Effects lists the effect rules matching command, in table order.
func (c *Classifier) Effects(command string) []string {
	var effects []string
	for _, rule := range c.effects {
		if rule.re.MatchString(command) {
			effects = append(effects, rule.effect)
		}
	}
	if len(effects) == 0 {
		return []string{noEffects}
	}
	return effects
}
