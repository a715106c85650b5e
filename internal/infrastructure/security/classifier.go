// Package security classifies candidate shell commands against an ordered,
// data-driven rule table. Classification works on raw text only: regex and
// substring matching plus leading-token extraction, never a shell AST.
package security

import (
	"fmt"
	"path"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// Policy binds the rule table and caller extensions to a classifier.
type Policy struct {
	Level domain.SafetyLevel
	// BlockedPatterns are appended to the critical section.
	BlockedPatterns []string
	// RequiresConfirmation are appended to the confirmation-command tokens.
	RequiresConfirmation []string
	// RulesFile overrides sections of the embedded table. Missing is fine.
	RulesFile string
}

// PolicyFromConfig extracts the classifier policy from configuration.
func PolicyFromConfig(cfg domain.Config) Policy {
	return Policy{
		Level:                cfg.GetSafetyLevel(),
		BlockedPatterns:      cfg.Safety.BlockedPatterns,
		RequiresConfirmation: cfg.Safety.RequiresConfirmation,
		RulesFile:            cfg.Safety.RulesFile,
	}
}

// Classifier implements ports.SafetyClassifier. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	level         domain.SafetyLevel
	critical      []compiledRule
	highRisk      []compiledRule
	safe          []string
	confirmTokens []string
	criticalPaths []string
	configDirs    []string
	escalation    []string
	effects       []compiledEffect
}

// RuleStats summarizes the loaded table.
type RuleStats struct {
	Critical int
	HighRisk int
	Safe     int
	Effects  int
}

// NewClassifier loads the rule table for the policy and compiles it.
func NewClassifier(policy Policy) (*Classifier, error) {
	table, err := LoadRuleTable(policy.RulesFile)
	if err != nil {
		return nil, err
	}
	return NewClassifierWithTable(table, policy)
}

// NewClassifierWithTable compiles an explicit table. A pattern that fails to
// compile is a constructor error.
func NewClassifierWithTable(table RuleTable, policy Policy) (*Classifier, error) {
	level := policy.Level
	if !level.Valid() {
		level = domain.SafetyLevelMedium
	}

	criticalRules := append([]PatternRule(nil), table.Critical...)
	for _, pattern := range policy.BlockedPatterns {
		criticalRules = append(criticalRules, PatternRule{Pattern: pattern, Message: "Matches a blocked pattern"})
	}

	critical, err := compileRules(criticalRules)
	if err != nil {
		return nil, fmt.Errorf("critical rules: %w", err)
	}
	highRisk, err := compileRules(table.HighRisk)
	if err != nil {
		return nil, fmt.Errorf("high-risk rules: %w", err)
	}
	effects, err := compileEffects(table.Effects)
	if err != nil {
		return nil, fmt.Errorf("effect rules: %w", err)
	}

	confirm := append([]string(nil), table.ConfirmationCommands...)
	confirm = append(confirm, policy.RequiresConfirmation...)

	return &Classifier{
		level:         level,
		critical:      critical,
		highRisk:      highRisk,
		safe:          table.Safe,
		confirmTokens: confirm,
		criticalPaths: table.CriticalPaths,
		configDirs:    table.ConfigDirs,
		escalation:    table.PrivilegeEscalation,
		effects:       effects,
	}, nil
}

// Level returns the policy level in force.
func (c *Classifier) Level() domain.SafetyLevel {
	return c.level
}

// Stats reports how many rules are loaded per section.
func (c *Classifier) Stats() RuleStats {
	return RuleStats{
		Critical: len(c.critical),
		HighRisk: len(c.highRisk),
		Safe:     len(c.safe),
		Effects:  len(c.effects),
	}
}

// Classify evaluates a command in a fixed order: empty, critical, high-risk,
// safe allowlist, policy level fallback, default allow. The first stage that
// decides wins.
func (c *Classifier) Classify(command string) domain.SafetyVerdict {
	command = strings.TrimSpace(command)

	if command == "" {
		return domain.SafetyVerdict{
			IsSafe:    false,
			Reason:    "Empty command",
			RiskLevel: domain.RiskLow,
		}
	}

	for _, rule := range c.critical {
		if rule.re.MatchString(command) {
			return domain.SafetyVerdict{
				IsSafe:      false,
				Reason:      "Blocked: " + rule.rule.Message,
				RiskLevel:   domain.RiskCritical,
				MatchedRule: rule.rule.Pattern,
			}
		}
	}

	for _, rule := range c.highRisk {
		if rule.re.MatchString(command) {
			return domain.SafetyVerdict{
				IsSafe:               true,
				RequiresConfirmation: true,
				Reason:               "High risk operation: " + rule.rule.Message,
				RiskLevel:            domain.RiskHigh,
				MatchedRule:          rule.rule.Pattern,
			}
		}
	}

	if entry, ok := c.matchSafe(command); ok {
		return domain.SafetyVerdict{
			IsSafe:      true,
			Reason:      "Read-only safe command",
			RiskLevel:   domain.RiskLow,
			MatchedRule: entry,
		}
	}

	switch c.level {
	case domain.SafetyLevelHigh:
		return domain.SafetyVerdict{
			IsSafe:               true,
			RequiresConfirmation: true,
			Reason:               "High safety mode: confirmation required",
			RiskLevel:            domain.RiskMedium,
		}
	case domain.SafetyLevelMedium:
		for _, token := range c.confirmTokens {
			if token != "" && strings.Contains(command, token) {
				return domain.SafetyVerdict{
					IsSafe:               true,
					RequiresConfirmation: true,
					Reason:               "Command requires confirmation",
					RiskLevel:            domain.RiskMedium,
					MatchedRule:          token,
				}
			}
		}
	}

	return domain.SafetyVerdict{
		IsSafe:    true,
		Reason:    "Command passed safety checks",
		RiskLevel: domain.RiskLow,
	}
}

// matchSafe accepts an exact allowlist entry or the entry followed by a space.
func (c *Classifier) matchSafe(command string) (string, bool) {
	for _, entry := range c.safe {
		if command == entry || strings.HasPrefix(command, entry+" ") {
			return entry, true
		}
	}
	return "", false
}

// CheckFileOperation blocks writes and deletes on critical paths and asks for
// confirmation before writing under a configuration directory.
func (c *Classifier) CheckFileOperation(p string, op domain.FileOperation) domain.SafetyVerdict {
	p = strings.TrimSpace(p)
	if p != "" {
		p = path.Clean(p)
	}

	if op == domain.FileWrite || op == domain.FileDelete {
		for _, critical := range c.criticalPaths {
			if underPath(p, critical) {
				return domain.SafetyVerdict{
					IsSafe:      false,
					Reason:      fmt.Sprintf("Blocked: Cannot %s critical system path: %s", op, p),
					RiskLevel:   domain.RiskCritical,
					MatchedRule: critical,
				}
			}
		}
	}

	if op == domain.FileWrite {
		for _, dir := range c.configDirs {
			if strings.HasPrefix(p, strings.TrimSuffix(dir, "/")+"/") {
				return domain.SafetyVerdict{
					IsSafe:               true,
					RequiresConfirmation: true,
					Reason:               "Modifying system configuration: " + p,
					RiskLevel:            domain.RiskHigh,
					MatchedRule:          dir,
				}
			}
		}
	}

	return domain.SafetyVerdict{
		IsSafe:    true,
		Reason:    "File operation is safe",
		RiskLevel: domain.RiskLow,
	}
}

// underPath matches p against root exactly or as a descendant. The filesystem
// root itself only matches exactly.
func underPath(p, root string) bool {
	if p == root {
		return true
	}
	return root != "/" && strings.HasPrefix(p, root+"/")
}

// ValidateRemoteCommand applies a target's privilege policy before the normal
// classification: an escalated command is refused unless the target allows it,
// and even then it always needs confirmation. Every segment of a compound
// command is checked, not only the first.
func (c *Classifier) ValidateRemoteCommand(command string, allowPrivilegeEscalation bool) domain.SafetyVerdict {
	if token := c.escalationToken(command); token != "" {
		if !allowPrivilegeEscalation {
			return domain.SafetyVerdict{
				IsSafe:      false,
				Reason:      fmt.Sprintf("%s commands not allowed on this target", token),
				RiskLevel:   domain.RiskHigh,
				MatchedRule: token,
			}
		}
		verdict := c.Classify(command)
		if verdict.Blocked() {
			return verdict
		}
		return domain.SafetyVerdict{
			IsSafe:               true,
			RequiresConfirmation: true,
			Reason:               fmt.Sprintf("%s command requires confirmation", token),
			RiskLevel:            domain.RiskHigh,
			MatchedRule:          token,
		}
	}
	return c.Classify(command)
}

// escalationToken returns the first escalation program that starts any
// segment of command, or "".
func (c *Classifier) escalationToken(command string) string {
	for _, segment := range commandSegments(command) {
		if token := leadingToken(segment); c.isEscalation(token) {
			return token
		}
	}
	return ""
}

func (c *Classifier) isEscalation(token string) bool {
	if token == "" {
		return false
	}
	token = path.Base(token)
	for _, name := range c.escalation {
		if token == name {
			return true
		}
	}
	return false
}

var segmentSeparators = strings.NewReplacer(
	"&&", "\n", "||", "\n", ";", "\n", "|", "\n", "&", "\n",
	"$(", "\n", "`", "\n", "(", "\n", ")", "\n", "{", "\n", "}", "\n",
)

// commandSegments splits command on shell control operators. Quoting is
// ignored, so a separator inside quotes yields an extra segment; that only
// ever makes the check stricter.
func commandSegments(command string) []string {
	var segments []string
	for _, part := range strings.Split(segmentSeparators.Replace(command), "\n") {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// leadingToken returns the program word of a simple command, skipping
// VAR=value assignments and an env prefix with its flags. Unbalanced quotes
// fall back to whitespace splitting.
func leadingToken(command string) string {
	words, err := shellquote.Split(command)
	if err != nil {
		words = strings.Fields(command)
	}
	afterEnv := false
	for _, word := range words {
		switch {
		case isAssignment(word):
		case path.Base(word) == "env" && !afterEnv:
			afterEnv = true
		case afterEnv && strings.HasPrefix(word, "-"):
		default:
			return word
		}
	}
	return ""
}

func isAssignment(word string) bool {
	eq := strings.IndexByte(word, '=')
	if eq <= 0 {
		return false
	}
	for i, r := range word[:eq] {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

var _ ports.SafetyClassifier = (*Classifier)(nil)
