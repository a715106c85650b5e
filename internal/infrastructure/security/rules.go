package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/shellgate/assets"
	"github.com/doeshing/shellgate/internal/pkg/filesystem"
)

// PatternRule is one regex entry in the critical or high-risk sections.
type PatternRule struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message"`
}

// EffectRule maps a regex onto a human-readable side effect for previews.
type EffectRule struct {
	Pattern string `yaml:"pattern"`
	Effect  string `yaml:"effect"`
}

// RuleTable is the data-driven rule set. Each section is ordered.
type RuleTable struct {
	Critical             []PatternRule `yaml:"critical"`
	HighRisk             []PatternRule `yaml:"high_risk"`
	Safe                 []string      `yaml:"safe"`
	ConfirmationCommands []string      `yaml:"confirmation_commands"`
	CriticalPaths        []string      `yaml:"critical_paths"`
	ConfigDirs           []string      `yaml:"config_dirs"`
	PrivilegeEscalation  []string      `yaml:"privilege_escalation"`
	Effects              []EffectRule  `yaml:"effects"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules RuleTable `yaml:"rules"`
}

// DefaultRuleTable parses the embedded rule table.
func DefaultRuleTable() (RuleTable, error) {
	return parseRuleTable(assets.DefaultRulesYAML)
}

// LoadRuleTable returns the embedded defaults with every non-empty section of
// the file at path layered on top. A missing file yields the defaults.
func LoadRuleTable(path string) (RuleTable, error) {
	table, err := DefaultRuleTable()
	if err != nil {
		return RuleTable{}, fmt.Errorf("embedded rules: %w", err)
	}
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(filesystem.ExpandPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return table, nil
		}
		return RuleTable{}, fmt.Errorf("read rules file: %w", err)
	}

	override, err := parseRuleTable(data)
	if err != nil {
		return RuleTable{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return table.merge(override), nil
}

func parseRuleTable(data []byte) (RuleTable, error) {
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RuleTable{}, err
	}
	return file.Rules, nil
}

// merge replaces each section of t that other defines.
func (t RuleTable) merge(other RuleTable) RuleTable {
	if len(other.Critical) > 0 {
		t.Critical = other.Critical
	}
	if len(other.HighRisk) > 0 {
		t.HighRisk = other.HighRisk
	}
	if len(other.Safe) > 0 {
		t.Safe = other.Safe
	}
	if len(other.ConfirmationCommands) > 0 {
		t.ConfirmationCommands = other.ConfirmationCommands
	}
	if len(other.CriticalPaths) > 0 {
		t.CriticalPaths = other.CriticalPaths
	}
	if len(other.ConfigDirs) > 0 {
		t.ConfigDirs = other.ConfigDirs
	}
	if len(other.PrivilegeEscalation) > 0 {
		t.PrivilegeEscalation = other.PrivilegeEscalation
	}
	if len(other.Effects) > 0 {
		t.Effects = other.Effects
	}
	return t
}

type compiledRule struct {
	re   *regexp.Regexp
	rule PatternRule
}

type compiledEffect struct {
	re     *regexp.Regexp
	effect string
}

func compileRules(rules []PatternRule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		re, err := compilePattern(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{re: re, rule: rule})
	}
	return compiled, nil
}

func compileEffects(rules []EffectRule) ([]compiledEffect, error) {
	compiled := make([]compiledEffect, 0, len(rules))
	for _, rule := range rules {
		re, err := compilePattern(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledEffect{re: re, effect: rule.Effect})
	}
	return compiled, nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
