package domain

import (
	"fmt"
	"strings"
	"time"
)

// GetDefaultModel retrieves the default interpreter model.
// Returns an error if the default model is not found.
func (c *Config) GetDefaultModel() (ModelDefinition, error) {
	if c.Interpreter.DefaultModel == "" {
		return ModelDefinition{}, fmt.Errorf("no default model configured")
	}

	if model, ok := c.FindModelByName(c.Interpreter.DefaultModel); ok {
		return model, nil
	}

	return ModelDefinition{}, fmt.Errorf("default model %s not found in configuration", c.Interpreter.DefaultModel)
}

// FindModelByName searches for a model by its name.
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Interpreter.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// HasModel checks if a model with the given name exists in the configuration
func (c *Config) HasModel(name string) bool {
	_, exists := c.FindModelByName(name)
	return exists
}

// FindTarget looks a remote target up by name, case-insensitively.
func (c *Config) FindTarget(name string) (RemoteTarget, bool) {
	for _, target := range c.Targets {
		if strings.EqualFold(target.Name, name) {
			return target, true
		}
	}
	return RemoteTarget{}, false
}

// TargetNames lists configured remote targets in file order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for _, target := range c.Targets {
		names = append(names, target.Name)
	}
	return names
}

// GetSafetyLevel returns the policy level, medium when unset or unknown.
func (c *Config) GetSafetyLevel() SafetyLevel {
	level := SafetyLevel(strings.ToLower(c.Safety.Level))
	if !level.Valid() {
		return SafetyLevelMedium
	}
	return level
}

// ShouldConfirmAll reports whether every batch requires confirmation.
func (c *Config) ShouldConfirmAll() bool {
	return c.Safety.ConfirmAll
}

// GetMaxRetries returns the retry budget per command.
func (c *Config) GetMaxRetries() int {
	if c.Execution.MaxRetries == nil || *c.Execution.MaxRetries < 0 {
		return DefaultMaxRetries
	}
	return *c.Execution.MaxRetries
}

// GetAttemptTimeout returns the wall-clock bound for a single attempt.
func (c *Config) GetAttemptTimeout() time.Duration {
	if c.Execution.TimeoutSeconds <= 0 {
		return DefaultAttemptTimeout
	}
	return time.Duration(c.Execution.TimeoutSeconds) * time.Second
}

// GetRetryDelay returns the pause between attempts.
func (c *Config) GetRetryDelay() time.Duration {
	return parseDurationOr(c.Execution.RetryDelay, DefaultRetryDelay)
}

// GetDialTimeout bounds SSH connection setup.
func (c *Config) GetDialTimeout() time.Duration {
	return parseDurationOr(c.Execution.DialTimeout, DefaultDialTimeout)
}

// GetExecutionShell returns the configured shell for command execution
// Returns the default shell if not configured
func (c *Config) GetExecutionShell() string {
	if c.Execution.Shell == "" {
		return DefaultShell
	}
	return c.Execution.Shell
}

// ExecutionOptions bundles the execution settings for the engine.
func (c *Config) ExecutionOptions() ExecutionOptions {
	return ExecutionOptions{
		MaxRetries:  c.GetMaxRetries(),
		Timeout:     c.GetAttemptTimeout(),
		RetryDelay:  c.GetRetryDelay(),
		DialTimeout: c.GetDialTimeout(),
		Shell:       c.GetExecutionShell(),
	}
}

// GetHistoryRetentionDays returns the number of days to retain history
func (c *Config) GetHistoryRetentionDays() int {
	if c.History.RetentionDays <= 0 {
		return DefaultHistoryRetainDays
	}
	return c.History.RetentionDays
}

// GetUser returns the operator id used by the console transport.
func (c *Config) GetUser() string {
	if c.User == "" {
		return DefaultUser
	}
	return c.User
}

// ValidateConsistency checks the internal consistency of the configuration.
func (c *Config) ValidateConsistency() error {
	if c.Interpreter.DefaultModel != "" && !c.HasModel(c.Interpreter.DefaultModel) {
		return fmt.Errorf("default model %s does not exist in models list", c.Interpreter.DefaultModel)
	}

	seen := make(map[string]struct{}, len(c.Targets))
	for _, target := range c.Targets {
		key := strings.ToLower(target.Name)
		if key == LocalTargetName {
			return fmt.Errorf("target name %q is reserved", target.Name)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate target %s", target.Name)
		}
		seen[key] = struct{}{}
	}

	return nil
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
