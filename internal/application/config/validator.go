// Package config validates a loaded configuration before it is wired.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/doeshing/shellgate/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := cfg.ValidateConsistency(); err != nil {
		return err
	}
	if err := validateExecution(cfg.Execution); err != nil {
		return err
	}
	if err := validateSafety(cfg.Safety); err != nil {
		return err
	}
	if err := validateModels(cfg.Interpreter); err != nil {
		return err
	}
	if err := validateTargets(cfg.Targets); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	return validateLogging(cfg.Logging)
}

func validateExecution(exec domain.ExecutionSettings) error {
	if exec.MaxRetries != nil && *exec.MaxRetries < 0 {
		return fmt.Errorf("execution.max_retries must be >= 0")
	}
	if exec.TimeoutSeconds < 0 {
		return fmt.Errorf("execution.timeout must be >= 0")
	}
	for field, raw := range map[string]string{
		"execution.retry_delay":  exec.RetryDelay,
		"execution.dial_timeout": exec.DialTimeout,
	} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s invalid: %w", field, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", field)
		}
	}
	return nil
}

func validateSafety(safety domain.SafetySettings) error {
	if safety.Level != "" && !domain.SafetyLevel(strings.ToLower(safety.Level)).Valid() {
		return fmt.Errorf("safety.level must be low|medium|high, got %s", safety.Level)
	}
	for _, pattern := range safety.BlockedPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("safety.blocked_patterns: %q: %w", pattern, err)
		}
	}
	for _, pattern := range safety.RequiresConfirmation {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("safety.requires_confirmation: %q: %w", pattern, err)
		}
	}
	return nil
}

func validateModels(interp domain.InterpreterSettings) error {
	for _, model := range interp.Models {
		if model.Name == "" {
			return fmt.Errorf("interpreter.models: every model needs a name")
		}
		if model.Kind() == domain.ProviderKindHeuristic {
			continue
		}
		if model.ModelID == "" {
			return fmt.Errorf("model %s: model_id must be set", model.Name)
		}
	}
	return nil
}

func validateTargets(targets []domain.RemoteTarget) error {
	for _, target := range targets {
		if target.Name == "" {
			return fmt.Errorf("targets: every target needs a name")
		}
		if target.Host == "" {
			return fmt.Errorf("target %s: host must be set", target.Name)
		}
		if target.User == "" {
			return fmt.Errorf("target %s: user must be set", target.Name)
		}
		if target.Port < 0 || target.Port > 65535 {
			return fmt.Errorf("target %s: port %d out of range", target.Name, target.Port)
		}
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	if history.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must be >= 0")
	}
	return nil
}

func validateLogging(logging domain.LoggingSettings) error {
	switch strings.ToLower(logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug|info|warn|error, got %s", logging.Level)
	}
	switch strings.ToLower(logging.Format) {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto|console|json, got %s", logging.Format)
	}
	return nil
}
