package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	appconfig "github.com/doeshing/shellgate/internal/application/config"
	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// HostProbe reports local execution facts.
type HostProbe interface {
	Collect(ctx context.Context) domain.HostInfo
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Classifier     ports.SafetyClassifier
	History        ports.HistoryRepository
	Executor       ports.CommandExecutor
	Host           HostProbe
	// TargetTimeout bounds each target connectivity check. Zero means the dial timeout alone.
	TargetTimeout time.Duration
}

// Run executes checks and returns a report. The error is only set when the
// configuration itself cannot be loaded.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format %s, safety level %s", cfg.ConfigFormatVersion, cfg.GetSafetyLevel())))
	}

	checks = append(checks, s.rulesCheck())

	if s.Host != nil {
		checks = append(checks, hostCheck(s.Host.Collect(ctx), cfg.GetExecutionShell()))
	}

	if s.History != nil {
		if _, err := s.History.Records(ctx, domain.HistoryQuery{Limit: 1}); err != nil {
			checks = append(checks, fail("History store", err.Error()))
		} else {
			checks = append(checks, ok("History store", "reachable"))
		}
	} else {
		checks = append(checks, warn("History store", "not configured"))
	}

	checks = append(checks, apiCheck(cfg))
	checks = append(checks, s.targetChecks(ctx, cfg.Targets)...)

	return domain.HealthReport{Checks: checks}, nil
}

// rulesCheck confirms the loaded table still blocks the canonical destructive command.
func (s *Service) rulesCheck() domain.HealthCheck {
	if s.Classifier == nil {
		return warn("Safety rules", "classifier not initialized")
	}
	if v := s.Classifier.Classify("rm -rf /"); !v.Blocked() {
		return fail("Safety rules", "rm -rf / is not blocked by the loaded rule table")
	}
	if v := s.Classifier.Classify("ls"); !v.IsSafe || v.RequiresConfirmation {
		return warn("Safety rules", "ls is not treated as a safe read-only command")
	}
	return ok("Safety rules", "rule table loaded")
}

func hostCheck(info domain.HostInfo, shell string) domain.HealthCheck {
	if info.ShellPath == "" {
		return fail("Local shell", fmt.Sprintf("%s not found", shell))
	}
	tools := "none"
	if len(info.Tools) > 0 {
		tools = strings.Join(info.Tools, ", ")
	}
	return ok("Local shell", fmt.Sprintf("%s on %s (tools: %s)", info.ShellPath, info.OS, tools))
}

func apiCheck(cfg domain.Config) domain.HealthCheck {
	model, err := cfg.GetDefaultModel()
	if err != nil {
		return fail("Interpreter", err.Error())
	}
	if model.Kind() == domain.ProviderKindHeuristic {
		return ok("Interpreter", "offline heuristic interpreter")
	}
	if model.AuthEnvVar != "" && os.Getenv(model.AuthEnvVar) == "" {
		return warn("Interpreter", fmt.Sprintf("%s: %s missing", model.Name, model.AuthEnvVar))
	}
	return ok("Interpreter", fmt.Sprintf("%s (%s)", model.Name, model.Kind()))
}

func (s *Service) targetChecks(ctx context.Context, targets []domain.RemoteTarget) []domain.HealthCheck {
	if s.Executor == nil || len(targets) == 0 {
		return nil
	}
	checks := make([]domain.HealthCheck, 0, len(targets))
	for _, remote := range targets {
		name := "Target " + remote.Name
		tctx := ctx
		var cancel context.CancelFunc
		if s.TargetTimeout > 0 {
			tctx, cancel = context.WithTimeout(ctx, s.TargetTimeout)
		}
		connected, detail := s.Executor.TestConnection(tctx, domain.RemoteTargetOf(remote))
		if cancel != nil {
			cancel()
		}
		if connected {
			checks = append(checks, ok(name, detail))
		} else {
			checks = append(checks, warn(name, detail))
		}
	}
	return checks
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
