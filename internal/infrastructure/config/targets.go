package config

import (
	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// TargetRegistry resolves target names against the loaded configuration.
type TargetRegistry struct {
	cfg domain.Config
}

// NewTargetRegistry wraps cfg's targets.
func NewTargetRegistry(cfg domain.Config) *TargetRegistry {
	return &TargetRegistry{cfg: cfg}
}

// Lookup finds a target by name, ignoring case.
func (r *TargetRegistry) Lookup(name string) (domain.RemoteTarget, bool) {
	return r.cfg.FindTarget(name)
}

// Names lists targets in configuration order.
func (r *TargetRegistry) Names() []string {
	return r.cfg.TargetNames()
}

var _ ports.TargetRegistry = (*TargetRegistry)(nil)
