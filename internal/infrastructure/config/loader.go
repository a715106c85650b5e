package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/shellgate/assets"
	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/pkg/filesystem"
	"github.com/doeshing/shellgate/internal/ports"
)

// EnvConfigPath overrides the config location.
const EnvConfigPath = "SHELLGATE_CONFIG"

// FileLoader loads YAML configuration from ~/.shellgate/config.yaml (overridable via SHELLGATE_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path uses the environment or the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return domain.Config{}, fmt.Errorf("create config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
		data = assets.DefaultConfigYAML
	}

	return Parse(data)
}

// Path returns the file Load reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.AppDir(), "config.yaml")
}

// Parse decodes YAML and fills unset fields with defaults.
func Parse(data []byte) (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse config: %w", err)
	}
	return hydrateDefaults(cfg), nil
}

// Default returns the embedded default configuration.
func Default() domain.Config {
	cfg, err := Parse(assets.DefaultConfigYAML)
	if err != nil {
		return hydrateDefaults(domain.Config{})
	}
	return cfg
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.User == "" {
		cfg.User = domain.DefaultUser
	}
	if cfg.Safety.Level == "" {
		cfg.Safety.Level = string(domain.SafetyLevelMedium)
	}
	if cfg.Safety.RulesFile == "" {
		cfg.Safety.RulesFile = filepath.Join(filesystem.AppDir(), "rules.yaml")
	}
	cfg.Safety.RulesFile = filesystem.ExpandPath(cfg.Safety.RulesFile)

	if !cfg.HasModel(domain.HeuristicModelName) {
		cfg.Interpreter.Models = append(cfg.Interpreter.Models, domain.ModelDefinition{Name: domain.HeuristicModelName})
	}
	if cfg.Interpreter.DefaultModel == "" {
		cfg.Interpreter.DefaultModel = cfg.Interpreter.Models[0].Name
	}

	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(filesystem.AppDir(), "history.db")
	}
	cfg.History.Path = filesystem.ExpandPath(cfg.History.Path)
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = domain.DefaultHistoryRetainDays
	}

	for i := range cfg.Targets {
		if cfg.Targets[i].Port == 0 {
			cfg.Targets[i].Port = domain.DefaultSSHPort
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "auto"
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
