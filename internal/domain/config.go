package domain

// Config mirrors ~/.shellgate/config.yaml.
type Config struct {
	ConfigFormatVersion string              `yaml:"config_format_version"`
	User                string              `yaml:"user"`
	Execution           ExecutionSettings   `yaml:"execution"`
	Safety              SafetySettings      `yaml:"safety"`
	Interpreter         InterpreterSettings `yaml:"interpreter"`
	History             HistorySettings     `yaml:"history"`
	Targets             []RemoteTarget      `yaml:"targets"`
	Logging             LoggingSettings     `yaml:"logging"`
	Metrics             MetricsSettings     `yaml:"metrics"`
}

// ExecutionSettings controls how commands run.
type ExecutionSettings struct {
	Shell string `yaml:"shell"`
	// MaxRetries is a pointer so an explicit 0 survives hydration.
	MaxRetries     *int   `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout"`
	RetryDelay     string `yaml:"retry_delay"`
	DialTimeout    string `yaml:"dial_timeout"`
}

// SafetySettings defines classifier policy and its extensions.
type SafetySettings struct {
	Level                string   `yaml:"level"`
	ConfirmAll           bool     `yaml:"confirm_all"`
	BlockedPatterns      []string `yaml:"blocked_patterns"`
	RequiresConfirmation []string `yaml:"requires_confirmation"`
	RulesFile            string   `yaml:"rules_file"`
}

// InterpreterSettings selects the natural-language model.
type InterpreterSettings struct {
	DefaultModel string            `yaml:"default_model"`
	Models       []ModelDefinition `yaml:"models"`
}

// HistorySettings configures the command log.
type HistorySettings struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// LoggingSettings configures the structured logger.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsSettings configures the optional prometheus endpoint.
type MetricsSettings struct {
	Addr string `yaml:"addr"`
}
