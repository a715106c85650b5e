// Package ports defines the interfaces between the application core and its adapters.
//
// The orchestrator depends only on these abstractions: the classifier, the
// execution engine, the interpreter and the history store are all injected, so
// tests can substitute fakes and the transport can change without touching the core.
package ports

import (
	"context"

	"github.com/doeshing/shellgate/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.shellgate/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// SafetyClassifier vets candidate commands. It never executes anything and
// returns the same verdict for the same input.
type SafetyClassifier interface {
	Classify(command string) domain.SafetyVerdict
	CheckFileOperation(path string, op domain.FileOperation) domain.SafetyVerdict
	ValidateRemoteCommand(command string, allowPrivilegeEscalation bool) domain.SafetyVerdict
	GeneratePreview(command string, snapshot domain.ContextSnapshot) string
}

// CommandExecutor runs commands against the local host or a remote target.
// Execute blocks the caller until success, final failure or timeout.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, target domain.Target) domain.ExecutionResult
	ExecuteBatch(ctx context.Context, commands []string, target domain.Target, stopOnError bool) []domain.ExecutionResult
	TestConnection(ctx context.Context, target domain.Target) (bool, string)
}

// InterpretRequest is one user message plus the context the interpreter may use.
type InterpretRequest struct {
	Message string
	Context domain.ContextSnapshot
}

// InterpretResponse carries the raw reply and, when one was found, the validated intent.
// Err is domain.ErrNoIntent or domain.ErrMalformedIntent when Intent is nil.
type InterpretResponse struct {
	Reply  string
	Intent *domain.Intent
	Err    error
}

// Interpreter turns free text into candidate commands and proposes fixes for failures.
type Interpreter interface {
	Interpret(ctx context.Context, req InterpretRequest) (InterpretResponse, error)
	// SuggestFix returns a single corrective command, or "" when none is available.
	SuggestFix(ctx context.Context, command, errText string) (string, error)
}

// ProviderFactory builds chat providers based on model definitions.
type ProviderFactory interface {
	ForModel(domain.ModelDefinition) (Provider, error)
}

// Provider sends rendered prompt messages to a chat model and returns the text reply.
type Provider interface {
	Name() string
	Model() domain.ModelDefinition
	Generate(ctx context.Context, req ProviderRequest) (ProviderResponse, error)
}

// ProviderRequest holds the rendered conversation for one call.
type ProviderRequest struct {
	Messages []domain.PromptMessage
	// Purpose distinguishes intent extraction from fix suggestion for offline providers.
	Purpose PromptPurpose
	// Input is the unrendered user text, or the error output for fix prompts.
	// Providers that do not call a model work from it directly.
	Input string
	// Command is the failed command for fix prompts.
	Command string
}

// PromptPurpose selects the prompt family.
type PromptPurpose string

const (
	PurposeIntent PromptPurpose = "intent"
	PurposeFix    PromptPurpose = "fix"
)

// ProviderResponse is the model's free-text reply.
type ProviderResponse struct {
	Content string
}

// HistoryRepository persists executed commands.
type HistoryRepository interface {
	Append(ctx context.Context, record domain.HistoryRecord) error
	Records(ctx context.Context, query domain.HistoryQuery) ([]domain.HistoryRecord, error)
	Clear(ctx context.Context) error
	Prune(ctx context.Context, retentionDays int) (int64, error)
}

// TargetRegistry resolves remote target names.
type TargetRegistry interface {
	Lookup(name string) (domain.RemoteTarget, bool)
	Names() []string
}

// MetricsRecorder counts orchestrator outcomes.
type MetricsRecorder interface {
	ObserveVerdict(domain.SafetyVerdict)
	ObserveExecution(domain.ExecutionResult)
	ObserveConfirmation(decision string)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
