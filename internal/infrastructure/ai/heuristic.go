package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

const heuristicFallbackReply = "I could not map that to a command. Send a literal command as \"$ <command>\" or \"run <command>\"."

// phraseRule maps keywords in a request to a canned command.
type phraseRule struct {
	keywords    []string
	command     string
	explanation string
}

var phraseRules = []phraseRule{
	{keywords: []string{"disk"}, command: "df -h", explanation: "Show disk usage per filesystem."},
	{keywords: []string{"memory"}, command: "free -m", explanation: "Show memory usage in megabytes."},
	{keywords: []string{"uptime"}, command: "uptime", explanation: "Show uptime and load averages."},
	{keywords: []string{"load"}, command: "uptime", explanation: "Show uptime and load averages."},
	{keywords: []string{"list", "file"}, command: "ls -la", explanation: "List files in the working directory."},
	{keywords: []string{"process"}, command: "ps aux --sort=-%cpu | head -n 15", explanation: "Show the busiest processes."},
	{keywords: []string{"who", "logged"}, command: "who", explanation: "Show logged-in users."},
}

// heuristicProvider answers without a model: literal commands pass through
// and a handful of phrases map to read-only commands.
type heuristicProvider struct {
	model domain.ModelDefinition
}

func newHeuristicProvider(model domain.ModelDefinition) ports.Provider {
	return &heuristicProvider{model: model}
}

func (p *heuristicProvider) Name() string {
	return domain.HeuristicModelName
}

func (p *heuristicProvider) Model() domain.ModelDefinition {
	return p.model
}

func (p *heuristicProvider) Generate(_ context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	if req.Purpose == ports.PurposeFix {
		return ports.ProviderResponse{Content: heuristicFix(req.Command, req.Input)}, nil
	}

	intent, ok := heuristicIntent(req.Input)
	if !ok {
		return ports.ProviderResponse{Content: heuristicFallbackReply}, nil
	}
	data, err := json.Marshal(intent)
	if err != nil {
		return ports.ProviderResponse{}, err
	}
	return ports.ProviderResponse{Content: string(data)}, nil
}

func heuristicIntent(text string) (domain.Intent, bool) {
	text = strings.TrimSpace(text)
	if literal, ok := literalCommand(text); ok {
		return domain.Intent{Commands: []string{literal}, Explanation: "Run the command as given."}, true
	}

	lower := strings.ToLower(text)
	for _, rule := range phraseRules {
		if containsAll(lower, rule.keywords) {
			return domain.Intent{Commands: []string{rule.command}, Explanation: rule.explanation}, true
		}
	}
	return domain.Intent{}, false
}

func literalCommand(text string) (string, bool) {
	switch {
	case strings.HasPrefix(text, "$"):
		text = strings.TrimSpace(text[1:])
	case len(text) > 4 && strings.EqualFold(text[:4], "run "):
		text = strings.TrimSpace(text[4:])
	default:
		return "", false
	}
	return text, text != ""
}

func containsAll(text string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

func heuristicFix(command, errText string) string {
	lower := strings.ToLower(errText)
	trimmed := strings.TrimSpace(command)
	switch {
	case trimmed == "":
		return "NONE"
	case strings.Contains(lower, "permission denied") || strings.Contains(lower, "operation not permitted"):
		if strings.HasPrefix(trimmed, "sudo ") {
			return "NONE"
		}
		return "sudo " + trimmed
	default:
		return "NONE"
	}
}
