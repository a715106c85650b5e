package ai

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/doeshing/shellgate/internal/domain"
)

const intentSystemPrompt = `You are shellgate, a cautious operations assistant that proposes shell commands.
Answer with exactly one JSON object and nothing else:
{"commands": ["<command>", ...], "explanation": "<one sentence>", "requires_confirmation": <true|false>}
Rules:
- Use standard POSIX tools available on a typical Linux server.
- Prefer read-only commands; set requires_confirmation to true for anything that changes state.
- Never combine unrelated steps into one command; list them in order instead.
- If the request is a question that needs no command, reply in plain text without JSON.
{{if .Target}}Commands will run on the remote host "{{.Target}}".{{else}}Commands will run on the local host.{{end}}
{{if .LastCommand}}The previous command was: {{.LastCommand}}{{end}}
{{if .LastError}}It failed with: {{.LastError}}{{end}}`

const fixSystemPrompt = `You repair failed shell commands.
Reply with a single corrected command on one line, with no explanation and no code fence.
If no safe correction exists, reply with NONE.`

const fixUserPrompt = `Command: {{.Command}}
Error: {{.Error}}`

type templateData struct {
	Message     string
	Target      string
	LastCommand string
	LastError   string
	Command     string
	Error       string
}

// renderIntentMessages builds the prompt asking for a JSON intent.
// A model's system_prompt replaces the built-in instructions.
func renderIntentMessages(model domain.ModelDefinition, message string, snapshot domain.ContextSnapshot) ([]domain.PromptMessage, error) {
	data := templateData{
		Message:     strings.TrimSpace(message),
		Target:      snapshot.TargetName,
		LastCommand: snapshot.LastCommand,
		LastError:   snapshot.LastError,
	}
	system := intentSystemPrompt
	if model.SystemPrompt != "" {
		system = model.SystemPrompt
	}
	systemContent, err := executeTemplate(system, data)
	if err != nil {
		return nil, err
	}
	return []domain.PromptMessage{
		{Role: "system", Content: systemContent},
		{Role: "user", Content: data.Message},
	}, nil
}

// renderFixMessages builds the prompt asking for one corrective command.
func renderFixMessages(command, errText string) ([]domain.PromptMessage, error) {
	user, err := executeTemplate(fixUserPrompt, templateData{Command: command, Error: strings.TrimSpace(errText)})
	if err != nil {
		return nil, err
	}
	return []domain.PromptMessage{
		{Role: "system", Content: fixSystemPrompt},
		{Role: "user", Content: user},
	}, nil
}

func executeTemplate(raw string, data templateData) (string, error) {
	tmpl, err := template.New("prompt").Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
