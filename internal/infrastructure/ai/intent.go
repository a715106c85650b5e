package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/doeshing/shellgate/internal/domain"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseIntent extracts the JSON intent from a model reply. It returns
// domain.ErrNoIntent when the reply carries no JSON object and
// domain.ErrMalformedIntent when the object does not describe commands.
func ParseIntent(text string) (*domain.Intent, error) {
	raw := locateJSON(text)
	if raw == "" {
		return nil, domain.ErrNoIntent
	}

	var envelope struct {
		Commands             json.RawMessage `json:"commands"`
		Explanation          string          `json:"explanation"`
		RequiresConfirmation bool            `json:"requires_confirmation"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedIntent, err)
	}
	if len(bytes.TrimSpace(envelope.Commands)) == 0 || string(bytes.TrimSpace(envelope.Commands)) == "null" {
		return nil, fmt.Errorf("%w: missing commands", domain.ErrMalformedIntent)
	}

	var items []interface{}
	if err := json.Unmarshal(envelope.Commands, &items); err != nil {
		return nil, fmt.Errorf("%w: commands must be an array", domain.ErrMalformedIntent)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: commands is empty", domain.ErrMalformedIntent)
	}

	commands := make([]string, 0, len(items))
	for i, item := range items {
		command, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: command %d is not a string", domain.ErrMalformedIntent, i+1)
		}
		command = strings.TrimSpace(command)
		if command == "" {
			return nil, fmt.Errorf("%w: command %d is empty", domain.ErrMalformedIntent, i+1)
		}
		commands = append(commands, command)
	}

	return &domain.Intent{
		Commands:             commands,
		Explanation:          strings.TrimSpace(envelope.Explanation),
		RequiresConfirmation: envelope.RequiresConfirmation,
	}, nil
}

// locateJSON prefers a fenced block and falls back to the outermost braces.
func locateJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// extractFixCommand reduces a fix reply to one command line; "" means none.
func extractFixCommand(content string) string {
	command := extractCodeBlock(content)
	if command == "" {
		command = extractCommandLine(content)
	}
	if command == "" {
		command = strings.TrimSpace(content)
	}
	if i := strings.IndexByte(command, '\n'); i >= 0 {
		command = command[:i]
	}
	command = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(command), "$ "))
	command = strings.Trim(command, "`")
	if strings.EqualFold(command, "none") {
		return ""
	}
	return command
}

// extractCodeBlock returns the body of the first markdown code fence.
func extractCodeBlock(content string) string {
	start := strings.Index(content, "```")
	if start < 0 {
		return ""
	}
	suffix := content[start+3:]
	end := strings.Index(suffix, "```")
	if end == -1 {
		return ""
	}

	lines := strings.Split(suffix[:end], "\n")
	if len(lines) > 1 {
		switch strings.TrimSpace(lines[0]) {
		case "", "sh", "bash", "shell", "console":
			lines = lines[1:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractCommandLine looks for a line prefixed with "command:".
func extractCommandLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), "command:") {
			return strings.TrimSpace(line[len("command:"):])
		}
	}
	return ""
}
