package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// maxErrorBody caps how much of a failed response is quoted back.
const maxErrorBody = 512

// httpProvider is a configuration-driven chat provider.
type httpProvider struct {
	model      domain.ModelDefinition
	kind       string
	httpClient *http.Client
}

func newHTTPProvider(model domain.ModelDefinition, kind string, client *http.Client) ports.Provider {
	return &httpProvider{model: model, kind: kind, httpClient: client}
}

func (p *httpProvider) Name() string {
	return p.kind
}

func (p *httpProvider) Model() domain.ModelDefinition {
	return p.model
}

func (p *httpProvider) Generate(ctx context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	requestBody, err := p.buildRequestBody(req.Messages)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.model.Endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := p.setAuthHeaders(httpReq); err != nil {
		return ports.ProviderResponse{}, err
	}
	for key, value := range p.model.APIFormat.ExtraHeaders {
		httpReq.Header.Set(key, value)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return ports.ProviderResponse{}, fmt.Errorf("%s returned %s: %s", p.model.Name, resp.Status, snippet)
	}

	content, err := p.parseResponse(body)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("parse response: %w", err)
	}
	return ports.ProviderResponse{Content: content}, nil
}

// buildRequestBody lays the conversation out as the APIFormat asks.
func (p *httpProvider) buildRequestBody(messages []domain.PromptMessage) ([]byte, error) {
	format := p.model.APIFormat

	request := map[string]interface{}{
		"model": p.model.ModelID,
	}
	maxTokens := p.model.MaxTokens
	if maxTokens <= 0 {
		maxTokens = domain.DefaultMaxTokens
	}
	request["max_tokens"] = maxTokens

	if format.IsSystemMessageSeparate() {
		systemPrompt, chatMessages := splitSystemMessages(messages, format)
		if systemPrompt != "" {
			request["system"] = systemPrompt
		}
		request["messages"] = chatMessages
	} else {
		chatMessages := make([]map[string]interface{}, 0, len(messages))
		for _, msg := range messages {
			chatMessages = append(chatMessages, formatMessage(msg, format))
		}
		request["messages"] = chatMessages
	}
	if p.kind == string(domain.ProviderKindOllama) {
		request["stream"] = false
	}

	return json.Marshal(request)
}

func splitSystemMessages(messages []domain.PromptMessage, format domain.APIFormat) (string, []map[string]interface{}) {
	var systemLines []string
	var chatMessages []map[string]interface{}

	for _, msg := range messages {
		if strings.EqualFold(msg.Role, "system") {
			systemLines = append(systemLines, msg.Content)
			continue
		}
		chatMessages = append(chatMessages, formatMessage(msg, format))
	}

	return strings.TrimSpace(strings.Join(systemLines, "\n")), chatMessages
}

func formatMessage(msg domain.PromptMessage, format domain.APIFormat) map[string]interface{} {
	message := map[string]interface{}{
		"role": strings.ToLower(msg.Role),
	}
	if format.IsContentWrapped() {
		message["content"] = []map[string]string{
			{"type": "text", "text": msg.Content},
		}
	} else {
		message["content"] = msg.Content
	}
	return message
}

// setAuthHeaders is a no-op for models without auth_env_var (local ollama).
func (p *httpProvider) setAuthHeaders(req *http.Request) error {
	if p.model.AuthEnvVar == "" {
		return nil
	}
	apiKey := os.Getenv(p.model.AuthEnvVar)
	if apiKey == "" {
		return fmt.Errorf("missing API key: set %s environment variable", p.model.AuthEnvVar)
	}
	format := p.model.APIFormat
	req.Header.Set(format.GetAuthHeaderName(), format.GetAuthHeaderPrefix()+apiKey)
	return nil
}

func (p *httpProvider) parseResponse(body []byte) (string, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("unmarshal JSON: %w", err)
	}

	path := p.model.APIFormat.GetResponseJSONPath()
	if p.kind == string(domain.ProviderKindOllama) && p.model.APIFormat.ResponseJSONPath == "" {
		if _, ok := response["message"]; ok {
			path = "message.content"
		}
	}
	content, err := extractJSONPath(response, path)
	if err != nil {
		return "", fmt.Errorf("extract from path '%s': %w", path, err)
	}
	return strings.TrimSpace(content), nil
}

type pathPart struct {
	index bool
	value string
}

// extractJSONPath resolves paths like "content[0].text" against decoded JSON.
func extractJSONPath(data map[string]interface{}, path string) (string, error) {
	var current interface{} = data

	for _, part := range parseJSONPath(path) {
		if part.index {
			arr, ok := current.([]interface{})
			if !ok {
				return "", fmt.Errorf("expected array at index %s", part.value)
			}
			idx, err := strconv.Atoi(part.value)
			if err != nil {
				return "", fmt.Errorf("bad index %q", part.value)
			}
			if idx < 0 || idx >= len(arr) {
				return "", fmt.Errorf("index %d out of bounds (len=%d)", idx, len(arr))
			}
			current = arr[idx]
			continue
		}
		obj, ok := current.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("expected object at '%s'", part.value)
		}
		next, found := obj[part.value]
		if !found {
			return "", fmt.Errorf("field '%s' not found", part.value)
		}
		current = next
	}

	if str, ok := current.(string); ok {
		return str, nil
	}
	return "", fmt.Errorf("final value is not a string: %T", current)
}

// parseJSONPath splits "choices[0].message.content" into field and index parts.
func parseJSONPath(path string) []pathPart {
	var (
		parts   []pathPart
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, pathPart{value: current.String()})
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			flush()
		case '[':
			flush()
			j := i + 1
			for j < len(path) && path[j] != ']' {
				j++
			}
			if j < len(path) {
				parts = append(parts, pathPart{index: true, value: path[i+1 : j]})
				i = j
			}
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return parts
}
