package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/pkg/logger"
	"github.com/doeshing/shellgate/internal/ports"
)

func heuristicInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	provider, err := NewFactory().ForModel(domain.ModelDefinition{Name: domain.HeuristicModelName})
	require.NoError(t, err)
	return NewInterpreter(provider, logger.Nop())
}

func TestHeuristicInterpret(t *testing.T) {
	interp := heuristicInterpreter(t)
	ctx := context.Background()

	tests := []struct {
		message string
		want    []string
	}{
		{message: "$ systemctl status nginx", want: []string{"systemctl status nginx"}},
		{message: "run tail -n 50 /var/log/syslog", want: []string{"tail -n 50 /var/log/syslog"}},
		{message: "how much disk is left?", want: []string{"df -h"}},
		{message: "show memory", want: []string{"free -m"}},
		{message: "list the files here", want: []string{"ls -la"}},
	}
	for _, tt := range tests {
		resp, err := interp.Interpret(ctx, ports.InterpretRequest{Message: tt.message})
		require.NoError(t, err, tt.message)
		require.NoError(t, resp.Err, tt.message)
		require.NotNil(t, resp.Intent, tt.message)
		assert.Equal(t, tt.want, resp.Intent.Commands, tt.message)
	}
}

func TestHeuristicInterpretWithoutMatch(t *testing.T) {
	interp := heuristicInterpreter(t)

	resp, err := interp.Interpret(context.Background(), ports.InterpretRequest{Message: "tell me a joke"})

	require.NoError(t, err)
	assert.Nil(t, resp.Intent)
	assert.True(t, errors.Is(resp.Err, domain.ErrNoIntent))
	assert.Contains(t, resp.Reply, "$ <command>")
}

func TestHeuristicSuggestFix(t *testing.T) {
	interp := heuristicInterpreter(t)
	ctx := context.Background()

	fix, err := interp.SuggestFix(ctx, "cat /etc/shadow", "cat: /etc/shadow: Permission denied")
	require.NoError(t, err)
	assert.Equal(t, "sudo cat /etc/shadow", fix)

	fix, err = interp.SuggestFix(ctx, "sudo cat /etc/shadow", "Permission denied")
	require.NoError(t, err)
	assert.Empty(t, fix, "already privileged")

	fix, err = interp.SuggestFix(ctx, "nginx -t", "sh: nginx: command not found")
	require.NoError(t, err)
	assert.Empty(t, fix)
}

func TestHTTPProviderAnthropicFormat(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"{\"commands\":[\"uptime\"]}"}]}`)
	}))
	defer srv.Close()
	t.Setenv("SHELLGATE_TEST_KEY", "test-key")

	model := domain.ModelDefinition{
		Name:       "claude",
		Endpoint:   srv.URL + "/anthropic.com/v1/messages",
		AuthEnvVar: "SHELLGATE_TEST_KEY",
		ModelID:    "claude-test",
	}
	provider, err := NewFactoryWithClient(srv.Client()).ForModel(model)
	require.NoError(t, err)
	interp := NewInterpreter(provider, logger.Nop())

	resp, err := interp.Interpret(context.Background(), ports.InterpretRequest{
		Message: "is it up?",
		Context: domain.ContextSnapshot{TargetName: "web1"},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, []string{"uptime"}, resp.Intent.Commands)

	assert.Equal(t, "claude-test", body["model"])
	assert.Contains(t, body["system"], `remote host "web1"`)
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1, "system prompt travels separately")
	first := messages[0].(map[string]interface{})
	assert.IsType(t, []interface{}{}, first["content"], "content is wrapped in blocks")
}

func TestHTTPProviderOpenAIFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) && assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.True(t, strings.Contains(body.Messages[1].Content, "Permission denied"))
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"sudo ls /root"}}]}`)
	}))
	defer srv.Close()
	t.Setenv("SHELLGATE_TEST_KEY", "sk-test")

	provider, err := NewFactoryWithClient(srv.Client()).ForModel(domain.ModelDefinition{
		Name:       "gpt",
		Endpoint:   srv.URL + "/v1/chat/completions",
		AuthEnvVar: "SHELLGATE_TEST_KEY",
		ModelID:    "gpt-test",
	})
	require.NoError(t, err)

	fix, err := NewInterpreter(provider, logger.Nop()).SuggestFix(context.Background(), "ls /root", "ls: /root: Permission denied")
	require.NoError(t, err)
	assert.Equal(t, "sudo ls /root", fix)
}

func TestHTTPProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	model := domain.ModelDefinition{Name: "gpt", Endpoint: srv.URL, ModelID: "gpt-test", AuthEnvVar: "SHELLGATE_TEST_MISSING_KEY"}
	provider, err := NewFactoryWithClient(srv.Client()).ForModel(model)
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), ports.ProviderRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHELLGATE_TEST_MISSING_KEY")

	t.Setenv("SHELLGATE_TEST_MISSING_KEY", "k")
	_, err = provider.Generate(context.Background(), ports.ProviderRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestExtractJSONPath(t *testing.T) {
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"choices":[{"message":{"content":"hi"}}],"n":1}`), &data))

	got, err := extractJSONPath(data, "choices[0].message.content")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = extractJSONPath(data, "choices[3].message.content")
	assert.Error(t, err)
	_, err = extractJSONPath(data, "n")
	assert.Error(t, err)
}
