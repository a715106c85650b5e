// Package domain holds the value types shared by the classifier, the execution
// engine and the confirmation orchestrator. It has no dependencies on adapters.
package domain

import "strings"

// ModelDefinition describes an interpreter endpoint declared in the config file.
type ModelDefinition struct {
	Name       string `yaml:"name"`
	Endpoint   string `yaml:"endpoint"`
	AuthEnvVar string `yaml:"auth_env_var"`
	ModelID    string `yaml:"model_id"`
	MaxTokens  int    `yaml:"max_tokens"`
	// SystemPrompt replaces the built-in instructions when set.
	SystemPrompt string    `yaml:"system_prompt,omitempty"`
	APIFormat    APIFormat `yaml:"api_format,omitempty"`
}

// Kind infers the provider family from the endpoint and name.
func (m ModelDefinition) Kind() ProviderKind {
	name := strings.ToLower(m.Name)
	switch {
	case m.Endpoint == "" || name == HeuristicModelName:
		return ProviderKindHeuristic
	case strings.Contains(m.Endpoint, "anthropic.com"):
		return ProviderKindAnthropic
	case strings.Contains(m.Endpoint, "openai.com"):
		return ProviderKindOpenAI
	case strings.Contains(name, "ollama"), strings.Contains(m.Endpoint, "11434"):
		return ProviderKindOllama
	default:
		return ProviderKindUnknown
	}
}

// ProviderKind names an interpreter family.
type ProviderKind string

const (
	ProviderKindAnthropic ProviderKind = "anthropic"
	ProviderKindOpenAI    ProviderKind = "openai"
	ProviderKindOllama    ProviderKind = "ollama"
	ProviderKindHeuristic ProviderKind = "heuristic"
	ProviderKindUnknown   ProviderKind = "unknown"
)

// APIFormat defines how to construct requests and parse responses for different chat APIs.
// All fields are optional; the provider kind fills in sensible defaults.
type APIFormat struct {
	AuthHeaderName   string `yaml:"auth_header_name,omitempty"`
	AuthHeaderPrefix string `yaml:"auth_header_prefix,omitempty"`
	// SystemMessageMode is "inline" (messages array) or "separate" (top-level system field).
	SystemMessageMode string `yaml:"system_message_mode,omitempty"`
	// ContentWrapper is "standard" (plain string) or "anthropic" (typed content blocks).
	ContentWrapper string `yaml:"content_wrapper,omitempty"`
	// ResponseJSONPath locates the generated text, e.g. "choices[0].message.content".
	ResponseJSONPath string            `yaml:"response_json_path,omitempty"`
	ExtraHeaders     map[string]string `yaml:"extra_headers,omitempty"`
}

// PromptMessage follows the role/content pair required by most chat APIs.
type PromptMessage struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

const (
	DefaultAuthHeaderName   = "Authorization"
	DefaultAuthHeaderPrefix = "Bearer "

	SystemMessageModeInline   = "inline"
	SystemMessageModeSeparate = "separate"

	ContentWrapperStandard  = "standard"
	ContentWrapperAnthropic = "anthropic"

	DefaultResponsePath   = "choices[0].message.content"
	AnthropicResponsePath = "content[0].text"
)

// ForKind fills unset fields with the conventions of the given provider family.
func (f APIFormat) ForKind(kind ProviderKind) APIFormat {
	if kind == ProviderKindAnthropic {
		if f.AuthHeaderName == "" {
			f.AuthHeaderName = "x-api-key"
		}
		if f.SystemMessageMode == "" {
			f.SystemMessageMode = SystemMessageModeSeparate
		}
		if f.ContentWrapper == "" {
			f.ContentWrapper = ContentWrapperAnthropic
		}
		if f.ResponseJSONPath == "" {
			f.ResponseJSONPath = AnthropicResponsePath
		}
		if _, ok := f.ExtraHeaders["anthropic-version"]; !ok {
			headers := map[string]string{"anthropic-version": "2023-06-01"}
			for k, v := range f.ExtraHeaders {
				headers[k] = v
			}
			f.ExtraHeaders = headers
		}
	}
	return f
}

// GetAuthHeaderName returns the authentication header name with default fallback.
func (f APIFormat) GetAuthHeaderName() string {
	if f.AuthHeaderName == "" {
		return DefaultAuthHeaderName
	}
	return f.AuthHeaderName
}

// GetAuthHeaderPrefix returns the authentication header prefix.
// A customized header name with no prefix means no prefix (e.g. x-api-key).
func (f APIFormat) GetAuthHeaderPrefix() string {
	if f.AuthHeaderName != "" && f.AuthHeaderPrefix == "" {
		return ""
	}
	if f.AuthHeaderPrefix == "" {
		return DefaultAuthHeaderPrefix
	}
	return f.AuthHeaderPrefix
}

// IsSystemMessageSeparate returns true if system messages go in a separate field.
func (f APIFormat) IsSystemMessageSeparate() bool {
	return f.SystemMessageMode == SystemMessageModeSeparate
}

// IsContentWrapped returns true if content should be wrapped in typed blocks.
func (f APIFormat) IsContentWrapped() bool {
	return f.ContentWrapper == ContentWrapperAnthropic
}

// GetResponseJSONPath returns the JSON path for extracting response content with default fallback.
func (f APIFormat) GetResponseJSONPath() string {
	if f.ResponseJSONPath == "" {
		return DefaultResponsePath
	}
	return f.ResponseJSONPath
}
