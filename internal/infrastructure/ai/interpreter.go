package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// Interpreter implements ports.Interpreter on top of a single provider.
type Interpreter struct {
	provider ports.Provider
	logger   ports.Logger
}

// NewInterpreter wraps provider.
func NewInterpreter(provider ports.Provider, logger ports.Logger) *Interpreter {
	return &Interpreter{provider: provider, logger: logger}
}

// Provider returns the underlying provider.
func (i *Interpreter) Provider() ports.Provider {
	return i.provider
}

// Interpret asks the provider for an intent. A reply without a usable intent
// is not an error: the response carries the raw reply and the parse error.
func (i *Interpreter) Interpret(ctx context.Context, req ports.InterpretRequest) (ports.InterpretResponse, error) {
	messages, err := renderIntentMessages(i.provider.Model(), req.Message, req.Context)
	if err != nil {
		return ports.InterpretResponse{}, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := i.provider.Generate(ctx, ports.ProviderRequest{
		Messages: messages,
		Purpose:  ports.PurposeIntent,
		Input:    req.Message,
	})
	if err != nil {
		return ports.InterpretResponse{}, fmt.Errorf("%s: %w", i.provider.Name(), err)
	}

	intent, parseErr := ParseIntent(resp.Content)
	if parseErr != nil && errors.Is(parseErr, domain.ErrMalformedIntent) && i.logger != nil {
		i.logger.Warn("interpreter returned malformed intent", map[string]interface{}{
			"provider": i.provider.Name(),
			"error":    parseErr.Error(),
		})
	}
	return ports.InterpretResponse{Reply: resp.Content, Intent: intent, Err: parseErr}, nil
}

// SuggestFix asks for one corrective command; "" means the provider had none.
func (i *Interpreter) SuggestFix(ctx context.Context, command, errText string) (string, error) {
	messages, err := renderFixMessages(command, errText)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	resp, err := i.provider.Generate(ctx, ports.ProviderRequest{
		Messages: messages,
		Purpose:  ports.PurposeFix,
		Input:    errText,
		Command:  command,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", i.provider.Name(), err)
	}
	return extractFixCommand(resp.Content), nil
}

var _ ports.Interpreter = (*Interpreter)(nil)
