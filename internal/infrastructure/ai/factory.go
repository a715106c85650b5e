// Package ai turns chat messages into candidate shell commands.
//
// Remote models are reached through one configuration-driven HTTP provider;
// the model's APIFormat decides headers, message layout and where the reply
// text lives. The heuristic provider answers offline.
package ai

import (
	"net/http"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// Factory creates providers based on model definitions.
// It shares a single HTTP client across all providers.
type Factory struct {
	httpClient *http.Client
}

// NewFactory creates a new provider factory with a configured HTTP client.
func NewFactory() *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: domain.DefaultHTTPClientTimeout},
	}
}

// NewFactoryWithClient uses client for every HTTP provider.
func NewFactoryWithClient(client *http.Client) *Factory {
	return &Factory{httpClient: client}
}

// ForModel returns the heuristic provider for models without an endpoint and
// an HTTP provider otherwise.
func (f *Factory) ForModel(model domain.ModelDefinition) (ports.Provider, error) {
	kind := model.Kind()
	if kind == domain.ProviderKindHeuristic {
		return newHeuristicProvider(model), nil
	}
	model.APIFormat = model.APIFormat.ForKind(kind)
	return newHTTPProvider(model, string(kind), f.httpClient), nil
}

var _ ports.ProviderFactory = (*Factory)(nil)
