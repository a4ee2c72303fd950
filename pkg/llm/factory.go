package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/config"
)

// NewFromConfig creates a Client for the configured provider.
// Returns nil (and no error) when no model service is configured or it is
// disabled; callers treat a nil client as "skip the model pass".
func NewFromConfig(cfg *config.AIConfig, logger *zap.Logger) (Client, error) {
	if !cfg.IsAvailable() {
		return nil, nil
	}

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(&AnthropicConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, logger)
	case "openai", "":
		return NewOpenAIClient(&OpenAIConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
