// Package llm provides language-model clients used by the model-assisted
// intent parse and alias enrichment. The model service is an optional
// enhancement: callers must treat an unavailable or failing client as a
// "skip model pass" outcome, never as a fatal error.
package llm

import (
	"context"
)

// Client defines the interface for LLM operations.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Ensure implementations satisfy Client at compile time.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*MockClient)(nil)
)
