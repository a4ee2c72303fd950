package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconcile-labs/query-engine/pkg/llm"
)

func TestEnrichAliasesLearnsSuggestions(t *testing.T) {
	g := buildTestGraph(t)
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
		return `{"RBP.Products": ["catalog", "product list"], "OPS.Excel": ["planning sheet"]}`, nil
	}

	g.EnrichAliases(context.Background(), client)

	require.Equal(t, 1, client.GenerateResponseCalls)
	for _, alias := range []string{"catalog", "product list"} {
		canonical, ok := g.aliases.Lookup(alias)
		require.True(t, ok, "alias %q not learned", alias)
		assert.Equal(t, "RBP.Products", canonical)
	}

	canonical, ok := g.aliases.Lookup("planning sheet")
	require.True(t, ok)
	assert.Equal(t, "OPS.Excel", canonical)
}

func TestEnrichAliasesSkipsUnknownTables(t *testing.T) {
	g := buildTestGraph(t)
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
		return `{"GHOST.Table": ["phantom"]}`, nil
	}

	g.EnrichAliases(context.Background(), client)

	_, ok := g.aliases.Lookup("phantom")
	assert.False(t, ok)
}

func TestEnrichAliasesToleratesFailures(t *testing.T) {
	g := buildTestGraph(t)

	t.Run("nil client", func(t *testing.T) {
		g.EnrichAliases(context.Background(), nil)
	})

	t.Run("model error", func(t *testing.T) {
		client := llm.NewMockClient()
		client.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return "", errors.New("connection refused")
		}
		g.EnrichAliases(context.Background(), client)
	})

	t.Run("malformed response", func(t *testing.T) {
		client := llm.NewMockClient()
		client.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return "no json here", nil
		}
		g.EnrichAliases(context.Background(), client)
	})

	// Existing aliases survive every failure mode.
	canonical, ok := g.aliases.Lookup("products")
	require.True(t, ok)
	assert.Equal(t, "RBP.Products", canonical)
}

func TestEnrichAliasesNeverOverridesExisting(t *testing.T) {
	g := buildTestGraph(t)
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
		return `{"MASTER.Master": ["products"]}`, nil
	}

	g.EnrichAliases(context.Background(), client)

	canonical, ok := g.aliases.Lookup("products")
	require.True(t, ok)
	assert.Equal(t, "RBP.Products", canonical)
}
