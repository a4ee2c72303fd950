package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{
			name:     "plain object",
			response: `{"query_type": "comparison"}`,
			want:     `{"query_type": "comparison"}`,
		},
		{
			name:     "fenced in markdown",
			response: "```json\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
		{
			name:     "surrounded by prose",
			response: `Here is the intent you asked for: {"a": 1} hope that helps!`,
			want:     `{"a": 1}`,
		},
		{
			name:     "think tags stripped",
			response: "<think>let me reason about the join</think>\n{\"a\": 1}",
			want:     `{"a": 1}`,
		},
		{
			name:     "nested braces in strings",
			response: `{"reasoning": "filters use {column, value} shape", "confidence": 0.9}`,
			want:     `{"reasoning": "filters use {column, value} shape", "confidence": 0.9}`,
		},
		{
			name:     "array response",
			response: `[{"a": 1}, {"a": 2}]`,
			want:     `[{"a": 1}, {"a": 2}]`,
		},
		{
			name:     "no json at all",
			response: "sorry, I cannot help with that",
			wantErr:  true,
		},
		{
			name:     "unbalanced braces",
			response: `{"a": 1`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type intentShape struct {
		QueryType  string  `json:"query_type"`
		Confidence float64 `json:"confidence"`
	}

	parsed, err := ParseJSONResponse[intentShape]("```json\n{\"query_type\": \"comparison\", \"confidence\": 0.8}\n```")
	require.NoError(t, err)
	assert.Equal(t, "comparison", parsed.QueryType)
	assert.Equal(t, 0.8, parsed.Confidence)

	_, err = ParseJSONResponse[intentShape]("not json")
	require.Error(t, err)
}
