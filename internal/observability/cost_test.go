package observability

import (
	"context"
	"testing"

	"github.com/Conceptual-Machines/songsmith-api/internal/config"
	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage llm.Usage
		want  float64
	}{
		{
			name:  "exact model",
			model: "gpt-5.1",
			usage: llm.Usage{InputTokens: 1000, OutputTokens: 1000},
			want:  gpt51InputPrice + gpt51OutputPrice,
		},
		{
			name:  "versioned model uses longest prefix",
			model: "gemini-2.5-flash-image-001",
			usage: llm.Usage{InputTokens: 2000},
			want:  2 * geminiImageInputPrice,
		},
		{
			name:  "unknown model is free",
			model: "mystery",
			usage: llm.Usage{InputTokens: 5000, OutputTokens: 5000},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateCost(tt.model, tt.usage), 1e-12)
		})
	}
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.001250", FormatCost(0.00125))
}

func TestInitializeLangfuse_Disabled(t *testing.T) {
	c := InitializeLangfuse(context.Background(), &config.Config{LangfuseEnabled: false})
	assert.False(t, c.IsEnabled())

	// No-op when disabled
	c.LogGeneration(GenerationRecord{Facet: "lyrics"})
	c.Flush(context.Background())

	var nilClient *LangfuseClient
	assert.False(t, nilClient.IsEnabled())
}
