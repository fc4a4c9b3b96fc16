package main

import (
	"testing"

	"github.com/Conceptual-Machines/songsmith-api/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestFilterSensitiveHeaders(t *testing.T) {
	filtered := filterSensitiveHeaders(map[string]string{
		"Authorization":  "Bearer secret",
		"x-goog-api-key": "AIza...",
		"Content-Type":   "application/json",
	})

	assert.Equal(t, "[REDACTED]", filtered["Authorization"])
	assert.Equal(t, "[REDACTED]", filtered["x-goog-api-key"])
	assert.Equal(t, "application/json", filtered["Content-Type"])
}

func TestFallbackCredential(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    string
	}{
		{"gemini", "gemini", "g-key"},
		{"default", "", "g-key"},
		{"openai", "openai", "o-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Backend: tt.backend, GeminiAPIKey: "g-key", OpenAIAPIKey: "o-key"}
			assert.Equal(t, tt.want, fallbackCredential(cfg))
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.NotEmpty(t, GetVersion())
}
