package llm

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/config"
)

// ProviderFactory creates providers from configuration
type ProviderFactory struct {
	gemini GeminiModels
	openai OpenAIModels
	dflt   string
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		gemini: GeminiModels{
			Text:      cfg.TextModel,
			Reasoning: cfg.ReasoningModel,
			Audio:     cfg.AudioModel,
			Image:     cfg.ImageModel,
			ProImage:  cfg.ProImageModel,
		},
		openai: OpenAIModels{
			Text:      cfg.OpenAITextModel,
			Reasoning: cfg.OpenAIReasoningModel,
		},
		dflt: cfg.Backend,
	}
}

// Default returns the provider selected by the BACKEND setting
func (f *ProviderFactory) Default() (Provider, error) {
	return f.GetProvider(f.dflt)
}

// GetProvider returns the provider with the given name, defaulting to gemini
func (f *ProviderFactory) GetProvider(providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "", providerNameGemini:
		return NewGeminiProvider(f.gemini), nil
	case providerNameOpenAI:
		return NewOpenAIProvider(f.openai), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: gemini, openai)", providerName)
	}
}
