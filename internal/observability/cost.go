package observability

import (
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	// Gemini flash pricing
	geminiFlashInputPrice  = 0.0003
	geminiFlashOutputPrice = 0.0025

	// Gemini pro pricing
	geminiProInputPrice  = 0.002
	geminiProOutputPrice = 0.012

	// Gemini image pricing, output counted in image tokens
	geminiImageInputPrice  = 0.0003
	geminiImageOutputPrice = 0.03

	// GPT-5.1 pricing
	gpt51InputPrice  = 0.00125
	gpt51OutputPrice = 0.01

	// GPT-4.1-mini pricing
	gpt41MiniInputPrice  = 0.0004
	gpt41MiniOutputPrice = 0.0016
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing keyed by model name
var PricingTable = map[string]ModelPricing{
	"gemini-2.5-flash":           {InputPricePer1K: geminiFlashInputPrice, OutputPricePer1K: geminiFlashOutputPrice},
	"gemini-3-flash-preview":     {InputPricePer1K: geminiFlashInputPrice, OutputPricePer1K: geminiFlashOutputPrice},
	"gemini-3-pro-preview":       {InputPricePer1K: geminiProInputPrice, OutputPricePer1K: geminiProOutputPrice},
	"gemini-2.5-flash-image":     {InputPricePer1K: geminiImageInputPrice, OutputPricePer1K: geminiImageOutputPrice},
	"gemini-3-pro-image-preview": {InputPricePer1K: geminiProInputPrice, OutputPricePer1K: geminiImageOutputPrice * 4},
	"gpt-5.1":                    {InputPricePer1K: gpt51InputPrice, OutputPricePer1K: gpt51OutputPrice},
	"gpt-4.1-mini":               {InputPricePer1K: gpt41MiniInputPrice, OutputPricePer1K: gpt41MiniOutputPrice},
}

// lookupPricing finds the pricing for a model, tolerating version suffixes
// such as "gpt-5.1-2025-11-13"
func lookupPricing(model string) (ModelPricing, bool) {
	if p, ok := PricingTable[model]; ok {
		return p, true
	}
	best := ""
	for name := range PricingTable {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelPricing{}, false
	}
	return PricingTable[best], true
}

// CalculateCost calculates the cost in USD for one backend call. Unknown
// models cost zero.
func CalculateCost(model string, usage llm.Usage) float64 {
	pricing, ok := lookupPricing(model)
	if !ok {
		return 0
	}

	inputCost := (float64(usage.InputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(usage.OutputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
