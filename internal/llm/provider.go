package llm

import (
	"context"
	"errors"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

// ErrUnsupported is returned by providers for capabilities they do not offer
var ErrUnsupported = errors.New("capability not supported by provider")

// Provider defines the generation backend contract.
// Every call carries the credential it runs under; providers hold no user state.
type Provider interface {
	// Name returns the provider name (e.g., "gemini", "openai")
	Name() string

	// ProbeCapability issues a minimal request for one capability class.
	// A nil error means the credential can use it.
	ProbeCapability(ctx context.Context, credential string, capability models.Capability) error

	// GenerateText runs a free-text or schema-constrained request
	GenerateText(ctx context.Context, credential string, request *TextRequest) (*TextResponse, error)

	// GenerateImage runs an image request and returns every payload part
	GenerateImage(ctx context.Context, credential string, request *ImageRequest) (*ImageResponse, error)

	// AnalyzeAudio sends an audio clip with an instruction and returns the raw text
	AnalyzeAudio(ctx context.Context, credential string, request *AudioRequest) (*TextResponse, error)
}

// Tier selects the text model class
type Tier string

const (
	TierStandard  Tier = "standard"
	TierReasoning Tier = "reasoning"
)

// TextRequest contains all parameters needed for text generation
type TextRequest struct {
	Facet        models.Facet
	Tier         Tier
	SystemPrompt string
	Prompt       string
	// Schema constrains the response to structured JSON; nil means free text
	Schema *Schema
	// ThinkingBudget is the reasoning token budget, 0 leaves the model default
	ThinkingBudget int32
}

// Usage holds token counts reported by the backend
type Usage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// TextResponse contains the raw text returned by the backend
type TextResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// ImageRequest contains an image instruction and its output parameters
type ImageRequest struct {
	Prompt string
	// Pro routes the request to the high resolution model
	Pro         bool
	AspectRatio string
	// ImageSize is the resolution tier ("1K", "2K", "4K"), pro model only
	ImageSize string
}

// Part is one piece of a multimodal response
type Part struct {
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// HasData reports whether the part carries a binary payload
func (p Part) HasData() bool {
	return len(p.Data) > 0
}

// ImageResponse holds zero or more payload parts
type ImageResponse struct {
	Parts []Part `json:"parts"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// AudioRequest contains an instruction plus an inline audio attachment
type AudioRequest struct {
	Prompt   string
	MIMEType string
	Data     []byte
}
