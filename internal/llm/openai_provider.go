package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const (
	providerNameOpenAI = "openai"

	// Array schemas are wrapped in an object under this key, since the
	// Responses API only accepts an object at the schema root
	wrappedItemsKey = "items"
	defaultSchemaID = "songsmith_output"
	maxPreviewChars = 200
)

// OpenAIModels names the OpenAI model used for each text tier
type OpenAIModels struct {
	Text      string
	Reasoning string
}

// ResponsesAPI is the part of the OpenAI client the provider calls.
// *responses.ResponseService satisfies it.
type ResponsesAPI interface {
	New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error)
}

// OpenAIClientFactory builds a Responses client for one credential
type OpenAIClientFactory func(apiKey string) ResponsesAPI

// OpenAIProvider implements the Provider interface using OpenAI's Responses API.
// It serves text only; image and audio requests return ErrUnsupported.
type OpenAIProvider struct {
	models    OpenAIModels
	newClient OpenAIClientFactory
	clients   *clientCache[ResponsesAPI]
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(m OpenAIModels) *OpenAIProvider {
	return NewOpenAIProviderWithFactory(m, newResponsesClient)
}

// NewOpenAIProviderWithFactory creates an OpenAI provider with a custom client factory
func NewOpenAIProviderWithFactory(m OpenAIModels, factory OpenAIClientFactory) *OpenAIProvider {
	return &OpenAIProvider{
		models:    m,
		newClient: factory,
		clients:   newClientCache[ResponsesAPI](maxCachedClients),
	}
}

func newResponsesClient(apiKey string) ResponsesAPI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &client.Responses
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

func (p *OpenAIProvider) client(credential string) ResponsesAPI {
	c, _ := p.clients.get(credential, func() (ResponsesAPI, error) {
		return p.newClient(credential), nil
	})
	return c
}

// Forget drops the cached client for credential
func (p *OpenAIProvider) Forget(credential string) {
	p.clients.forget(credential)
}

// ProbeCapability checks text access; image capabilities are never available here
func (p *OpenAIProvider) ProbeCapability(ctx context.Context, credential string, capability models.Capability) error {
	if capability != models.CapabilityText {
		return fmt.Errorf("openai %s probe: %w", capability, ErrUnsupported)
	}

	params := p.buildRequestParams(&TextRequest{Tier: TierStandard, Prompt: probeTextPrompt})
	start := time.Now()
	if _, err := p.client(credential).New(ctx, params); err != nil {
		log.Printf("❌ OPENAI PROBE FAILED after %v: %v", time.Since(start), err)
		return fmt.Errorf("openai probe failed: %w", err)
	}
	log.Printf("✅ OPENAI PROBE OK in %v", time.Since(start))
	return nil
}

// GenerateText implements text generation using OpenAI's Responses API
func (p *OpenAIProvider) GenerateText(ctx context.Context, credential string, request *TextRequest) (*TextResponse, error) {
	params := p.buildRequestParams(request)
	log.Printf("🎵 OPENAI GENERATION REQUEST STARTED (Model: %s, Facet: %s)", params.Model, request.Facet)

	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()

	transaction.SetTag("model", params.Model)
	transaction.SetTag("provider", providerNameOpenAI)
	transaction.SetTag("facet", string(request.Facet))

	span := transaction.StartChild("openai.api_call")
	apiStartTime := time.Now()
	resp, err := p.client(credential).New(transaction.Context(), params)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	log.Printf("⏱️  OPENAI API CALL COMPLETED in %v", apiDuration)

	text := resp.OutputText()
	if request.Schema != nil && request.Schema.Type != TypeObject {
		text = unwrapItems(text)
	}
	log.Printf("📥 OPENAI RESPONSE: output_length=%d preview=%q", len(text), truncate(text, maxPreviewChars))
	log.Printf("📊 USAGE: input=%d, output=%d, total=%d",
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)

	transaction.SetTag("success", "true")
	return &TextResponse{
		Text:  text,
		Model: params.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// GenerateImage is not offered by this provider
func (p *OpenAIProvider) GenerateImage(_ context.Context, _ string, _ *ImageRequest) (*ImageResponse, error) {
	return nil, fmt.Errorf("openai image generation: %w", ErrUnsupported)
}

// AnalyzeAudio is not offered by this provider
func (p *OpenAIProvider) AnalyzeAudio(_ context.Context, _ string, _ *AudioRequest) (*TextResponse, error) {
	return nil, fmt.Errorf("openai audio analysis: %w", ErrUnsupported)
}

// buildRequestParams converts a TextRequest to OpenAI-specific ResponseNewParams
func (p *OpenAIProvider) buildRequestParams(request *TextRequest) responses.ResponseNewParams {
	model := p.models.Text
	if request.Tier == TierReasoning {
		model = p.models.Reasoning
	}

	params := responses.ResponseNewParams{
		Model: model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(request.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if request.SystemPrompt != "" {
		params.Instructions = openai.String(request.SystemPrompt)
	}

	if request.Tier == TierReasoning {
		effort := responses.ReasoningEffortMedium
		if request.ThinkingBudget == 0 {
			effort = responses.ReasoningEffortLow
		}
		params.Reasoning = shared.ReasoningParam{Effort: effort}
	}

	if request.Schema != nil {
		schema := request.Schema
		name := schema.Name
		if name == "" {
			name = defaultSchemaID
		}
		if schema.Type != TypeObject {
			schema = Object(Field(wrappedItemsKey, schema))
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(name, schema.JSONSchema()),
		}
		log.Printf("📋 JSON SCHEMA CONFIGURED: %s", name)
	}

	return params
}

// unwrapItems returns the raw value stored under the wrapper key, or the input unchanged
func unwrapItems(text string) string {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &wrapper); err != nil {
		return text
	}
	items, ok := wrapper[wrappedItemsKey]
	if !ok {
		return text
	}
	return string(items)
}

// truncate truncates a string to maxLen characters
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
