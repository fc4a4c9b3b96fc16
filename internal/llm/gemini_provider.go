package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"

	probeTextPrompt  = "hi"
	probeImagePrompt = "a dot"
)

// GeminiModels names the Gemini model used for each request class
type GeminiModels struct {
	Text      string
	Reasoning string
	Audio     string
	Image     string
	ProImage  string
}

// ContentGenerator is the part of the genai client the provider calls.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// GeminiClientFactory builds a content generator for one credential
type GeminiClientFactory func(ctx context.Context, apiKey string) (ContentGenerator, error)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	models    GeminiModels
	newClient GeminiClientFactory
	clients   *clientCache[ContentGenerator]
}

// NewGeminiProvider creates a new Gemini provider backed by the genai SDK
func NewGeminiProvider(m GeminiModels) *GeminiProvider {
	return NewGeminiProviderWithFactory(m, newGenaiClient)
}

// NewGeminiProviderWithFactory creates a Gemini provider with a custom client factory
func NewGeminiProviderWithFactory(m GeminiModels, factory GeminiClientFactory) *GeminiProvider {
	return &GeminiProvider{
		models:    m,
		newClient: factory,
		clients:   newClientCache[ContentGenerator](maxCachedClients),
	}
}

func newGenaiClient(ctx context.Context, apiKey string) (ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client.Models, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

func (p *GeminiProvider) client(ctx context.Context, credential string) (ContentGenerator, error) {
	return p.clients.get(credential, func() (ContentGenerator, error) {
		return p.newClient(ctx, credential)
	})
}

// Forget drops the cached client for credential
func (p *GeminiProvider) Forget(credential string) {
	p.clients.forget(credential)
}

// ProbeCapability issues a minimal request against the model behind a capability
func (p *GeminiProvider) ProbeCapability(ctx context.Context, credential string, capability models.Capability) error {
	var model, prompt string
	switch capability {
	case models.CapabilityText:
		model, prompt = p.models.Text, probeTextPrompt
	case models.CapabilityImage:
		model, prompt = p.models.Image, probeImagePrompt
	case models.CapabilityProImage:
		model, prompt = p.models.ProImage, probeImagePrompt
	default:
		return fmt.Errorf("unknown capability %q: %w", capability, ErrUnsupported)
	}

	client, err := p.client(ctx, credential)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = client.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		log.Printf("❌ GEMINI PROBE FAILED (capability=%s, model=%s) after %v: %v", capability, model, time.Since(start), err)
		return fmt.Errorf("gemini probe failed: %w", err)
	}
	log.Printf("✅ GEMINI PROBE OK (capability=%s, model=%s) in %v", capability, model, time.Since(start))
	return nil
}

// GenerateText runs a text request, constraining the output when a schema is declared
func (p *GeminiProvider) GenerateText(ctx context.Context, credential string, request *TextRequest) (*TextResponse, error) {
	model := p.models.Text
	if request.Tier == TierReasoning {
		model = p.models.Reasoning
	}

	result, err := p.call(ctx, credential, model, string(request.Facet), genai.Text(request.Prompt), p.buildTextConfig(request))
	if err != nil {
		return nil, err
	}

	text := responseText(result)
	log.Printf("📥 GEMINI RESPONSE: facet=%s output_length=%d", request.Facet, len(text))

	return &TextResponse{
		Text:  text,
		Model: model,
		Usage: usageFromGemini(result.UsageMetadata),
	}, nil
}

// GenerateImage runs an image request and returns every part of the first candidate
func (p *GeminiProvider) GenerateImage(ctx context.Context, credential string, request *ImageRequest) (*ImageResponse, error) {
	model := p.models.Image
	imageConfig := &genai.ImageConfig{AspectRatio: request.AspectRatio}
	if request.Pro {
		model = p.models.ProImage
		imageConfig.ImageSize = request.ImageSize
	}

	config := &genai.GenerateContentConfig{ImageConfig: imageConfig}
	result, err := p.call(ctx, credential, model, string(models.FacetCoverArt), genai.Text(request.Prompt), config)
	if err != nil {
		return nil, err
	}

	var parts []Part
	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			out := Part{Text: part.Text}
			if part.InlineData != nil {
				out.MIMEType = part.InlineData.MIMEType
				out.Data = part.InlineData.Data
			}
			parts = append(parts, out)
		}
	}
	log.Printf("🖼️  GEMINI IMAGE RESPONSE: model=%s parts=%d", model, len(parts))

	return &ImageResponse{
		Parts: parts,
		Model: model,
		Usage: usageFromGemini(result.UsageMetadata),
	}, nil
}

// AnalyzeAudio sends the clip inline followed by the instruction
func (p *GeminiProvider) AnalyzeAudio(ctx context.Context, credential string, request *AudioRequest) (*TextResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(request.Data, request.MIMEType),
			genai.NewPartFromText(request.Prompt),
		}, genai.RoleUser),
	}

	result, err := p.call(ctx, credential, p.models.Audio, string(models.FacetTempo), contents, nil)
	if err != nil {
		return nil, err
	}

	return &TextResponse{
		Text:  responseText(result),
		Model: p.models.Audio,
		Usage: usageFromGemini(result.UsageMetadata),
	}, nil
}

// call wraps one GenerateContent round trip in a Sentry transaction
func (p *GeminiProvider) call(
	ctx context.Context,
	credential, model, facet string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	log.Printf("🎵 GEMINI GENERATION REQUEST STARTED (Model: %s, Facet: %s)", model, facet)

	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()

	transaction.SetTag("model", model)
	transaction.SetTag("provider", providerNameGemini)
	transaction.SetTag("facet", facet)

	client, err := p.client(ctx, credential)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	span := transaction.StartChild("gemini.api_call")
	apiStartTime := time.Now()
	result, err := client.GenerateContent(transaction.Context(), model, contents, config)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if result == nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini request failed: empty response")
	}

	log.Printf("⏱️  GEMINI API CALL COMPLETED in %v", apiDuration)
	if result.UsageMetadata != nil {
		log.Printf("📊 GEMINI USAGE: input=%d, output=%d, total=%d",
			result.UsageMetadata.PromptTokenCount,
			result.UsageMetadata.CandidatesTokenCount,
			result.UsageMetadata.TotalTokenCount)
	}

	transaction.SetTag("success", "true")
	return result, nil
}

func (p *GeminiProvider) buildTextConfig(request *TextRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if request.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemPrompt, genai.RoleUser)
	}
	if request.Schema != nil {
		config.ResponseMIMEType = mimeTypeJSON
		config.ResponseSchema = convertSchemaToGemini(request.Schema)
	}
	if request.ThinkingBudget > 0 {
		budget := request.ThinkingBudget
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	return config
}

// convertSchemaToGemini maps a schema declaration onto genai's schema type
func convertSchemaToGemini(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Type: geminiType(s.Type)}
	switch s.Type {
	case TypeObject:
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = convertSchemaToGemini(prop)
		}
		out.Required = append([]string(nil), s.Required...)
		out.PropertyOrdering = append([]string(nil), s.PropertyOrder...)
	case TypeArray:
		out.Items = convertSchemaToGemini(s.Items)
		if s.MinItems > 0 {
			v := int64(s.MinItems)
			out.MinItems = &v
		}
		if s.MaxItems > 0 {
			v := int64(s.MaxItems)
			out.MaxItems = &v
		}
	}
	return out
}

func geminiType(t SchemaType) genai.Type {
	switch t {
	case TypeString:
		return genai.TypeString
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeBoolean:
		return genai.TypeBoolean
	case TypeArray:
		return genai.TypeArray
	case TypeObject:
		return genai.TypeObject
	}
	return genai.TypeUnspecified
}

// responseText joins the non-thought text parts of the first candidate
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func usageFromGemini(meta *genai.GenerateContentResponseUsageMetadata) Usage {
	if meta == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  int64(meta.PromptTokenCount),
		OutputTokens: int64(meta.CandidatesTokenCount),
		TotalTokens:  int64(meta.TotalTokenCount),
	}
}
