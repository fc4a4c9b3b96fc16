package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type geminiCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// fakeGenerator records calls and replies through generateFunc
type fakeGenerator struct {
	mu           sync.Mutex
	calls        []geminiCall
	generateFunc func(model string) (*genai.GenerateContentResponse, error)
}

func (f *fakeGenerator) GenerateContent(
	_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, geminiCall{model: model, contents: contents, config: config})
	f.mu.Unlock()
	if f.generateFunc != nil {
		return f.generateFunc(model)
	}
	return textResponse("ok"), nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
			TotalTokenCount:      15,
		},
	}
}

var testGeminiModels = GeminiModels{
	Text:      "text-model",
	Reasoning: "reasoning-model",
	Audio:     "audio-model",
	Image:     "image-model",
	ProImage:  "pro-image-model",
}

func newTestGemini(gen *fakeGenerator) (*GeminiProvider, *[]string) {
	var keys []string
	p := NewGeminiProviderWithFactory(testGeminiModels, func(_ context.Context, apiKey string) (ContentGenerator, error) {
		keys = append(keys, apiKey)
		return gen, nil
	})
	return p, &keys
}

func TestGeminiProvider_Name(t *testing.T) {
	provider := NewGeminiProvider(testGeminiModels)
	assert.Equal(t, "gemini", provider.Name())
}

func TestGeminiProvider_ProbeCapability(t *testing.T) {
	tests := []struct {
		capability models.Capability
		wantModel  string
		wantPrompt string
	}{
		{capability: models.CapabilityText, wantModel: "text-model", wantPrompt: "hi"},
		{capability: models.CapabilityImage, wantModel: "image-model", wantPrompt: "a dot"},
		{capability: models.CapabilityProImage, wantModel: "pro-image-model", wantPrompt: "a dot"},
	}

	for _, tt := range tests {
		t.Run(string(tt.capability), func(t *testing.T) {
			gen := &fakeGenerator{}
			provider, _ := newTestGemini(gen)

			require.NoError(t, provider.ProbeCapability(context.Background(), "key", tt.capability))
			require.Len(t, gen.calls, 1)
			assert.Equal(t, tt.wantModel, gen.calls[0].model)
			assert.Equal(t, tt.wantPrompt, gen.calls[0].contents[0].Parts[0].Text)
		})
	}
}

func TestGeminiProvider_ProbeFailureIsWrapped(t *testing.T) {
	denied := errors.New("permission denied")
	gen := &fakeGenerator{generateFunc: func(string) (*genai.GenerateContentResponse, error) {
		return nil, denied
	}}
	provider, _ := newTestGemini(gen)

	err := provider.ProbeCapability(context.Background(), "key", models.CapabilityProImage)
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)

	err = provider.ProbeCapability(context.Background(), "key", models.Capability("video"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGeminiProvider_ReusesClientPerCredential(t *testing.T) {
	gen := &fakeGenerator{}
	provider, keys := newTestGemini(gen)
	ctx := context.Background()

	require.NoError(t, provider.ProbeCapability(ctx, "a", models.CapabilityText))
	require.NoError(t, provider.ProbeCapability(ctx, "a", models.CapabilityImage))
	require.NoError(t, provider.ProbeCapability(ctx, "b", models.CapabilityText))

	assert.Equal(t, []string{"a", "b"}, *keys)
}

func TestGeminiProvider_ClientCacheIsBounded(t *testing.T) {
	gen := &fakeGenerator{generateFunc: func(string) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("API key not valid")
	}}
	provider, keys := newTestGemini(gen)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		assert.Error(t, provider.ProbeCapability(ctx, fmt.Sprintf("key-%d", i), models.CapabilityText))
	}
	assert.Equal(t, maxCachedClients, provider.clients.len())
	assert.Len(t, *keys, 100)

	provider.Forget("key-99")
	assert.Equal(t, maxCachedClients-1, provider.clients.len())
}

func TestGeminiProvider_ForgetRebuildsClient(t *testing.T) {
	provider, keys := newTestGemini(&fakeGenerator{})
	ctx := context.Background()

	require.NoError(t, provider.ProbeCapability(ctx, "a", models.CapabilityText))
	provider.Forget("a")
	require.NoError(t, provider.ProbeCapability(ctx, "a", models.CapabilityText))

	assert.Equal(t, []string{"a", "a"}, *keys)
}

func TestGeminiProvider_GenerateText(t *testing.T) {
	gen := &fakeGenerator{generateFunc: func(string) (*genai.GenerateContentResponse, error) {
		return textResponse(`["A","B"]`), nil
	}}
	provider, _ := newTestGemini(gen)

	resp, err := provider.GenerateText(context.Background(), "key", &TextRequest{
		Facet:          models.FacetTitles,
		Tier:           TierReasoning,
		SystemPrompt:   "be brief",
		Prompt:         "five titles",
		Schema:         ArrayOf(String(), 5, 5),
		ThinkingBudget: 2048,
	})
	require.NoError(t, err)

	assert.Equal(t, `["A","B"]`, resp.Text)
	assert.Equal(t, "reasoning-model", resp.Model)
	assert.Equal(t, Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, resp.Usage)

	require.Len(t, gen.calls, 1)
	cfg := gen.calls[0].config
	require.NotNil(t, cfg)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.Equal(t, genai.TypeArray, cfg.ResponseSchema.Type)
	assert.Equal(t, int64(5), *cfg.ResponseSchema.MinItems)
	require.NotNil(t, cfg.ThinkingConfig)
	assert.Equal(t, int32(2048), *cfg.ThinkingConfig.ThinkingBudget)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be brief", cfg.SystemInstruction.Parts[0].Text)
}

func TestGeminiProvider_GenerateTextFreeForm(t *testing.T) {
	gen := &fakeGenerator{}
	provider, _ := newTestGemini(gen)

	resp, err := provider.GenerateText(context.Background(), "key", &TextRequest{Prompt: "advice"})
	require.NoError(t, err)
	assert.Equal(t, "text-model", resp.Model)

	cfg := gen.calls[0].config
	assert.Empty(t, cfg.ResponseMIMEType)
	assert.Nil(t, cfg.ResponseSchema)
	assert.Nil(t, cfg.ThinkingConfig)
	assert.Nil(t, cfg.SystemInstruction)
}

func TestGeminiProvider_GenerateImage(t *testing.T) {
	gen := &fakeGenerator{generateFunc: func(string) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "here you go"},
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
				}},
			}},
		}, nil
	}}
	provider, _ := newTestGemini(gen)

	tests := []struct {
		name      string
		request   *ImageRequest
		wantModel string
		wantSize  string
	}{
		{
			name:      "standard ignores size",
			request:   &ImageRequest{Prompt: "cover", AspectRatio: "16:9", ImageSize: "4K"},
			wantModel: "image-model",
		},
		{
			name:      "pro carries size",
			request:   &ImageRequest{Prompt: "cover", Pro: true, AspectRatio: "3:4", ImageSize: "4K"},
			wantModel: "pro-image-model",
			wantSize:  "4K",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := provider.GenerateImage(context.Background(), "key", tt.request)
			require.NoError(t, err)
			require.Len(t, resp.Parts, 2)
			assert.False(t, resp.Parts[0].HasData())
			assert.Equal(t, "image/png", resp.Parts[1].MIMEType)
			assert.Equal(t, tt.wantModel, resp.Model)

			cfg := gen.calls[len(gen.calls)-1].config
			require.NotNil(t, cfg.ImageConfig)
			assert.Equal(t, tt.request.AspectRatio, cfg.ImageConfig.AspectRatio)
			assert.Equal(t, tt.wantSize, cfg.ImageConfig.ImageSize)
		})
	}
}

func TestGeminiProvider_AnalyzeAudio(t *testing.T) {
	gen := &fakeGenerator{generateFunc: func(string) (*genai.GenerateContentResponse, error) {
		return textResponse("128"), nil
	}}
	provider, _ := newTestGemini(gen)

	resp, err := provider.AnalyzeAudio(context.Background(), "key", &AudioRequest{
		Prompt:   "tempo?",
		MIMEType: "audio/mpeg",
		Data:     []byte("mp3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "128", resp.Text)

	call := gen.calls[0]
	assert.Equal(t, "audio-model", call.model)
	require.Len(t, call.contents, 1)
	parts := call.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "audio/mpeg", parts[0].InlineData.MIMEType)
	assert.Equal(t, "tempo?", parts[1].Text)
}

func TestResponseText_SkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Verse 1"},
				{Text: "\nChorus"},
			}},
		}},
	}
	assert.Equal(t, "Verse 1\nChorus", responseText(resp))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
}

func TestConvertSchemaToGemini(t *testing.T) {
	s := Object(Field("title", String()), Field("topic", String()))
	g := convertSchemaToGemini(s)

	assert.Equal(t, genai.TypeObject, g.Type)
	assert.Equal(t, []string{"title", "topic"}, g.Required)
	assert.Equal(t, []string{"title", "topic"}, g.PropertyOrdering)
	assert.Equal(t, genai.TypeString, g.Properties["title"].Type)
	assert.Nil(t, convertSchemaToGemini(nil))
}
