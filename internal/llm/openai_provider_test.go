package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResponses replies with newFunc and records the params it saw
type fakeResponses struct {
	params  []responses.ResponseNewParams
	newFunc func() (*responses.Response, error)
}

func (f *fakeResponses) New(
	_ context.Context, body responses.ResponseNewParams, _ ...option.RequestOption,
) (*responses.Response, error) {
	f.params = append(f.params, body)
	if f.newFunc != nil {
		return f.newFunc()
	}
	return outputTextResponse("ok"), nil
}

func outputTextResponse(text string) *responses.Response {
	raw, _ := json.Marshal(map[string]any{
		"id":     "resp_1",
		"object": "response",
		"output": []any{map[string]any{
			"type":   "message",
			"id":     "msg_1",
			"role":   "assistant",
			"status": "completed",
			"content": []any{map[string]any{
				"type":        "output_text",
				"text":        text,
				"annotations": []any{},
			}},
		}},
		"usage": map[string]any{
			"input_tokens":  12,
			"output_tokens": 8,
			"total_tokens":  20,
		},
	})
	var resp responses.Response
	_ = json.Unmarshal(raw, &resp)
	return &resp
}

var testOpenAIModels = OpenAIModels{Text: "gpt-text", Reasoning: "gpt-reasoning"}

func newTestOpenAI(fake *fakeResponses) *OpenAIProvider {
	return NewOpenAIProviderWithFactory(testOpenAIModels, func(string) ResponsesAPI { return fake })
}

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider(testOpenAIModels)
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.Name())
	assert.NotNil(t, provider.client("test-api-key"))
}

func TestOpenAIProvider_BuildRequestParams(t *testing.T) {
	provider := newTestOpenAI(&fakeResponses{})

	tests := []struct {
		name    string
		request *TextRequest
		checks  func(t *testing.T, request *TextRequest)
	}{
		{
			name:    "standard tier free text",
			request: &TextRequest{Tier: TierStandard, Prompt: "advice", SystemPrompt: "you are a producer"},
			checks: func(t *testing.T, request *TextRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.Equal(t, "gpt-text", params.Model)
				assert.Equal(t, "you are a producer", params.Instructions.Value)
				assert.Len(t, params.Input.OfInputItemList, 1)
				assert.Nil(t, params.Text.Format.OfJSONSchema)
				assert.Empty(t, params.Reasoning.Effort)
			},
		},
		{
			name:    "reasoning tier with budget",
			request: &TextRequest{Tier: TierReasoning, Prompt: "lyrics", ThinkingBudget: 2048},
			checks: func(t *testing.T, request *TextRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.Equal(t, "gpt-reasoning", params.Model)
				assert.Equal(t, responses.ReasoningEffortMedium, params.Reasoning.Effort)
			},
		},
		{
			name:    "object schema passes through",
			request: &TextRequest{Prompt: "x", Schema: Object(Field("song", String())).Named("reference")},
			checks: func(t *testing.T, request *TextRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				require.NotNil(t, params.Text.Format.OfJSONSchema)
				assert.Equal(t, "reference", params.Text.Format.OfJSONSchema.Name)
				assert.Equal(t, "object", params.Text.Format.OfJSONSchema.Schema["type"])
			},
		},
		{
			name:    "array schema is wrapped",
			request: &TextRequest{Prompt: "x", Schema: ArrayOf(String(), 5, 5)},
			checks: func(t *testing.T, request *TextRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				require.NotNil(t, params.Text.Format.OfJSONSchema)
				assert.Equal(t, "songsmith_output", params.Text.Format.OfJSONSchema.Name)
				schema := params.Text.Format.OfJSONSchema.Schema
				assert.Equal(t, "object", schema["type"])
				props, ok := schema["properties"].(map[string]any)
				require.True(t, ok)
				assert.Contains(t, props, "items")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checks(t, tt.request)
		})
	}
}

func TestOpenAIProvider_GenerateTextUnwrapsArrays(t *testing.T) {
	fake := &fakeResponses{newFunc: func() (*responses.Response, error) {
		return outputTextResponse(`{"items":["A","B","C","D","E"]}`), nil
	}}
	provider := newTestOpenAI(fake)

	resp, err := provider.GenerateText(context.Background(), "key", &TextRequest{
		Facet:  models.FacetTitles,
		Prompt: "titles",
		Schema: ArrayOf(String(), 5, 5),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `["A","B","C","D","E"]`, resp.Text)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 8, TotalTokens: 20}, resp.Usage)
	assert.Equal(t, "gpt-text", resp.Model)
}

func TestOpenAIProvider_GenerateTextError(t *testing.T) {
	quota := errors.New("quota exceeded")
	provider := newTestOpenAI(&fakeResponses{newFunc: func() (*responses.Response, error) {
		return nil, quota
	}})

	_, err := provider.GenerateText(context.Background(), "key", &TextRequest{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, quota)
}

func TestOpenAIProvider_ProbeCapability(t *testing.T) {
	fake := &fakeResponses{}
	provider := newTestOpenAI(fake)
	ctx := context.Background()

	require.NoError(t, provider.ProbeCapability(ctx, "key", models.CapabilityText))
	assert.Len(t, fake.params, 1)

	assert.ErrorIs(t, provider.ProbeCapability(ctx, "key", models.CapabilityImage), ErrUnsupported)
	assert.ErrorIs(t, provider.ProbeCapability(ctx, "key", models.CapabilityProImage), ErrUnsupported)
	assert.Len(t, fake.params, 1, "unsupported probes never reach the API")
}

func TestOpenAIProvider_ImageAndAudioUnsupported(t *testing.T) {
	provider := newTestOpenAI(&fakeResponses{})

	_, err := provider.GenerateImage(context.Background(), "key", &ImageRequest{Prompt: "cover"})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = provider.AnalyzeAudio(context.Background(), "key", &AudioRequest{Prompt: "tempo"})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestUnwrapItems(t *testing.T) {
	assert.Equal(t, `[1,2]`, unwrapItems(`{"items":[1,2]}`))
	assert.Equal(t, `{"other":1}`, unwrapItems(`{"other":1}`))
	assert.Equal(t, `not json`, unwrapItems(`not json`))
}
