package studio

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Conceptual-Machines/songsmith-api/internal/interpret"
	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/Conceptual-Machines/songsmith-api/internal/llm/llmtest"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, provider llm.Provider) (*Generator, *Service, *models.Project) {
	t.Helper()
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	g := NewGenerator(svc, provider, GeneratorConfig{FallbackCredential: "env-key", MaxAudioBytes: 1024})
	return g, svc, p
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestVariations_MalformedEntryLeavesProjectUnchanged(t *testing.T) {
	good := variations(4)
	entries := make([]any, 0, 5)
	for _, v := range good {
		entries = append(entries, v)
	}
	entries = append(entries, map[string]string{"title": "broken"})

	g, svc, p := newTestGenerator(t, &llmtest.MockProvider{GenerateTextFunc: llmtest.Text(mustJSON(t, entries))})
	before, err := svc.ReplaceVariations(context.Background(), p.ID, variations(5))
	require.NoError(t, err)

	_, err = g.Variations(context.Background(), p.ID, prompt.VariationOptions{})
	var pe *interpret.ParseError
	require.ErrorAs(t, err, &pe)
	assert.True(t, IsGenerationError(err))

	after, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, before.LyricVariations, after.LyricVariations)
}

func TestVariations_ReplacesSetAndResetsIndex(t *testing.T) {
	g, svc, p := newTestGenerator(t, &llmtest.MockProvider{GenerateTextFunc: llmtest.Text(mustJSON(t, variations(5)))})
	ctx := context.Background()
	_, err := svc.ReplaceVariations(ctx, p.ID, variations(5))
	require.NoError(t, err)
	_, err = svc.ApplyVariation(ctx, p.ID, 2)
	require.NoError(t, err)

	updated, err := g.Variations(ctx, p.ID, prompt.VariationOptions{StrictMode: true})
	require.NoError(t, err)
	assert.Len(t, updated.LyricVariations, 5)
	assert.Nil(t, updated.SelectedLyricVariationIndex)
}

func TestCoverArt_TextOnlyResponse(t *testing.T) {
	provider := &llmtest.MockProvider{
		GenerateImageFunc: func(context.Context, string, *llm.ImageRequest) (*llm.ImageResponse, error) {
			return &llm.ImageResponse{Parts: []llm.Part{{Text: "I cannot draw that"}}}, nil
		},
	}
	g, svc, p := newTestGenerator(t, provider)

	_, err := g.CoverArt(context.Background(), p.ID, CoverArtRequest{Mode: CoverModeAI})
	var nie *interpret.NoImageError
	require.ErrorAs(t, err, &nie)

	after, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Empty(t, after.CoverImage)
}

func TestCoverArt_Modes(t *testing.T) {
	var got *llm.ImageRequest
	provider := &llmtest.MockProvider{
		GenerateImageFunc: func(_ context.Context, _ string, req *llm.ImageRequest) (*llm.ImageResponse, error) {
			got = req
			return &llm.ImageResponse{Parts: []llm.Part{
				{Text: "here you go"},
				{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}},
			}}, nil
		},
	}
	g, _, p := newTestGenerator(t, provider)
	ctx := context.Background()

	res, err := g.CoverArt(ctx, p.ID, CoverArtRequest{
		Mode:            "ai",
		CoverArtOptions: prompt.CoverArtOptions{SizePresetID: 5, Pro: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,/9g=", res.Project.CoverImage)
	assert.Equal(t, "3:4", got.AspectRatio)
	assert.Equal(t, "1K", got.ImageSize)
	calls := provider.Calls()

	res, err = g.CoverArt(ctx, p.ID, CoverArtRequest{Mode: CoverModePromptOnly})
	require.NoError(t, err)
	assert.Nil(t, res.Project)
	assert.Contains(t, res.Prompt, "Album cover art")
	assert.Equal(t, calls, provider.Calls())

	res, err = g.CoverArt(ctx, p.ID, CoverArtRequest{
		Mode:            CoverModeMock,
		CoverArtOptions: prompt.CoverArtOptions{SizePresetID: 1, VisualMood: "Happy"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Project.CoverImage, "data:image/png;base64,"))
	assert.Equal(t, calls, provider.Calls())

	_, err = g.CoverArt(ctx, p.ID, CoverArtRequest{Mode: "SKETCH"})
	assert.True(t, IsValidation(err))
}

func TestTempo(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantBPM int
		wantErr bool
	}{
		{"sentence", "the tempo is 128 bpm", 128, false},
		{"bare", "92", 92, false},
		{"no number", "unable to determine", 0, true},
		{"implausible", "900", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &llmtest.MockProvider{
				AnalyzeAudioFunc: func(_ context.Context, _ string, req *llm.AudioRequest) (*llm.TextResponse, error) {
					assert.Equal(t, "audio/mpeg", req.MIMEType)
					return &llm.TextResponse{Text: tt.reply}, nil
				},
			}
			g, svc, p := newTestGenerator(t, provider)
			bpm := 95
			_, err := svc.UpdateProject(context.Background(), p.ID, models.ProjectPatch{BPM: &bpm})
			require.NoError(t, err)

			updated, err := g.Tempo(context.Background(), p.ID, "audio/mpeg", []byte("ID3"))
			if tt.wantErr {
				var ive *interpret.InvalidValueError
				require.ErrorAs(t, err, &ive)
				current, gerr := svc.Get(p.ID)
				require.NoError(t, gerr)
				assert.Equal(t, 95, current.BPM)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBPM, updated.BPM)
		})
	}
}

func TestTempo_RejectsBadUploads(t *testing.T) {
	provider := &llmtest.MockProvider{}
	g, _, p := newTestGenerator(t, provider)
	ctx := context.Background()

	_, err := g.Tempo(ctx, p.ID, "audio/wav", nil)
	assert.True(t, IsValidation(err))
	_, err = g.Tempo(ctx, p.ID, "audio/wav", make([]byte, 2048))
	assert.True(t, IsValidation(err))
	_, err = g.Tempo(ctx, p.ID, "image/png", []byte("x"))
	assert.True(t, IsValidation(err))
	assert.Zero(t, provider.Calls())
}

func TestTitles(t *testing.T) {
	titles := []string{"Neon Mile (City Pop vibe)", "After Hours", "Glow", "Run", "Static (Remix)"}
	g, svc, p := newTestGenerator(t, &llmtest.MockProvider{GenerateTextFunc: llmtest.Text(mustJSON(t, titles))})
	ctx := context.Background()

	_, err := g.Titles(ctx, p.ID)
	assert.True(t, IsValidation(err))

	concept := "a drive at 3am"
	_, err = svc.UpdateProject(ctx, p.ID, models.ProjectPatch{Concept: &concept})
	require.NoError(t, err)

	updated, err := g.Titles(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Neon Mile", "After Hours", "Glow", "Run", "Static"}, updated.GeneratedTitles)
}

func TestThemePacksAndReferences(t *testing.T) {
	packs := make([]models.ThemePack, prompt.ThemePackCount)
	for i := range packs {
		packs[i] = models.ThemePack{Title: "t", Topic: "topic", Style: "style"}
	}
	refs := []models.ReferenceSuggestion{
		{Song: "a", Artist: "x"}, {Song: "b", Artist: "y"}, {Song: "c", Artist: "z"},
		{Song: "d", Artist: "w"}, {Song: "e", Artist: "v"},
	}
	provider := &llmtest.MockProvider{
		GenerateTextFunc: func(_ context.Context, _ string, req *llm.TextRequest) (*llm.TextResponse, error) {
			switch req.Facet {
			case models.FacetThemePacks:
				return &llm.TextResponse{Text: "```json\n" + mustJSON(t, packs) + "\n```"}, nil
			case models.FacetReferences:
				return &llm.TextResponse{Text: mustJSON(t, refs)}, nil
			}
			return nil, errors.New("unexpected facet")
		},
	}
	g, _, p := newTestGenerator(t, provider)

	gotPacks, err := g.ThemePacks(context.Background(), p.ID, prompt.ThemePackOptions{Keywords: "summer"})
	require.NoError(t, err)
	assert.Len(t, gotPacks, prompt.ThemePackCount)

	gotRefs, err := g.References(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, refs, gotRefs)
}

func TestLyrics_ReportsStructure(t *testing.T) {
	g, svc, p := newTestGenerator(t, &llmtest.MockProvider{
		GenerateTextFunc: func(_ context.Context, _ string, req *llm.TextRequest) (*llm.TextResponse, error) {
			assert.Equal(t, llm.TierReasoning, req.Tier)
			return &llm.TextResponse{Text: "[Intro]\nooh\n[Chorus]\nla la"}, nil
		},
	})
	withBlocks(t, svc, p.ID, models.BlockIntro, models.BlockVerse, models.BlockChorus)

	res, err := g.Lyrics(context.Background(), p.ID, prompt.LyricsOptions{Language: "English"})
	require.NoError(t, err)
	assert.Equal(t, "[Intro]\nooh\n[Chorus]\nla la", res.Project.Lyrics)
	assert.False(t, res.Structure.Complete())
	require.Len(t, res.Structure.Missing, 1)
	assert.Equal(t, models.BlockVerse, res.Structure.Missing[0].Type)
}

func TestSoundPromptAndAdvice(t *testing.T) {
	g, _, p := newTestGenerator(t, &llmtest.MockProvider{GenerateTextFunc: llmtest.Text("  K-Pop, 120 BPM  ")})
	ctx := context.Background()

	updated, err := g.SoundPrompt(ctx, p.ID, prompt.SoundOptions{Version: prompt.SoundVersionV5})
	require.NoError(t, err)
	assert.Equal(t, "K-Pop, 120 BPM", updated.SoundPrompt)

	updated, err = g.CompositionAdvice(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "K-Pop, 120 BPM", updated.CompositionAdvice)
}

func TestGenerate_EmptyText(t *testing.T) {
	g, _, p := newTestGenerator(t, &llmtest.MockProvider{GenerateTextFunc: llmtest.Text("   ")})
	_, err := g.SoundPrompt(context.Background(), p.ID, prompt.SoundOptions{})
	var ee *interpret.EmptyError
	assert.ErrorAs(t, err, &ee)
}

func TestGenerate_BackendError(t *testing.T) {
	g, _, p := newTestGenerator(t, &llmtest.MockProvider{
		GenerateTextFunc: func(context.Context, string, *llm.TextRequest) (*llm.TextResponse, error) {
			return nil, errors.New("503 unavailable")
		},
	})
	_, err := g.CompositionAdvice(context.Background(), p.ID)
	var be *interpret.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, models.FacetCompositionAdvice, be.Facet)
	assert.Equal(t, "mock", be.Provider)
}

func TestGenerate_Credentials(t *testing.T) {
	var used string
	provider := &llmtest.MockProvider{
		GenerateTextFunc: func(_ context.Context, cred string, _ *llm.TextRequest) (*llm.TextResponse, error) {
			used = cred
			return &llm.TextResponse{Text: "advice"}, nil
		},
	}
	g, svc, p := newTestGenerator(t, provider)
	ctx := context.Background()

	_, err := g.CompositionAdvice(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "env-key", used)

	require.NoError(t, svc.store.SetCredential(ctx, "stored-key"))
	_, err = g.CompositionAdvice(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "stored-key", used)

	g.cfg.FallbackCredential = ""
	require.NoError(t, svc.store.ClearCredential(ctx))
	_, err = g.CompositionAdvice(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNoCredential)

	_, err = g.CompositionAdvice(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestGenerate_StaleCompletionIsDiscarded(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var once sync.Once
	provider := &llmtest.MockProvider{
		GenerateTextFunc: func(_ context.Context, _ string, _ *llm.TextRequest) (*llm.TextResponse, error) {
			first := false
			once.Do(func() { first = true })
			if first {
				close(firstStarted)
				<-releaseFirst
				return &llm.TextResponse{Text: "old advice"}, nil
			}
			return &llm.TextResponse{Text: "new advice"}, nil
		},
	}
	g, svc, p := newTestGenerator(t, provider)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := g.CompositionAdvice(ctx, p.ID)
		done <- err
	}()

	<-firstStarted
	assert.Equal(t, []models.Facet{models.FacetCompositionAdvice}, svc.Pending(p.ID))

	updated, err := g.CompositionAdvice(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new advice", updated.CompositionAdvice)

	close(releaseFirst)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	current, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new advice", current.CompositionAdvice)
	assert.Empty(t, svc.Pending(p.ID))
}

func TestGenerate_SettledResultLosesToNewerApply(t *testing.T) {
	g, svc, p := newTestGenerator(t, &llmtest.MockProvider{})
	ctx := context.Background()
	write := func(text string) func(*models.Project) error {
		return func(p *models.Project) error {
			p.CompositionAdvice = text
			return nil
		}
	}

	older := svc.seq.Begin(p.ID, models.FacetCompositionAdvice)
	require.True(t, svc.seq.Finish(older))

	// a newer call starts and lands before the older one writes
	newer := svc.seq.Begin(p.ID, models.FacetCompositionAdvice)
	require.True(t, svc.seq.Finish(newer))
	_, err := g.apply(ctx, p.ID, newer, write("new advice"))
	require.NoError(t, err)

	updated, err := g.apply(ctx, p.ID, older, write("old advice"))
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Nil(t, updated)

	current, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new advice", current.CompositionAdvice)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []GenerationEvent
}

func (o *recordingObserver) ObserveGeneration(_ context.Context, e GenerationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func TestGenerate_NotifiesObserver(t *testing.T) {
	g, _, p := newTestGenerator(t, &llmtest.MockProvider{
		GenerateTextFunc: func(context.Context, string, *llm.TextRequest) (*llm.TextResponse, error) {
			return &llm.TextResponse{Text: "ok", Model: "gemini-test", Usage: llm.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}}, nil
		},
	})
	obs := &recordingObserver{}
	g.SetObserver(obs)

	_, err := g.SoundPrompt(context.Background(), p.ID, prompt.SoundOptions{})
	require.NoError(t, err)
	require.Len(t, obs.events, 1)
	e := obs.events[0]
	assert.Equal(t, models.FacetSoundPrompt, e.Facet)
	assert.Equal(t, "gemini-test", e.Model)
	assert.Equal(t, int64(5), e.Usage.TotalTokens)
	assert.NoError(t, e.Err)
}
