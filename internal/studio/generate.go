package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/interpret"
	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/Conceptual-Machines/songsmith-api/internal/logger"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/prompt"
)

// Cover art modes
const (
	CoverModeAI         = "AI"
	CoverModePromptOnly = "PROMPT_ONLY"
	CoverModeMock       = "MOCK"
)

// Observer is notified after every backend call
type Observer interface {
	ObserveGeneration(ctx context.Context, event GenerationEvent)
}

// GenerationEvent describes one completed backend call
type GenerationEvent struct {
	ProjectID string
	Facet     models.Facet
	Provider  string
	Model     string
	Prompt    string
	Output    string
	Usage     llm.Usage
	Duration  time.Duration
	Err       error
}

// GeneratorConfig holds the generation limits and fallbacks
type GeneratorConfig struct {
	// FallbackCredential is used when no credential is stored
	FallbackCredential string
	MaxAudioBytes      int64
}

// Generator runs the generation pipelines. Each call snapshots the project,
// builds the request, calls the backend and interprets the response before
// the project is touched; only the latest call per facet may apply.
type Generator struct {
	svc      *Service
	provider llm.Provider
	cfg      GeneratorConfig
	observer Observer
}

// NewGenerator creates a generator over the service's projects
func NewGenerator(svc *Service, provider llm.Provider, cfg GeneratorConfig) *Generator {
	return &Generator{svc: svc, provider: provider, cfg: cfg}
}

// SetObserver installs a generation observer
func (g *Generator) SetObserver(o Observer) {
	g.observer = o
}

// CoverArtRequest selects the cover art mode and its visual direction
type CoverArtRequest struct {
	Mode string `json:"mode"`
	prompt.CoverArtOptions
}

// CoverArtResult holds the updated project, or only the prompt in PROMPT_ONLY mode
type CoverArtResult struct {
	Project *models.Project `json:"project,omitempty"`
	Prompt  string          `json:"prompt"`
}

// LyricsResult holds the updated project and how well the lyrics follow the structure
type LyricsResult struct {
	Project   *models.Project           `json:"project"`
	Structure interpret.StructureReport `json:"structure"`
}

// ThemePacks suggests song ideas for the project's genre and mood
func (g *Generator) ThemePacks(ctx context.Context, id string, opts prompt.ThemePackOptions) ([]models.ThemePack, error) {
	packs, _, err := generate(ctx, g, id, models.FacetThemePacks, func(ctx context.Context, p *models.Project, cred string) ([]models.ThemePack, error) {
		req := prompt.ThemePacks(p, opts)
		raw, err := g.text(ctx, id, cred, req)
		if err != nil {
			return nil, err
		}
		return interpret.Structured[[]models.ThemePack](req.Facet, raw, req.Schema)
	})
	return packs, err
}

// Titles suggests titles for the project's concept and stores them cleaned
func (g *Generator) Titles(ctx context.Context, id string) (*models.Project, error) {
	titles, ticket, err := generate(ctx, g, id, models.FacetTitles, func(ctx context.Context, p *models.Project, cred string) ([]string, error) {
		req, err := prompt.Titles(p)
		if err != nil {
			return nil, &ValidationError{Field: "concept", Reason: err.Error()}
		}
		raw, err := g.text(ctx, id, cred, req)
		if err != nil {
			return nil, err
		}
		titles, err := interpret.Structured[[]string](req.Facet, raw, req.Schema)
		if err != nil {
			return nil, err
		}
		for i, t := range titles {
			titles[i] = interpret.CleanTitle(t)
		}
		return titles, nil
	})
	if err != nil {
		return nil, err
	}
	return g.apply(ctx, id, ticket, func(p *models.Project) error {
		p.GeneratedTitles = titles
		return nil
	})
}

// References suggests songs that represent the project's genre and mood
func (g *Generator) References(ctx context.Context, id string) ([]models.ReferenceSuggestion, error) {
	refs, _, err := generate(ctx, g, id, models.FacetReferences, func(ctx context.Context, p *models.Project, cred string) ([]models.ReferenceSuggestion, error) {
		req := prompt.References(p)
		raw, err := g.text(ctx, id, cred, req)
		if err != nil {
			return nil, err
		}
		return interpret.Structured[[]models.ReferenceSuggestion](req.Facet, raw, req.Schema)
	})
	return refs, err
}

// Lyrics writes full lyrics into the project
func (g *Generator) Lyrics(ctx context.Context, id string, opts prompt.LyricsOptions) (*LyricsResult, error) {
	var structure []models.SongBlock
	lyrics, ticket, err := generate(ctx, g, id, models.FacetLyrics, func(ctx context.Context, p *models.Project, cred string) (string, error) {
		structure = p.Structure
		req := prompt.Lyrics(p, opts, g.svc.catalog)
		raw, err := g.text(ctx, id, cred, req)
		if err != nil {
			return "", err
		}
		return interpret.Text(req.Facet, raw)
	})
	if err != nil {
		return nil, err
	}

	report := interpret.CheckStructure(lyrics, structure)
	if !report.Complete() {
		logger.Warn("Generated lyrics do not follow the structure", logger.Fields{
			"project_id": id,
			"missing":    len(report.Missing),
		})
	}

	project, err := g.apply(ctx, id, ticket, func(p *models.Project) error {
		p.Lyrics = lyrics
		return nil
	})
	if project == nil {
		return nil, err
	}
	return &LyricsResult{Project: project, Structure: report}, err
}

// Variations replaces the project's variation set with five new candidates
func (g *Generator) Variations(ctx context.Context, id string, opts prompt.VariationOptions) (*models.Project, error) {
	variations, ticket, err := generate(ctx, g, id, models.FacetVariations, func(ctx context.Context, p *models.Project, cred string) ([]models.LyricVariation, error) {
		req := prompt.Variations(p, opts, g.svc.catalog)
		raw, err := g.text(ctx, id, cred, req)
		if err != nil {
			return nil, err
		}
		return interpret.Structured[[]models.LyricVariation](req.Facet, raw, req.Schema)
	})
	if err != nil {
		return nil, err
	}
	return g.apply(ctx, id, ticket, func(p *models.Project) error {
		replaceVariations(p, variations)
		return nil
	})
}

// SoundPrompt writes the sound design prompt into the project
func (g *Generator) SoundPrompt(ctx context.Context, id string, opts prompt.SoundOptions) (*models.Project, error) {
	text, ticket, err := generate(ctx, g, id, models.FacetSoundPrompt, func(ctx context.Context, p *models.Project, cred string) (string, error) {
		req := prompt.SoundPrompt(p, opts, g.svc.catalog)
		raw, err := g.text(ctx, id, cred, req)
		if err != nil {
			return "", err
		}
		return interpret.Text(req.Facet, raw)
	})
	if err != nil {
		return nil, err
	}
	return g.apply(ctx, id, ticket, func(p *models.Project) error {
		p.SoundPrompt = text
		return nil
	})
}

// CompositionAdvice writes rhythm, melody and harmony advice into the project
func (g *Generator) CompositionAdvice(ctx context.Context, id string) (*models.Project, error) {
	text, ticket, err := generate(ctx, g, id, models.FacetCompositionAdvice, func(ctx context.Context, p *models.Project, cred string) (string, error) {
		req := prompt.CompositionAdvice(p)
		raw, err := g.text(ctx, id, cred, req)
		if err != nil {
			return "", err
		}
		return interpret.Text(req.Facet, raw)
	})
	if err != nil {
		return nil, err
	}
	return g.apply(ctx, id, ticket, func(p *models.Project) error {
		p.CompositionAdvice = text
		return nil
	})
}

// Tempo detects the BPM of an audio clip and stores it in the project
func (g *Generator) Tempo(ctx context.Context, id, mimeType string, data []byte) (*models.Project, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Field: "audio", Reason: "required"}
	}
	if g.cfg.MaxAudioBytes > 0 && int64(len(data)) > g.cfg.MaxAudioBytes {
		return nil, &ValidationError{Field: "audio", Reason: fmt.Sprintf("exceeds %d bytes", g.cfg.MaxAudioBytes)}
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		return nil, &ValidationError{Field: "audio", Reason: fmt.Sprintf("unsupported content type %q", mimeType)}
	}

	bpm, ticket, err := generate(ctx, g, id, models.FacetTempo, func(ctx context.Context, _ *models.Project, cred string) (int, error) {
		req := prompt.Tempo(mimeType, data)
		start := time.Now()
		resp, err := g.provider.AnalyzeAudio(ctx, cred, req)
		if err != nil {
			g.observe(ctx, id, models.FacetTempo, req.Prompt, nil, start, err)
			return 0, &interpret.BackendError{Facet: models.FacetTempo, Provider: g.provider.Name(), Err: err}
		}
		g.observe(ctx, id, models.FacetTempo, req.Prompt, resp, start, nil)
		return interpret.Tempo(resp.Text)
	})
	if err != nil {
		return nil, err
	}
	return g.apply(ctx, id, ticket, func(p *models.Project) error {
		p.BPM = bpm
		return nil
	})
}

// CoverArt generates, sketches or only describes the project's cover image
func (g *Generator) CoverArt(ctx context.Context, id string, req CoverArtRequest) (*CoverArtResult, error) {
	mode := strings.ToUpper(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = CoverModeAI
	}

	switch mode {
	case CoverModePromptOnly:
		p, err := g.svc.Get(id)
		if err != nil {
			return nil, err
		}
		return &CoverArtResult{Prompt: prompt.CoverArt(p, req.CoverArtOptions, g.svc.catalog).Prompt}, nil

	case CoverModeMock:
		p, err := g.svc.Get(id)
		if err != nil {
			return nil, err
		}
		imgReq := prompt.CoverArt(p, req.CoverArtOptions, g.svc.catalog)
		part, err := renderPlaceholder(g.svc.catalog.SizePreset(req.SizePresetID).Ratio, req.VisualMood)
		if err != nil {
			return nil, err
		}
		project, err := g.svc.mutate(ctx, id, func(p *models.Project) error {
			p.CoverImage = interpret.DataURL(part)
			return nil
		})
		if project == nil {
			return nil, err
		}
		return &CoverArtResult{Project: project, Prompt: imgReq.Prompt}, err

	case CoverModeAI:
	default:
		return nil, &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown cover art mode %q", req.Mode)}
	}

	var instruction string
	part, ticket, err := generate(ctx, g, id, models.FacetCoverArt, func(ctx context.Context, p *models.Project, cred string) (llm.Part, error) {
		imgReq := prompt.CoverArt(p, req.CoverArtOptions, g.svc.catalog)
		instruction = imgReq.Prompt
		start := time.Now()
		resp, err := g.provider.GenerateImage(ctx, cred, imgReq)
		if err != nil {
			g.observe(ctx, id, models.FacetCoverArt, imgReq.Prompt, nil, start, err)
			return llm.Part{}, &interpret.BackendError{Facet: models.FacetCoverArt, Provider: g.provider.Name(), Err: err}
		}
		g.observe(ctx, id, models.FacetCoverArt, imgReq.Prompt, &llm.TextResponse{Model: resp.Model, Usage: resp.Usage}, start, nil)
		return interpret.Image(resp.Parts)
	})
	if err != nil {
		return nil, err
	}
	project, err := g.apply(ctx, id, ticket, func(p *models.Project) error {
		p.CoverImage = interpret.DataURL(part)
		return nil
	})
	if project == nil {
		return nil, err
	}
	return &CoverArtResult{Project: project, Prompt: instruction}, err
}

// generate runs one sequenced backend call against a snapshot of the project.
// The result is discarded with ErrSuperseded when a newer call for the same
// facet started meanwhile. Callers that write the result pass the returned
// ticket to apply.
func generate[T any](
	ctx context.Context,
	g *Generator,
	id string,
	facet models.Facet,
	call func(ctx context.Context, p *models.Project, credential string) (T, error),
) (T, Ticket, error) {
	var zero T

	snapshot, err := g.svc.Get(id)
	if err != nil {
		return zero, Ticket{}, err
	}
	cred, err := g.credential(ctx)
	if err != nil {
		return zero, Ticket{}, err
	}

	ticket := g.svc.seq.Begin(id, facet)
	result, err := call(ctx, snapshot, cred)
	current := g.svc.seq.Finish(ticket)
	if err != nil {
		logger.Warn("Generation failed", logger.Fields{
			"project_id": id,
			"facet":      string(facet),
			"error":      err.Error(),
		})
		return zero, ticket, err
	}
	if !current {
		logger.Info("Discarding stale generation result", logger.Fields{"project_id": id, "facet": string(facet)})
		return zero, ticket, ErrSuperseded
	}
	return result, ticket, nil
}

// apply writes a generation result unless a newer call for the same facet
// started after ticket. The check runs under the service lock.
func (g *Generator) apply(ctx context.Context, id string, ticket Ticket, fn func(p *models.Project) error) (*models.Project, error) {
	return g.svc.mutate(ctx, id, func(p *models.Project) error {
		if !g.svc.seq.Current(ticket) {
			logger.Info("Discarding stale generation result", logger.Fields{"project_id": id, "facet": string(ticket.key.facet)})
			return ErrSuperseded
		}
		return fn(p)
	})
}

// text issues a text request and records it
func (g *Generator) text(ctx context.Context, id, cred string, req *llm.TextRequest) (string, error) {
	start := time.Now()
	resp, err := g.provider.GenerateText(ctx, cred, req)
	if err != nil {
		g.observe(ctx, id, req.Facet, req.Prompt, nil, start, err)
		return "", &interpret.BackendError{Facet: req.Facet, Provider: g.provider.Name(), Err: err}
	}
	g.observe(ctx, id, req.Facet, req.Prompt, resp, start, nil)
	return resp.Text, nil
}

func (g *Generator) observe(ctx context.Context, id string, facet models.Facet, input string, resp *llm.TextResponse, start time.Time, err error) {
	event := GenerationEvent{
		ProjectID: id,
		Facet:     facet,
		Provider:  g.provider.Name(),
		Prompt:    input,
		Duration:  time.Since(start),
		Err:       err,
	}
	if resp != nil {
		event.Model = resp.Model
		event.Output = resp.Text
		event.Usage = resp.Usage
		logger.LogGenerationRequest(ctx, string(facet), resp.Model, event.Duration, map[string]interface{}{
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
			"total_tokens":  resp.Usage.TotalTokens,
		}, logger.Fields{"project_id": id})
	}
	if g.observer != nil {
		g.observer.ObserveGeneration(ctx, event)
	}
}

// credential returns the stored credential, or the configured fallback
func (g *Generator) credential(ctx context.Context) (string, error) {
	cred, ok, err := g.svc.store.GetCredential(ctx)
	if err != nil {
		logger.Warn("Failed to read stored credential", logger.Fields{"error": err.Error()})
	}
	if ok && cred != "" {
		return cred, nil
	}
	if g.cfg.FallbackCredential != "" {
		return g.cfg.FallbackCredential, nil
	}
	return "", ErrNoCredential
}

// IsGenerationError reports whether err comes from the backend or its response
func IsGenerationError(err error) bool {
	var (
		backend *interpret.BackendError
		parse   *interpret.ParseError
		empty   *interpret.EmptyError
		noImage *interpret.NoImageError
		invalid *interpret.InvalidValueError
	)
	return errors.As(err, &backend) || errors.As(err, &parse) || errors.As(err, &empty) ||
		errors.As(err, &noImage) || errors.As(err, &invalid)
}
