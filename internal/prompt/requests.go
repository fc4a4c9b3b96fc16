// Package prompt turns project snapshots into generation requests.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/catalog"
	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

const (
	ThemePackCount = 12
	TitleCount     = 5
	ReferenceCount = 5
	VariationCount = 5

	lyricsThinkingBudget = 2048
	defaultBPM           = 95

	SoundVersionV35 = "v3.5"
	SoundVersionV5  = "v5"

	// TempoPrompt asks the audio model for a bare BPM value
	TempoPrompt = "Analyze the tempo of this audio clip. Estimate the BPM (Beats Per Minute). " +
		"Return ONLY the integer number (e.g. 120). Do not write any other text."
)

// ErrConceptRequired is returned when titles are requested for a project without a concept
var ErrConceptRequired = errors.New("a concept is required before suggesting titles")

// ThemePackSchema declares 12 {title, topic, style} objects
func ThemePackSchema() *llm.Schema {
	return llm.ArrayOf(llm.Object(
		llm.Field("title", llm.String()),
		llm.Field("topic", llm.String()),
		llm.Field("style", llm.String()),
	), ThemePackCount, ThemePackCount).Named("theme_packs")
}

// TitlesSchema declares 5 title strings
func TitlesSchema() *llm.Schema {
	return llm.ArrayOf(llm.String(), TitleCount, TitleCount).Named("titles")
}

// ReferencesSchema declares 5 {song, artist} objects
func ReferencesSchema() *llm.Schema {
	return llm.ArrayOf(llm.Object(
		llm.Field("song", llm.String()),
		llm.Field("artist", llm.String()),
	), ReferenceCount, ReferenceCount).Named("references")
}

// VariationsSchema declares exactly 5 {title, rationale, lyrics} objects
func VariationsSchema() *llm.Schema {
	return llm.ArrayOf(llm.Object(
		llm.Field("title", llm.String()),
		llm.Field("rationale", llm.String()),
		llm.Field("lyrics", llm.String()),
	), VariationCount, VariationCount).Named("lyric_variations")
}

// ThemePackOptions carries the transient inputs of a theme pack request
type ThemePackOptions struct {
	Keywords string `json:"keywords"`
}

// LyricsOptions carries the transient inputs of a lyrics request
type LyricsOptions struct {
	Language         string `json:"language"`
	TargetDuration   string `json:"targetDuration"`
	AutoAdjustLength bool   `json:"autoAdjustLength"`
	StrictMode       bool   `json:"strictMode"`
}

// VariationOptions carries the transient inputs of a variations request
type VariationOptions struct {
	StrictMode bool `json:"strictMode"`
}

// SoundOptions carries the transient inputs of a sound prompt request
type SoundOptions struct {
	Version    string `json:"version"`
	StrictMode bool   `json:"strictMode"`
}

// CoverArtOptions carries the visual direction of a cover art request
type CoverArtOptions struct {
	VisualMood   string `json:"visualMood"`
	VisualStyle  string `json:"visualStyle"`
	Characters   string `json:"characters"`
	Description  string `json:"description"`
	SizePresetID int    `json:"sizePreset"`
	Pro          bool   `json:"pro"`
	ImageSize    string `json:"imageSize"`
}

// ThemePacksBuilder assembles the theme pack prompt
func ThemePacksBuilder(p *models.Project, opts ThemePackOptions) *Builder {
	b := NewBuilder()
	base := fmt.Sprintf(`Generate %d unique and creative "Song Idea Packs" for a %s (%s) song with a %s mood.`,
		ThemePackCount, p.Genre, p.SubGenre, p.Mood)
	if kw := strings.TrimSpace(opts.Keywords); kw != "" {
		base += fmt.Sprintf("\nUser Keywords/Themes: %q. Prioritize these keywords in the generated concepts.", kw)
	}
	b.Set(SectionBase, base)
	b.Set(SectionNegativeConstraints, negativeConstraintsFragment(p.ExcludedThemes))
	b.Set(SectionInstructions, `Each pack must include:
1. "title": a catchy English title with the Korean translation in parentheses, like "Title (제목)".
2. "topic": 1-2 sentences in Korean describing the story or scenario.
3. "style": 1-2 sentences in Korean describing the production, era and vibe.
Return ONLY a JSON array of objects with keys "title", "topic", "style".`)
	return b
}

// ThemePacks builds a schema-constrained theme pack request
func ThemePacks(p *models.Project, opts ThemePackOptions) *llm.TextRequest {
	return &llm.TextRequest{
		Facet:  models.FacetThemePacks,
		Tier:   llm.TierStandard,
		Prompt: ThemePacksBuilder(p, opts).Build(),
		Schema: ThemePackSchema(),
	}
}

// TitlesBuilder assembles the title suggestion prompt
func TitlesBuilder(p *models.Project) *Builder {
	b := NewBuilder()
	b.Set(SectionBase, fmt.Sprintf("Suggest %d catchy and creative song titles for a %s song.\nTopic/Theme: %s\nMood: %s",
		TitleCount, p.Genre, p.Concept, p.Mood))
	b.Set(SectionNegativeConstraints, negativeConstraintsFragment(p.ExcludedThemes))
	b.Set(SectionInstructions, fmt.Sprintf(`Requirements:
- Return ONLY a JSON array of %d strings.
- Each string should be in the format: "English Title (한글 제목)".`, TitleCount))
	return b
}

// Titles builds a schema-constrained title request. The project must have a concept.
func Titles(p *models.Project) (*llm.TextRequest, error) {
	if strings.TrimSpace(p.Concept) == "" {
		return nil, ErrConceptRequired
	}
	return &llm.TextRequest{
		Facet:  models.FacetTitles,
		Tier:   llm.TierStandard,
		Prompt: TitlesBuilder(p).Build(),
		Schema: TitlesSchema(),
	}, nil
}

// ReferencesBuilder assembles the reference song prompt
func ReferencesBuilder(p *models.Project) *Builder {
	b := NewBuilder()
	b.Set(SectionBase, fmt.Sprintf(
		"Suggest %d popular and characteristic songs that represent the %s (%s) genre with a %s mood.",
		ReferenceCount, p.Genre, p.SubGenre, p.Mood))
	b.Set(SectionNegativeConstraints, negativeConstraintsFragment(p.ExcludedThemes))
	b.Set(SectionInstructions, `Return ONLY a JSON array of objects with keys "song" and "artist".`)
	return b
}

// References builds a schema-constrained reference song request
func References(p *models.Project) *llm.TextRequest {
	return &llm.TextRequest{
		Facet:  models.FacetReferences,
		Tier:   llm.TierStandard,
		Prompt: ReferencesBuilder(p).Build(),
		Schema: ReferencesSchema(),
	}
}

// LyricsBuilder assembles the full lyrics prompt
func LyricsBuilder(p *models.Project, opts LyricsOptions, cat *catalog.Catalog) *Builder {
	bpm := p.BPM
	if bpm == 0 {
		bpm = defaultBPM
	}

	b := NewBuilder()
	b.Set(SectionBase, fmt.Sprintf(`Write lyrics for a %s song titled "%s".
Mood: %s.
Style Description: %s.
BPM: %d
Language Preference: %s.
Target Duration: %s.`,
		p.Genre, p.Title, p.Mood, orDefault(p.StyleDescription, "Standard style"), bpm,
		orDefault(opts.Language, "Korean"), orDefault(opts.TargetDuration, "3 minutes")))
	b.Set(SectionStructure, structureFragment(p.Structure, ""))
	b.Set(SectionNegativeConstraints, negativeConstraintsFragment(p.ExcludedThemes))
	if opts.StrictMode {
		b.Set(SectionStrictMode, strictLyricsFragment)
	}
	setIntroStyle(b, p, cat, introStyleLyricsFragment)
	b.Set(SectionReference, referenceFragment(p))

	duration := "- Target Duration is " + orDefault(opts.TargetDuration, "3 minutes") + "."
	if opts.AutoAdjustLength {
		duration = strings.TrimSuffix(duration, ".") +
			". STRICTLY adjust the number of lines and stanza length to match the duration."
	}
	b.Set(SectionInstructions, `Instructions:
- Reflect the "Style Description" in the choice of words and emotional tone.
`+duration+`
- Output MUST strictly match the defined structure blocks. Generate lyrics for EVERY block in the list.
- Include the structure tags (e.g., [Verse 1]) before the lyrics for each block.`)
	b.Set(SectionSignature, signatureFragment(p.SignatureName))
	return b
}

// Lyrics builds a free-text lyrics request on the reasoning tier
func Lyrics(p *models.Project, opts LyricsOptions, cat *catalog.Catalog) *llm.TextRequest {
	return &llm.TextRequest{
		Facet:          models.FacetLyrics,
		Tier:           llm.TierReasoning,
		Prompt:         LyricsBuilder(p, opts, cat).Build(),
		ThinkingBudget: lyricsThinkingBudget,
	}
}

// VariationsBuilder assembles the lyric variations prompt
func VariationsBuilder(p *models.Project, opts VariationOptions, cat *catalog.Catalog) *Builder {
	b := NewBuilder()
	b.Set(SectionBase, fmt.Sprintf(`Generate %d distinct and creative lyric concepts for a %s song.
Topic: %s
Mood: %s
Style: %s`, VariationCount, p.Genre, orDefault(p.Concept, "Freestyle"), p.Mood, orDefault(p.StyleDescription, "Standard")))
	b.Set(SectionStructure, structureFragment(p.Structure, fmt.Sprintf(" for all %d variations", VariationCount)))
	b.Set(SectionNegativeConstraints, negativeConstraintsFragment(p.ExcludedThemes))
	if opts.StrictMode {
		b.Set(SectionStrictMode, strictLyricsFragment)
	}
	setIntroStyle(b, p, cat, introStyleLyricsFragment)
	b.Set(SectionReference, referenceFragment(p))
	b.Set(SectionInstructions, fmt.Sprintf(`Requirements:
1. Create %d different versions (e.g., Emotional, Rhythmic, Story-telling, Minimal, Energetic).
2. For each version, provide:
   - "title": A catchy title.
   - "rationale": A brief description (in Korean) of the style/vibe.
   - "lyrics": The full lyrics structured with tags like [Verse], [Chorus].
3. Ensure lyrics are suitable for music generation AI.
Return ONLY a JSON array of %d objects.`, VariationCount, VariationCount))
	b.Set(SectionSignature, signatureFragment(p.SignatureName))
	return b
}

// Variations builds a schema-constrained request for exactly 5 variations
func Variations(p *models.Project, opts VariationOptions, cat *catalog.Catalog) *llm.TextRequest {
	return &llm.TextRequest{
		Facet:  models.FacetVariations,
		Tier:   llm.TierStandard,
		Prompt: VariationsBuilder(p, opts, cat).Build(),
		Schema: VariationsSchema(),
	}
}

// SoundPromptBuilder assembles the sound-design prompt
func SoundPromptBuilder(p *models.Project, opts SoundOptions, cat *catalog.Catalog) *Builder {
	versionContext := "Suno.ai v3.5 (Standard)."
	if opts.Version == SoundVersionV5 {
		versionContext = "Suno v5 (Latest). Focus on high-fidelity, clarity, and modern production standards."
	}

	b := NewBuilder()
	b.Set(SectionBase, fmt.Sprintf(`Construct a high-quality prompt for a music generation AI (%s).

Project Metadata:
- Genre: %s (%s)
- Mood: %s
- Style: %s
- Instruments: %s
- Vocal Type: %s
- BPM: %d
- Key: %s`, versionContext, p.Genre, p.SubGenre, p.Mood, p.StyleDescription,
		strings.Join(p.Instruments, ", "), p.VocalType, p.BPM, p.Key))
	b.Set(SectionNegativeConstraints, negativeConstraintsFragment(p.ExcludedThemes))
	if opts.StrictMode {
		b.Set(SectionStrictMode, strictSoundFragment)
	}
	setIntroStyle(b, p, cat, introStyleSoundFragment)
	b.Set(SectionInstructions, `Requirement:
- Create a comma-separated list of tags and style descriptors.
- Include genre, mood, key instruments, vocal type, and production style.
- Format: "[Tag 1], [Tag 2], [Tag 3], ..."
- Limit to around 200 characters max.
- Output ONLY the prompt string.`)
	return b
}

// SoundPrompt builds a free-text sound prompt request
func SoundPrompt(p *models.Project, opts SoundOptions, cat *catalog.Catalog) *llm.TextRequest {
	return &llm.TextRequest{
		Facet:  models.FacetSoundPrompt,
		Tier:   llm.TierStandard,
		Prompt: SoundPromptBuilder(p, opts, cat).Build(),
	}
}

// CompositionAdviceBuilder assembles the composition advice prompt
func CompositionAdviceBuilder(p *models.Project) *Builder {
	b := NewBuilder()
	b.Set(SectionBase, fmt.Sprintf(`Provide professional AI music composition suggestions for a %s (%s) song.
Mood: %s.
BPM: %d.
Key: %s.
Instruments: %s.`, p.Genre, p.SubGenre, p.Mood, p.BPM, p.Key, strings.Join(p.Instruments, ", ")))
	b.Set(SectionNegativeConstraints, negativeConstraintsFragment(p.ExcludedThemes))
	b.Set(SectionInstructions, `Requirements:
- Provide structured advice in Korean.
- Focus on 3 categories:
  1. Rhythmic Patterns (리듬 가이드)
  2. Melodic Style (멜로디 제안)
  3. Harmonic Progression (추천 코드 진행)
- Be specific to the genre.
- Keep it concise and actionable for someone creating music with a generation AI.
- Format with Markdown.`)
	return b
}

// CompositionAdvice builds a free-text advice request
func CompositionAdvice(p *models.Project) *llm.TextRequest {
	return &llm.TextRequest{
		Facet:  models.FacetCompositionAdvice,
		Tier:   llm.TierStandard,
		Prompt: CompositionAdviceBuilder(p).Build(),
	}
}

// CoverArtBuilder assembles the image instruction
func CoverArtBuilder(p *models.Project, opts CoverArtOptions, preset catalog.SizePreset) *Builder {
	b := NewBuilder()
	b.Set(SectionBase, fmt.Sprintf(`Album cover art for a song.

[Song Info]
Genre: %s

[Visual Concept]
Mood: %s
Style: %s
Subject/Characters: %s
Detailed Description: %s`, p.Genre, opts.VisualMood, opts.VisualStyle, opts.Characters,
		orDefault(opts.Description, "A creative and atmospheric composition representing the music.")))

	instructions := fmt.Sprintf("Instructions:\n- High quality, creative composition.\n- Target Ratio: %s (%s)",
		preset.Label, preset.Ratio)
	if preset.Addon != "" {
		instructions += "\n- " + preset.Addon
	}
	instructions += "\n- Do NOT add text if possible, as it will be added as an overlay."
	b.Set(SectionInstructions, instructions)
	return b
}

// CoverArt builds an image request. The aspect ratio is mapped onto one the backend accepts.
func CoverArt(p *models.Project, opts CoverArtOptions, cat *catalog.Catalog) *llm.ImageRequest {
	preset := cat.SizePreset(opts.SizePresetID)
	req := &llm.ImageRequest{
		Prompt:      CoverArtBuilder(p, opts, preset).Build(),
		Pro:         opts.Pro,
		AspectRatio: catalog.APIAspectRatio(preset.Ratio),
	}
	if opts.Pro {
		req.ImageSize = orDefault(opts.ImageSize, "1K")
	}
	return req
}

// Tempo builds an audio analysis request for BPM detection
func Tempo(mimeType string, data []byte) *llm.AudioRequest {
	return &llm.AudioRequest{
		Prompt:   TempoPrompt,
		MIMEType: mimeType,
		Data:     data,
	}
}

func setIntroStyle(b *Builder, p *models.Project, cat *catalog.Catalog, render func(catalog.IntroStyle) string) {
	if p.IntroStyle == "" || cat == nil {
		return
	}
	if style, ok := cat.IntroStyle(p.IntroStyle); ok {
		b.Set(SectionIntroStyle, render(style))
	}
}
