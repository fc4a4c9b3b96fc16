package models

// Facet identifies one generation pipeline of a project
type Facet string

const (
	FacetThemePacks        Facet = "theme_packs"
	FacetTitles            Facet = "titles"
	FacetReferences        Facet = "references"
	FacetLyrics            Facet = "lyrics"
	FacetVariations        Facet = "variations"
	FacetSoundPrompt       Facet = "sound_prompt"
	FacetCompositionAdvice Facet = "composition_advice"
	FacetTempo             Facet = "tempo"
	FacetCoverArt          Facet = "cover_art"
)
