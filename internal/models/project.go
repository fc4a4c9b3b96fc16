package models

// Block types accepted in a project structure
const (
	BlockIntro        = "Intro"
	BlockVerse        = "Verse"
	BlockChorus       = "Chorus"
	BlockBridge       = "Bridge"
	BlockDrop         = "Drop"
	BlockInstrumental = "Instrumental"
	BlockOutro        = "Outro"
)

// BlockTypes lists the structural vocabulary in display order
var BlockTypes = []string{
	BlockIntro, BlockVerse, BlockChorus, BlockBridge, BlockDrop, BlockInstrumental, BlockOutro,
}

// IsBlockType reports whether t belongs to the structural vocabulary
func IsBlockType(t string) bool {
	for _, bt := range BlockTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// Project is the top-level creative unit
type Project struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Genre            string `json:"genre"`
	SubGenre         string `json:"subGenre"`
	Mood             string `json:"mood"`
	StyleDescription string `json:"styleDescription"`
	BPM              int    `json:"bpm"`
	Key              string `json:"key"`
	CreatedAt        int64  `json:"createdAt"` // unix milliseconds

	ReferenceSongTitle string `json:"referenceSongTitle,omitempty"`
	ReferenceArtist    string `json:"referenceArtist,omitempty"`

	Concept           string      `json:"concept,omitempty"`
	GeneratedTitles   []string    `json:"generatedTitles"`
	Structure         []SongBlock `json:"structure"`
	Lyrics            string      `json:"lyrics"`
	ExcludedThemes    string      `json:"excludedThemes,omitempty"`
	SoundPrompt       string      `json:"sunoPrompt"`
	CoverImage        string      `json:"coverImage,omitempty"` // data URL
	CompositionAdvice string      `json:"compositionAdvice,omitempty"`

	LyricVariations             []LyricVariation `json:"lyricVariations"`
	SelectedLyricVariationIndex *int             `json:"selectedLyricVariationIndex"`

	Instruments   []string `json:"instruments"`
	VocalType     string   `json:"vocalType"`
	SignatureName string   `json:"djName,omitempty"`
	IntroStyle    string   `json:"introStyle,omitempty"`
}

// SongBlock is one ordered structural segment of a song
type SongBlock struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
}

// LyricVariation is one candidate lyric set
type LyricVariation struct {
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
	Lyrics    string `json:"lyrics"`
}

// Clone returns a deep copy of the project
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.GeneratedTitles = cloneStrings(p.GeneratedTitles)
	c.Instruments = cloneStrings(p.Instruments)
	if p.Structure != nil {
		c.Structure = make([]SongBlock, len(p.Structure))
		copy(c.Structure, p.Structure)
	}
	if p.LyricVariations != nil {
		c.LyricVariations = make([]LyricVariation, len(p.LyricVariations))
		copy(c.LyricVariations, p.LyricVariations)
	}
	if p.SelectedLyricVariationIndex != nil {
		idx := *p.SelectedLyricVariationIndex
		c.SelectedLyricVariationIndex = &idx
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ProjectSeed carries the fields required to create a project
type ProjectSeed struct {
	Title    string `json:"title" binding:"required"`
	Genre    string `json:"genre" binding:"required"`
	SubGenre string `json:"subGenre"`
	Mood     string `json:"mood" binding:"required"`
}

// ProjectPatch is a shallow partial update. Nil fields are left untouched;
// non-nil slices replace the stored slice wholesale.
type ProjectPatch struct {
	Title              *string `json:"title,omitempty"`
	Genre              *string `json:"genre,omitempty"`
	SubGenre           *string `json:"subGenre,omitempty"`
	Mood               *string `json:"mood,omitempty"`
	StyleDescription   *string `json:"styleDescription,omitempty"`
	BPM                *int    `json:"bpm,omitempty"`
	Key                *string `json:"key,omitempty"`
	ReferenceSongTitle *string `json:"referenceSongTitle,omitempty"`
	ReferenceArtist    *string `json:"referenceArtist,omitempty"`
	Concept            *string `json:"concept,omitempty"`
	Lyrics             *string `json:"lyrics,omitempty"`
	ExcludedThemes     *string `json:"excludedThemes,omitempty"`
	SoundPrompt        *string `json:"sunoPrompt,omitempty"`
	CoverImage         *string `json:"coverImage,omitempty"`
	CompositionAdvice  *string `json:"compositionAdvice,omitempty"`
	VocalType          *string `json:"vocalType,omitempty"`
	SignatureName      *string `json:"djName,omitempty"`
	IntroStyle         *string `json:"introStyle,omitempty"`

	GeneratedTitles []string         `json:"generatedTitles,omitempty"`
	Structure       []SongBlock      `json:"structure,omitempty"`
	LyricVariations []LyricVariation `json:"lyricVariations,omitempty"`
	Instruments     []string         `json:"instruments,omitempty"`
}

// ThemePack is a generated song idea
type ThemePack struct {
	Title string `json:"title"`
	Topic string `json:"topic"`
	Style string `json:"style"`
}

// ReferenceSuggestion names a song that represents the project's genre and mood
type ReferenceSuggestion struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// SamplePrompt is a user-curated sound prompt snippet
type SamplePrompt struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// InstrumentPreset is a named instrument selection
type InstrumentPreset struct {
	Name        string   `json:"name"`
	Instruments []string `json:"instruments"`
}
