// Package catalog exposes the static reference data that generation requests
// and structure edits draw on.
package catalog

import (
	"fmt"
	"sync"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/pkg/embedded"
	"gopkg.in/yaml.v3"
)

const (
	defaultBlockDescription = "..."
	shortBlockDuration      = 4
	defaultBlockDuration    = 8
)

// IntroStyle is a selectable opening vibe
type IntroStyle struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
	Tags        string `yaml:"tags" json:"tags"`
}

// Template is a named block sequence
type Template struct {
	Name   string          `yaml:"name" json:"name"`
	Blocks []TemplateBlock `yaml:"blocks" json:"blocks"`
}

// TemplateBlock is a block without identity
type TemplateBlock struct {
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
	Duration    int    `yaml:"duration" json:"duration"`
}

// SizePreset is a cover art output format
type SizePreset struct {
	ID    int    `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Ratio string `yaml:"ratio" json:"ratio"`
	Addon string `yaml:"addon" json:"addon,omitempty"`
}

// Catalog holds all static reference tables
type Catalog struct {
	IntroStyles   []IntroStyle          `yaml:"intro_styles" json:"introStyles"`
	GenreDefaults map[string][]string   `yaml:"genre_defaults" json:"genreDefaults"`
	BlockSamples  map[string][]string   `yaml:"block_samples" json:"blockSamples"`
	Templates     []Template            `yaml:"templates" json:"templates"`
	SizePresets   []SizePreset          `yaml:"image_size_presets" json:"sizePresets"`
	SamplePrompts []models.SamplePrompt `yaml:"sample_prompts" json:"samplePrompts"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog parsed from the embedded data file
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embedded.CatalogYAML)
	})
	return defaultCatalog, defaultErr
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: failed to parse: %w", err)
	}
	for _, t := range c.Templates {
		for i, b := range t.Blocks {
			if !models.IsBlockType(b.Type) {
				return nil, fmt.Errorf("catalog: template %q block %d has unknown type %q", t.Name, i, b.Type)
			}
		}
	}
	for blockType := range c.BlockSamples {
		if !models.IsBlockType(blockType) {
			return nil, fmt.Errorf("catalog: samples declared for unknown block type %q", blockType)
		}
	}
	return &c, nil
}

// IntroStyle looks up an intro style by id
func (c *Catalog) IntroStyle(id string) (IntroStyle, bool) {
	for _, s := range c.IntroStyles {
		if s.ID == id {
			return s, true
		}
	}
	return IntroStyle{}, false
}

// Template looks up a structure template by name
func (c *Catalog) Template(name string) (Template, bool) {
	for _, t := range c.Templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// SizePreset looks up a cover art size preset, falling back to the first one
func (c *Catalog) SizePreset(id int) SizePreset {
	for _, p := range c.SizePresets {
		if p.ID == id {
			return p
		}
	}
	if len(c.SizePresets) > 0 {
		return c.SizePresets[0]
	}
	return SizePreset{Label: "Square (1:1)", Ratio: "1:1"}
}

// DefaultInstruments returns a copy of the instrument defaults for a genre
func (c *Catalog) DefaultInstruments(genre string) []string {
	defaults := c.GenreDefaults[genre]
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}

// DefaultBlock fills in description and duration for a new block of the given type
func (c *Catalog) DefaultBlock(blockType string) (description string, duration int) {
	description = defaultBlockDescription
	if samples := c.BlockSamples[blockType]; len(samples) > 0 {
		description = samples[0]
	}
	duration = defaultBlockDuration
	if blockType == models.BlockIntro || blockType == models.BlockOutro {
		duration = shortBlockDuration
	}
	return description, duration
}

// APIAspectRatio maps a display ratio onto one the image backend accepts
func APIAspectRatio(ratio string) string {
	switch ratio {
	case "1:1", "3:4", "4:3", "9:16", "16:9":
		return ratio
	case "4:5":
		return "3:4"
	case "1.91:1", "21:9":
		return "16:9"
	case "1:2":
		return "9:16"
	}
	return "1:1"
}
