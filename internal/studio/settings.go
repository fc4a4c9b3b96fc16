package studio

import (
	"context"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

// SamplePrompts returns the stored sample prompts, or the catalog defaults
// when none were ever saved. On a store failure the defaults are returned
// together with the error.
func (s *Service) SamplePrompts(ctx context.Context) ([]models.SamplePrompt, error) {
	prompts, found, err := s.store.GetSamplePrompts(ctx)
	if err != nil || !found {
		return append([]models.SamplePrompt{}, s.catalog.SamplePrompts...), err
	}
	return prompts, nil
}

// SetSamplePrompts stores the custom sample prompt list
func (s *Service) SetSamplePrompts(ctx context.Context, prompts []models.SamplePrompt) error {
	for _, p := range prompts {
		if strings.TrimSpace(p.Label) == "" || strings.TrimSpace(p.Text) == "" {
			return &ValidationError{Field: "prompts", Reason: "label and text are required"}
		}
	}
	return s.store.SetSamplePrompts(ctx, prompts)
}

// InstrumentPresets returns the stored instrument presets
func (s *Service) InstrumentPresets(ctx context.Context) ([]models.InstrumentPreset, error) {
	presets, err := s.store.GetInstrumentPresets(ctx)
	if presets == nil {
		presets = []models.InstrumentPreset{}
	}
	return presets, err
}

// SetInstrumentPresets stores the instrument presets
func (s *Service) SetInstrumentPresets(ctx context.Context, presets []models.InstrumentPreset) error {
	for _, p := range presets {
		if strings.TrimSpace(p.Name) == "" {
			return &ValidationError{Field: "presets", Reason: "name is required"}
		}
	}
	return s.store.SetInstrumentPresets(ctx, presets)
}

// Legibility returns the high-contrast display toggle
func (s *Service) Legibility(ctx context.Context) (bool, error) {
	return s.store.GetLegibility(ctx)
}

// SetLegibility stores the high-contrast display toggle
func (s *Service) SetLegibility(ctx context.Context, enabled bool) error {
	return s.store.SetLegibility(ctx, enabled)
}
