package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/logger"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

const (
	defaultVocalType = "Male"
	remixSuffix      = " (Remix)"
)

// CreateProject prepends a new project built from the seed
func (s *Service) CreateProject(ctx context.Context, seed models.ProjectSeed) (*models.Project, error) {
	seed.Title = strings.TrimSpace(seed.Title)
	seed.Genre = strings.TrimSpace(seed.Genre)
	seed.Mood = strings.TrimSpace(seed.Mood)
	switch {
	case seed.Title == "":
		return nil, &ValidationError{Field: "title", Reason: "required"}
	case seed.Genre == "":
		return nil, &ValidationError{Field: "genre", Reason: "required"}
	case seed.Mood == "":
		return nil, &ValidationError{Field: "mood", Reason: "required"}
	}

	p := &models.Project{
		ID:              s.newID(),
		Title:           seed.Title,
		Genre:           seed.Genre,
		SubGenre:        strings.TrimSpace(seed.SubGenre),
		Mood:            seed.Mood,
		CreatedAt:       s.now().UnixMilli(),
		GeneratedTitles: []string{},
		Structure:       []models.SongBlock{},
		Instruments:     s.catalog.DefaultInstruments(seed.Genre),
		VocalType:       defaultVocalType,
	}

	logger.Info("Project created", logger.Fields{"project_id": p.ID, "genre": p.Genre})
	return s.prepend(ctx, p)
}

// UpdateProject shallow-merges the patch. Non-nil slices replace the stored
// ones wholesale; replacing the variations resets the applied index.
func (s *Service) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if patch.BPM != nil && *patch.BPM < 0 {
		return nil, &ValidationError{Field: "bpm", Reason: "must not be negative"}
	}
	if patch.Structure != nil {
		if err := validateBlocks(patch.Structure); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, id, func(p *models.Project) error {
		setString(&p.Title, patch.Title)
		setString(&p.Genre, patch.Genre)
		setString(&p.SubGenre, patch.SubGenre)
		setString(&p.Mood, patch.Mood)
		setString(&p.StyleDescription, patch.StyleDescription)
		setString(&p.Key, patch.Key)
		setString(&p.ReferenceSongTitle, patch.ReferenceSongTitle)
		setString(&p.ReferenceArtist, patch.ReferenceArtist)
		setString(&p.Concept, patch.Concept)
		setString(&p.Lyrics, patch.Lyrics)
		setString(&p.ExcludedThemes, patch.ExcludedThemes)
		setString(&p.SoundPrompt, patch.SoundPrompt)
		setString(&p.CoverImage, patch.CoverImage)
		setString(&p.CompositionAdvice, patch.CompositionAdvice)
		setString(&p.VocalType, patch.VocalType)
		setString(&p.SignatureName, patch.SignatureName)
		setString(&p.IntroStyle, patch.IntroStyle)
		if patch.BPM != nil {
			p.BPM = *patch.BPM
		}

		if patch.GeneratedTitles != nil {
			p.GeneratedTitles = append([]string{}, patch.GeneratedTitles...)
		}
		if patch.Instruments != nil {
			p.Instruments = append([]string{}, patch.Instruments...)
		}
		if patch.Structure != nil {
			p.Structure = s.withIDs(patch.Structure)
		}
		if patch.LyricVariations != nil {
			replaceVariations(p, patch.LyricVariations)
		}
		return nil
	})
}

// DeleteProject removes a project from the collection
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	s.projects = append(s.projects[:i:i], s.projects[i+1:]...)
	s.seq.Forget(id)
	logger.Info("Project deleted", logger.Fields{"project_id": id})
	return s.persistLocked(ctx)
}

// ApplyVariation copies the chosen variation into the primary lyrics and
// records its index, overwriting any earlier choice
func (s *Service) ApplyVariation(ctx context.Context, id string, index int) (*models.Project, error) {
	return s.mutate(ctx, id, func(p *models.Project) error {
		if index < 0 || index >= len(p.LyricVariations) {
			return &ValidationError{
				Field:  "index",
				Reason: fmt.Sprintf("%d is out of range for %d variations", index, len(p.LyricVariations)),
			}
		}
		p.Lyrics = p.LyricVariations[index].Lyrics
		applied := index
		p.SelectedLyricVariationIndex = &applied
		return nil
	})
}

// ReplaceVariations swaps in a new variation set and clears the applied index
func (s *Service) ReplaceVariations(ctx context.Context, id string, variations []models.LyricVariation) (*models.Project, error) {
	return s.mutate(ctx, id, func(p *models.Project) error {
		replaceVariations(p, variations)
		return nil
	})
}

// ImportProject adds an exported project under a new id
func (s *Service) ImportProject(ctx context.Context, imported *models.Project) (*models.Project, error) {
	if imported == nil || strings.TrimSpace(imported.ID) == "" || strings.TrimSpace(imported.Title) == "" {
		return nil, &ValidationError{Field: "project", Reason: "id and title are required"}
	}
	if err := validateBlocks(imported.Structure); err != nil {
		return nil, err
	}

	p := imported.Clone()
	p.ID = s.newID()
	if p.CreatedAt == 0 {
		p.CreatedAt = s.now().UnixMilli()
	}
	p.Structure = s.withIDs(p.Structure)
	if idx := p.SelectedLyricVariationIndex; idx != nil && (*idx < 0 || *idx >= len(p.LyricVariations)) {
		p.SelectedLyricVariationIndex = nil
	}

	logger.Info("Project imported", logger.Fields{"project_id": p.ID, "source_id": imported.ID})
	return s.prepend(ctx, p)
}

// RemixProject prepends a copy of a project with a new id and a remix title
func (s *Service) RemixProject(ctx context.Context, id string) (*models.Project, error) {
	s.mu.Lock()
	src := s.find(id)
	if src == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	remix := src.Clone()
	remix.ID = s.newID()
	remix.Title = src.Title + remixSuffix
	remix.CreatedAt = s.now().UnixMilli()
	s.projects = append([]*models.Project{remix}, s.projects...)

	logger.Info("Project remixed", logger.Fields{"project_id": remix.ID, "source_id": id})
	return remix.Clone(), s.persistLocked(ctx)
}

func (s *Service) prepend(ctx context.Context, p *models.Project) (*models.Project, error) {
	s.mu.Lock()
	s.projects = append([]*models.Project{p}, s.projects...)
	return p.Clone(), s.persistLocked(ctx)
}

func replaceVariations(p *models.Project, variations []models.LyricVariation) {
	p.LyricVariations = append([]models.LyricVariation{}, variations...)
	p.SelectedLyricVariationIndex = nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
