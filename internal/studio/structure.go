package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

// ReorderBlock swaps the blocks at positions from and to
func (s *Service) ReorderBlock(ctx context.Context, id string, from, to int) (*models.Project, error) {
	return s.mutate(ctx, id, func(p *models.Project) error {
		n := len(p.Structure)
		if from < 0 || from >= n || to < 0 || to >= n {
			return &ValidationError{Field: "position", Reason: fmt.Sprintf("swap %d<->%d out of range for %d blocks", from, to, n)}
		}
		p.Structure = swapped(p.Structure, from, to)
		return nil
	})
}

// MoveBlock swaps a block with its neighbour in the direction of delta (-1 or 1).
// Moving past either end is a no-op.
func (s *Service) MoveBlock(ctx context.Context, id string, index, delta int) (*models.Project, error) {
	if delta != -1 && delta != 1 {
		return nil, &ValidationError{Field: "delta", Reason: "must be -1 or 1"}
	}
	return s.mutate(ctx, id, func(p *models.Project) error {
		n := len(p.Structure)
		if index < 0 || index >= n {
			return &ValidationError{Field: "index", Reason: fmt.Sprintf("%d is out of range for %d blocks", index, n)}
		}
		target := index + delta
		if target < 0 || target >= n {
			return nil
		}
		p.Structure = swapped(p.Structure, index, target)
		return nil
	})
}

// InsertBlock adds a block at position; a position out of range appends.
// Empty description and zero duration take the catalog defaults for the type.
func (s *Service) InsertBlock(ctx context.Context, id string, position int, block models.SongBlock) (*models.Project, error) {
	if !models.IsBlockType(block.Type) {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown block type %q", block.Type)}
	}
	if block.Duration < 0 {
		return nil, &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	description, duration := s.catalog.DefaultBlock(block.Type)
	if strings.TrimSpace(block.Description) == "" {
		block.Description = description
	}
	if block.Duration == 0 {
		block.Duration = duration
	}
	block.ID = s.newID()

	return s.mutate(ctx, id, func(p *models.Project) error {
		structure := make([]models.SongBlock, 0, len(p.Structure)+1)
		if position < 0 || position >= len(p.Structure) {
			structure = append(structure, p.Structure...)
			structure = append(structure, block)
		} else {
			structure = append(structure, p.Structure[:position]...)
			structure = append(structure, block)
			structure = append(structure, p.Structure[position:]...)
		}
		p.Structure = structure
		return nil
	})
}

// RemoveBlock deletes one block by id
func (s *Service) RemoveBlock(ctx context.Context, id, blockID string) (*models.Project, error) {
	return s.mutate(ctx, id, func(p *models.Project) error {
		i := blockIndex(p.Structure, blockID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
		}
		structure := make([]models.SongBlock, 0, len(p.Structure)-1)
		structure = append(structure, p.Structure[:i]...)
		p.Structure = append(structure, p.Structure[i+1:]...)
		return nil
	})
}

// UpdateBlockDescription rewrites the description of one block
func (s *Service) UpdateBlockDescription(ctx context.Context, id, blockID, description string) (*models.Project, error) {
	return s.mutate(ctx, id, func(p *models.Project) error {
		i := blockIndex(p.Structure, blockID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
		}
		structure := append([]models.SongBlock{}, p.Structure...)
		structure[i].Description = description
		p.Structure = structure
		return nil
	})
}

// ApplyTemplate replaces the structure with a catalog template
func (s *Service) ApplyTemplate(ctx context.Context, id, name string) (*models.Project, error) {
	tmpl, ok := s.catalog.Template(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateUnknown, name)
	}
	return s.mutate(ctx, id, func(p *models.Project) error {
		structure := make([]models.SongBlock, len(tmpl.Blocks))
		for i, b := range tmpl.Blocks {
			structure[i] = models.SongBlock{
				ID:          s.newID(),
				Type:        b.Type,
				Description: b.Description,
				Duration:    b.Duration,
			}
		}
		p.Structure = structure
		return nil
	})
}

// withIDs copies blocks, giving every block without an id a fresh one
func (s *Service) withIDs(blocks []models.SongBlock) []models.SongBlock {
	out := make([]models.SongBlock, len(blocks))
	for i, b := range blocks {
		if b.ID == "" {
			b.ID = s.newID()
		}
		out[i] = b
	}
	return out
}

func validateBlocks(blocks []models.SongBlock) error {
	seen := make(map[string]bool, len(blocks))
	for i, b := range blocks {
		if !models.IsBlockType(b.Type) {
			return &ValidationError{Field: fmt.Sprintf("structure[%d].type", i), Reason: fmt.Sprintf("unknown block type %q", b.Type)}
		}
		if b.ID == "" {
			continue
		}
		if seen[b.ID] {
			return &ValidationError{Field: fmt.Sprintf("structure[%d].id", i), Reason: "duplicate block id"}
		}
		seen[b.ID] = true
	}
	return nil
}

func swapped(blocks []models.SongBlock, i, j int) []models.SongBlock {
	out := append([]models.SongBlock{}, blocks...)
	out[i], out[j] = out[j], out[i]
	return out
}

func blockIndex(blocks []models.SongBlock, blockID string) int {
	for i, b := range blocks {
		if b.ID == blockID {
			return i
		}
	}
	return -1
}
