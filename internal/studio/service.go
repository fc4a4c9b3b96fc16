// Package studio owns the project collection: data model operations with their
// invariants, and the generation pipelines that fold backend results into projects.
package studio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/catalog"
	"github.com/Conceptual-Machines/songsmith-api/internal/logger"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/store"
	"github.com/oklog/ulid/v2"
)

// Service holds the in-memory project list. The store mirrors it after every
// mutation; when a write fails the in-memory list stays authoritative.
type Service struct {
	store   store.Adapter
	catalog *catalog.Catalog
	seq     *Sequencer

	mu       sync.Mutex
	projects []*models.Project

	// persistMu is taken before mu is released so writes land in mutation order
	persistMu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewService creates an empty service. Call Load to read the stored projects.
func NewService(adapter store.Adapter, cat *catalog.Catalog) *Service {
	return &Service{
		store:   adapter,
		catalog: cat,
		seq:     NewSequencer(),
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
	}
}

// Catalog returns the static reference data the service draws on
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Load replaces the in-memory list with the stored one.
// A store failure leaves the list empty and is returned as a warning.
func (s *Service) Load(ctx context.Context) error {
	projects, err := s.store.GetProjects(ctx)
	if err != nil {
		logger.Warn("Failed to load projects, starting empty", logger.Fields{"error": err.Error()})
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = projects
	logger.Info("Projects loaded", logger.Fields{"count": len(projects)})
	return nil
}

// List returns copies of every project, newest first
func (s *Service) List() []*models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = p.Clone()
	}
	return out
}

// Get returns a copy of one project
func (s *Service) Get(id string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(id)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return p.Clone(), nil
}

// Pending lists the facets of a project with an in-flight request
func (s *Service) Pending(id string) []models.Facet {
	return s.seq.Pending(id)
}

func (s *Service) find(id string) *models.Project {
	for _, p := range s.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Service) indexOf(id string) int {
	for i, p := range s.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// mutate applies fn to the project under the lock and persists the list.
// The returned project is a copy of the result; a non-nil project with a
// *store.PersistenceFailure means the change applied but was not stored.
func (s *Service) mutate(ctx context.Context, id string, fn func(p *models.Project) error) (*models.Project, error) {
	s.mu.Lock()
	p := s.find(id)
	if p == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err := fn(p); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	result := p.Clone()
	return result, s.persistLocked(ctx)
}

// persistLocked snapshots the list, releases mu and writes the snapshot.
// Callers must hold mu.
func (s *Service) persistLocked(ctx context.Context) error {
	snapshot := make([]*models.Project, len(s.projects))
	for i, p := range s.projects {
		snapshot[i] = p.Clone()
	}
	s.persistMu.Lock()
	s.mu.Unlock()
	defer s.persistMu.Unlock()

	if err := s.store.SetProjects(ctx, snapshot); err != nil {
		logger.Warn("Failed to persist projects", logger.Fields{"error": err.Error()})
		return err
	}
	return nil
}
