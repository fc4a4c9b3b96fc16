package studio

import (
	"sort"
	"sync"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

type seqKey struct {
	project string
	facet   models.Facet
}

type seqEntry struct {
	latest   uint64
	inFlight bool
}

// Ticket identifies one generation call
type Ticket struct {
	key seqKey
	n   uint64
}

// Sequencer hands out monotonic tickets per (project, facet). Only the holder
// of the latest ticket may apply its result.
type Sequencer struct {
	mu      sync.Mutex
	entries map[seqKey]*seqEntry
}

// NewSequencer creates an empty sequencer
func NewSequencer() *Sequencer {
	return &Sequencer{entries: make(map[seqKey]*seqEntry)}
}

// Begin issues a new ticket, superseding every earlier one for the same facet
func (s *Sequencer) Begin(projectID string, facet models.Facet) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := seqKey{project: projectID, facet: facet}
	e, ok := s.entries[k]
	if !ok {
		e = &seqEntry{}
		s.entries[k] = e
	}
	e.latest++
	e.inFlight = true
	return Ticket{key: k, n: e.latest}
}

// Current reports whether t is still the latest ticket
func (s *Sequencer) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[t.key]
	return ok && e.latest == t.n
}

// Finish settles a ticket and reports whether it was the latest
func (s *Sequencer) Finish(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[t.key]
	if !ok || e.latest != t.n {
		return false
	}
	e.inFlight = false
	return true
}

// Pending lists the facets of a project whose latest ticket is unsettled
func (s *Sequencer) Pending(projectID string) []models.Facet {
	s.mu.Lock()
	defer s.mu.Unlock()
	facets := []models.Facet{}
	for k, e := range s.entries {
		if k.project == projectID && e.inFlight {
			facets = append(facets, k.facet)
		}
	}
	sort.Slice(facets, func(i, j int) bool { return facets[i] < facets[j] })
	return facets
}

// Forget drops every entry of a deleted project
func (s *Sequencer) Forget(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.project == projectID {
			delete(s.entries, k)
		}
	}
}
