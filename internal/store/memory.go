package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
)

// InMemoryRunStore implements RunStore for tests and for runs that should not
// touch the disk.
type InMemoryRunStore struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string // insertion order
}

// NewInMemoryRunStore creates an empty in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{records: make(map[string]Record)}
}

// SaveRun stores a copy of rec.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Run.ID == "" {
		rec.Run.ID = uuid.NewString()
	}
	if _, exists := s.records[rec.Run.ID]; exists {
		return "", fmt.Errorf("run %s already exists", rec.Run.ID)
	}
	rec.Run.Nodes = len(rec.States)
	rec.States = slices.Clone(rec.States)
	rec.Lineage = slices.Clone(rec.Lineage)
	s.records[rec.Run.ID] = rec
	s.order = append(s.order, rec.Run.ID)
	return rec.Run.ID, nil
}

// GetRun returns the summary row of a run.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	run := rec.Run
	return &run, nil
}

// ListRuns returns the most recent runs first; ties keep the later insertion first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		runs = append(runs, s.records[s.order[i]].Run)
	}
	slices.SortStableFunc(runs, func(a, b Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// NodeStates returns the saved node rows of a run.
func (s *InMemoryRunStore) NodeStates(ctx context.Context, id string) ([]graph.NodeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return slices.Clone(rec.States), nil
}

// Lineage returns the saved lineage events of a run.
func (s *InMemoryRunStore) Lineage(ctx context.Context, id string) ([]models.LineageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return slices.Clone(rec.Lineage), nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	delete(s.records, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error { return nil }
