// Package inmemory keeps saved plans in a map. Nothing survives the process.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/leofalp/stageflow/providers/observability"
	"github.com/leofalp/stageflow/providers/store"
)

// Store is a concurrency-safe in-memory store.Store.
type Store struct {
	mu    sync.RWMutex
	plans map[string]store.SavedPlan
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{plans: make(map[string]store.SavedPlan)}
}

// Save stores a copy of p.
func (s *Store) Save(ctx context.Context, p *store.SavedPlan) error {
	s.mu.Lock()
	if existing, ok := s.plans[p.ID]; ok && p.ID != "" && p.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}
	store.Prepare(p, time.Now())
	s.plans[p.ID] = p.Clone()
	s.mu.Unlock()

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("store.save",
			observability.String(observability.AttrStoreBackend, "memory"),
			observability.String(observability.AttrStorePlanID, p.ID),
		)
	}
	return nil
}

// Get returns a copy of the plan with id.
func (s *Store) Get(_ context.Context, id string) (*store.SavedPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := p.Clone()
	return &clone, nil
}

// List returns copies of every plan, newest first.
func (s *Store) List(_ context.Context) ([]store.SavedPlan, error) {
	s.mu.RLock()
	out := make([]store.SavedPlan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b store.SavedPlan) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// Delete removes the plan with id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.plans, id)
	return nil
}
