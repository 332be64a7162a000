// Package memory provides a process-local domain.Store. State is lost on
// exit; used for the "memory" backend and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// Store keeps points and journal events in maps guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	points map[string]domain.PointsState
	events map[string][]domain.PointEvent
	seen   map[string]struct{}
	closed bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		points: make(map[string]domain.PointsState),
		events: make(map[string][]domain.PointEvent),
		seen:   make(map[string]struct{}),
	}
}

// LoadPoints returns a copy of the saved state, or nil when absent.
func (s *Store) LoadPoints(_ context.Context, userKey string) (*domain.PointsState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrPersistenceUnavailable
	}
	st, ok := s.points[userKey]
	if !ok {
		return nil, nil
	}
	c := st.Clone()
	return &c, nil
}

// SavePoints stores a copy of state.
func (s *Store) SavePoints(_ context.Context, userKey string, state domain.PointsState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrPersistenceUnavailable
	}
	s.points[userKey] = state.Clone()
	return nil
}

// AppendPointEvent records ev. An ID already recorded is a no-op.
func (s *Store) AppendPointEvent(_ context.Context, ev domain.PointEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrPersistenceUnavailable
	}
	if _, dup := s.seen[ev.ID]; dup {
		return nil
	}
	s.seen[ev.ID] = struct{}{}
	s.events[ev.UserKey] = append(s.events[ev.UserKey], ev)
	return nil
}

// ListPointEvents returns up to limit events, newest first.
func (s *Store) ListPointEvents(_ context.Context, userKey string, limit int) ([]domain.PointEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrPersistenceUnavailable
	}
	all := s.events[userKey]
	out := make([]domain.PointEvent, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Ping fails once the store is closed.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrPersistenceUnavailable
	}
	return nil
}

// Close marks the store unavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
