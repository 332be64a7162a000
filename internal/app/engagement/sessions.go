package engagement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/infra/metrics"
	"github.com/kickoff-wellness/kickoff/internal/logger"
)

// Sessions hands out one Engine per user, loading it from the store on
// first use. It is the explicit context object callers receive instead of
// reaching for shared global state.
type Sessions struct {
	store domain.Store
	opts  []Option
	now   func() time.Time
	log   *slog.Logger

	mu      sync.Mutex
	engines map[string]*session
}

type session struct {
	engine   *Engine
	lastUsed time.Time
}

// NewSessions creates a registry backed by store. opts apply to every engine.
func NewSessions(store domain.Store, opts ...Option) *Sessions {
	return &Sessions{
		store:   store,
		opts:    opts,
		now:     time.Now,
		log:     logger.Component("sessions"),
		engines: make(map[string]*session),
	}
}

// Get returns the engine for userKey, loading it if needed.
func (s *Sessions) Get(ctx context.Context, userKey string) (*Engine, error) {
	if userKey == "" {
		return nil, domain.ErrEmptyUserKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.engines[userKey]; ok {
		sess.lastUsed = s.now()
		return sess.engine, nil
	}
	e, err := Load(ctx, userKey, s.store, s.opts...)
	if err != nil {
		return nil, err
	}
	s.engines[userKey] = &session{engine: e, lastUsed: s.now()}
	metrics.SessionsActive.Set(float64(len(s.engines)))
	return e, nil
}

// EvictIdle unloads every engine not handed out for maxIdle and returns how
// many were dropped. Their state was already given to the store, so the
// next Get reloads it; undisplayed pending notifications are discarded.
func (s *Sessions) EvictIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	evicted := 0
	for key, sess := range s.engines {
		if sess.lastUsed.Before(cutoff) {
			delete(s.engines, key)
			evicted++
		}
	}
	metrics.SessionsActive.Set(float64(len(s.engines)))
	return evicted
}

// Run sweeps idle engines every maxIdle/2 until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context, maxIdle time.Duration) {
	ticker := time.NewTicker(max(maxIdle/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(maxIdle); n > 0 {
				s.log.Debug("evicted idle sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}

// Len returns the number of loaded engines.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}

// History returns the newest point events for userKey.
func (s *Sessions) History(ctx context.Context, userKey string, limit int) ([]domain.PointEvent, error) {
	if userKey == "" {
		return nil, domain.ErrEmptyUserKey
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListPointEvents(ctx, userKey, limit)
}

// syncReporter is implemented by stores that persist asynchronously.
type syncReporter interface {
	SyncErr(userKey string) error
}

// SyncErr reports the latest persistence failure for the user, whether it
// came from a synchronous save or a background flush.
func (s *Sessions) SyncErr(e *Engine) error {
	if err := e.PersistErr(); err != nil {
		return err
	}
	if r, ok := s.store.(syncReporter); ok {
		return r.SyncErr(e.UserKey())
	}
	return nil
}
