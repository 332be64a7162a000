package healing

import (
	"context"
	"errors"
	"fmt"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// GuardedStore routes every data call through a Breaker. While the breaker
// is open, calls fail at once with domain.ErrPersistenceUnavailable.
type GuardedStore struct {
	inner   domain.Store
	breaker *Breaker
}

var _ domain.Store = (*GuardedStore)(nil)

// Guard wraps inner with a breaker named "store".
func Guard(inner domain.Store, cfg BreakerConfig) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: NewBreaker("store", cfg)}
}

// Breaker exposes the breaker for status reporting.
func (g *GuardedStore) Breaker() *Breaker { return g.breaker }

func (g *GuardedStore) LoadPoints(ctx context.Context, userKey string) (*domain.PointsState, error) {
	if err := g.allow(); err != nil {
		return nil, err
	}
	s, err := g.inner.LoadPoints(ctx, userKey)
	g.record(err)
	return s, err
}

func (g *GuardedStore) SavePoints(ctx context.Context, userKey string, state domain.PointsState) error {
	if err := g.allow(); err != nil {
		return err
	}
	err := g.inner.SavePoints(ctx, userKey, state)
	g.record(err)
	return err
}

func (g *GuardedStore) AppendPointEvent(ctx context.Context, ev domain.PointEvent) error {
	if err := g.allow(); err != nil {
		return err
	}
	err := g.inner.AppendPointEvent(ctx, ev)
	g.record(err)
	return err
}

func (g *GuardedStore) ListPointEvents(ctx context.Context, userKey string, limit int) ([]domain.PointEvent, error) {
	if err := g.allow(); err != nil {
		return nil, err
	}
	evs, err := g.inner.ListPointEvents(ctx, userKey, limit)
	g.record(err)
	return evs, err
}

// Ping always reaches the backend so health checks see its real state.
// A successful ping while half-open counts as a trial call.
func (g *GuardedStore) Ping(ctx context.Context) error {
	err := g.inner.Ping(ctx)
	if err == nil && g.breaker.State() == HalfOpen {
		g.breaker.Success()
	}
	return err
}

func (g *GuardedStore) Close() error {
	return g.inner.Close()
}

func (g *GuardedStore) allow() error {
	if err := g.breaker.Allow(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

// record ignores caller cancellation, which says nothing about the backend.
func (g *GuardedStore) record(err error) {
	switch {
	case err == nil:
		g.breaker.Success()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		g.breaker.Failure()
	}
}
