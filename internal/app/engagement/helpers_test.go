package engagement_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/infra/memory"
)

var errDiskGone = errors.New("disk gone")

// flakyStore wraps a memory store and fails selected calls on demand.
type flakyStore struct {
	*memory.Store
	failLoad   atomic.Bool
	failSave   atomic.Bool
	failAppend atomic.Bool
	saves      atomic.Int64
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: memory.New()}
}

func (f *flakyStore) LoadPoints(ctx context.Context, userKey string) (*domain.PointsState, error) {
	if f.failLoad.Load() {
		return nil, errDiskGone
	}
	return f.Store.LoadPoints(ctx, userKey)
}

func (f *flakyStore) SavePoints(ctx context.Context, userKey string, state domain.PointsState) error {
	if f.failSave.Load() {
		return errDiskGone
	}
	f.saves.Add(1)
	return f.Store.SavePoints(ctx, userKey, state)
}

func (f *flakyStore) AppendPointEvent(ctx context.Context, ev domain.PointEvent) error {
	if f.failAppend.Load() {
		return errDiskGone
	}
	return f.Store.AppendPointEvent(ctx, ev)
}

// recorder collects notifications.
type recorder struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (r *recorder) Notify(n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) kinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NotificationKind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}

// newEngine loads a fresh engine for "player-1" on store.
func newEngine(t *testing.T, store domain.PointsStore, opts ...engagement.Option) *engagement.Engine {
	t.Helper()
	e, err := engagement.Load(context.Background(), "player-1", store, opts...)
	if err != nil {
		t.Fatalf("load engine: %v", err)
	}
	return e
}

// seed saves state for "player-1" before the engine is loaded.
func seed(t *testing.T, store domain.PointsStore, mutate func(*domain.PointsState)) {
	t.Helper()
	s := domain.NewPointsState()
	mutate(&s)
	if err := store.SavePoints(context.Background(), "player-1", s); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func track(t *testing.T, e *engagement.Engine, a domain.ActivityType, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := e.TrackActivity(context.Background(), a); err != nil {
			t.Fatalf("track %s #%d: %v", a, i+1, err)
		}
	}
}

func ids(as []domain.Achievement) []domain.AchievementID {
	out := make([]domain.AchievementID, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}
