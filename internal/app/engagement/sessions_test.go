package engagement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/infra/memory"
)

func mustGet(t *testing.T, s *engagement.Sessions, userKey string) *engagement.Engine {
	t.Helper()
	e, err := s.Get(context.Background(), userKey)
	if err != nil {
		t.Fatalf("Get(%q) error: %v", userKey, err)
	}
	return e
}

func TestSessions_GetReusesEngine(t *testing.T) {
	s := engagement.NewSessions(memory.New())

	a := mustGet(t, s, "player-1")
	if b := mustGet(t, s, "player-1"); a != b {
		t.Error("second Get returned a different engine")
	}
	if c := mustGet(t, s, "player-2"); a == c {
		t.Error("different users share an engine")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestSessions_EvictIdle(t *testing.T) {
	ctx := context.Background()
	clock := time.Unix(1_700_000_000, 0)
	s := engagement.NewSessions(memory.New())
	engagement.SetSessionsClock(s, func() time.Time { return clock })

	idle := mustGet(t, s, "player-1")
	if err := idle.AddPoints(ctx, 120, "seed"); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(20 * time.Minute)
	mustGet(t, s, "player-2")
	clock = clock.Add(15 * time.Minute)

	if n := s.EvictIdle(30 * time.Minute); n != 1 {
		t.Fatalf("EvictIdle() = %d, want 1", n)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	again := mustGet(t, s, "player-1")
	if again == idle {
		t.Fatal("evicted engine was handed out again")
	}
	if again.TotalPoints() != 120 {
		t.Errorf("reloaded total = %d, want 120", again.TotalPoints())
	}
	if again.PendingLevelUp() != nil {
		t.Error("pending level-up survived eviction")
	}
}

func TestSessions_GetRefreshesIdleClock(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	s := engagement.NewSessions(memory.New())
	engagement.SetSessionsClock(s, func() time.Time { return clock })

	mustGet(t, s, "player-1")
	clock = clock.Add(25 * time.Minute)
	mustGet(t, s, "player-1")
	clock = clock.Add(25 * time.Minute)

	if n := s.EvictIdle(30 * time.Minute); n != 0 {
		t.Errorf("EvictIdle() = %d, a recently used engine was dropped", n)
	}
}

func TestSessions_EvictBeforeFlushReloadsQueuedSnapshot(t *testing.T) {
	ctx := context.Background()
	clock := time.Unix(1_700_000_000, 0)
	inner := newFlakyStore()
	p := engagement.NewPersister(inner, engagement.PersisterConfig{FlushInterval: time.Hour})
	s := engagement.NewSessions(p)
	engagement.SetSessionsClock(s, func() time.Time { return clock })

	if err := mustGet(t, s, "player-1").AddPoints(ctx, 42, "queued"); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Hour)
	s.EvictIdle(time.Minute)

	if got := mustGet(t, s, "player-1").TotalPoints(); got != 42 {
		t.Errorf("total after reload = %d, want 42 from the unflushed snapshot", got)
	}
	if inner.saves.Load() != 0 {
		t.Error("reload should not have required a flush")
	}
}

func TestSessions_RunStopsOnCancel(t *testing.T) {
	s := engagement.NewSessions(memory.New())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Minute)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSessions_EmptyKey(t *testing.T) {
	s := engagement.NewSessions(memory.New())
	if _, err := s.Get(context.Background(), ""); !errors.Is(err, domain.ErrEmptyUserKey) {
		t.Errorf("Get(\"\") = %v, want ErrEmptyUserKey", err)
	}
	if _, err := s.History(context.Background(), "", 10); !errors.Is(err, domain.ErrEmptyUserKey) {
		t.Errorf("History(\"\") = %v, want ErrEmptyUserKey", err)
	}
}

func TestSessions_LoadFailureNotCached(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s := engagement.NewSessions(store)

	store.failLoad.Store(true)
	if _, err := s.Get(ctx, "player-1"); err == nil {
		t.Fatal("Get() with failing store should error")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, failed load was cached", s.Len())
	}

	store.failLoad.Store(false)
	mustGet(t, s, "player-1")
}

func TestSessions_History(t *testing.T) {
	ctx := context.Background()
	s := engagement.NewSessions(memory.New())
	e := mustGet(t, s, "player-1")

	for i := 0; i < 60; i++ {
		if err := e.AddPoints(ctx, 1, "tick"); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.History(ctx, "player-1", 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(all) != 50 {
		t.Errorf("default history len = %d, want 50", len(all))
	}

	few, err := s.History(ctx, "player-1", 3)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(few) != 3 {
		t.Fatalf("history len = %d, want 3", len(few))
	}
	if few[0].TotalAfter != 60 {
		t.Errorf("newest TotalAfter = %d, want 60", few[0].TotalAfter)
	}
}

func TestSessions_SyncErrFromPersister(t *testing.T) {
	ctx := context.Background()
	inner := newFlakyStore()
	p := engagement.NewPersister(inner, engagement.DefaultPersisterConfig())
	s := engagement.NewSessions(p)

	e := mustGet(t, s, "player-1")
	if err := e.AddPoints(ctx, 5, "queued"); err != nil {
		t.Fatal(err)
	}
	if err := s.SyncErr(e); err != nil {
		t.Errorf("SyncErr() before flush = %v, want nil", err)
	}

	inner.failSave.Store(true)
	if err := p.Flush(ctx); err == nil {
		t.Fatal("Flush() should fail")
	}
	if err := s.SyncErr(e); !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Errorf("SyncErr() = %v, want ErrPersistenceUnavailable", err)
	}
}

func TestSessions_SyncErrFromEngine(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s := engagement.NewSessions(store)

	e := mustGet(t, s, "player-1")
	store.failSave.Store(true)
	if err := e.AddPoints(ctx, 5, "offline"); err == nil {
		t.Fatal("AddPoints() with failing store should error")
	}
	if err := s.SyncErr(e); err == nil {
		t.Error("SyncErr() = nil, want the save failure")
	}
}
