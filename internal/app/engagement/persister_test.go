package engagement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/domain"
)

func TestPersister_DefersWrites(t *testing.T) {
	ctx := context.Background()
	inner := newFlakyStore()
	p := engagement.NewPersister(inner, engagement.PersisterConfig{FlushInterval: time.Hour})

	e := newEngine(t, p)
	if err := e.AddPoints(ctx, 30, "queued"); err != nil {
		t.Fatalf("AddPoints() error: %v", err)
	}

	saved, err := inner.Store.LoadPoints(ctx, "player-1")
	if err != nil || saved != nil {
		t.Fatalf("store before flush = %+v, %v; want nothing saved", saved, err)
	}
	if st := p.Stats(); st.QueuedSnapshots != 1 || st.QueuedEvents != 1 {
		t.Errorf("queued = %d snapshots, %d events; want 1, 1", st.QueuedSnapshots, st.QueuedEvents)
	}

	// Reads through the persister see the queued snapshot.
	queued, err := p.LoadPoints(ctx, "player-1")
	if err != nil || queued == nil || queued.TotalPoints != 30 {
		t.Fatalf("LoadPoints() via persister = %+v, %v; want total 30", queued, err)
	}

	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	saved, err = inner.Store.LoadPoints(ctx, "player-1")
	if err != nil || saved == nil || saved.TotalPoints != 30 {
		t.Fatalf("store after flush = %+v, %v; want total 30", saved, err)
	}
	if st := p.Stats(); st.QueuedSnapshots != 0 || st.QueuedEvents != 0 {
		t.Errorf("queue after flush = %+v, want empty", st)
	}
}

func TestPersister_CoalescesSnapshots(t *testing.T) {
	ctx := context.Background()
	inner := newFlakyStore()
	p := engagement.NewPersister(inner, engagement.DefaultPersisterConfig())

	e := newEngine(t, p)
	for i := 0; i < 10; i++ {
		if err := e.AddPoints(ctx, 1, "tick"); err != nil {
			t.Fatalf("AddPoints() #%d error: %v", i+1, err)
		}
	}
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	if got := inner.saves.Load(); got != 1 {
		t.Errorf("saves = %d, want one snapshot per user per flush", got)
	}
	history, err := p.ListPointEvents(ctx, "player-1", 100)
	if err != nil {
		t.Fatalf("ListPointEvents() error: %v", err)
	}
	if len(history) != 10 {
		t.Fatalf("history len = %d, want 10", len(history))
	}
	if history[0].TotalAfter != 10 {
		t.Errorf("newest TotalAfter = %d, want 10", history[0].TotalAfter)
	}
}

func TestPersister_RetryAndSyncErr(t *testing.T) {
	ctx := context.Background()
	inner := newFlakyStore()
	p := engagement.NewPersister(inner, engagement.DefaultPersisterConfig())
	e := newEngine(t, p)

	if err := e.AddPoints(ctx, 50, "offline"); err != nil {
		t.Fatalf("AddPoints() error: %v", err)
	}

	inner.failSave.Store(true)
	err := p.Flush(ctx)
	if !errors.Is(err, domain.ErrPersistenceUnavailable) {
		t.Fatalf("Flush() = %v, want ErrPersistenceUnavailable", err)
	}
	if syncErr := p.SyncErr("player-1"); !errors.Is(syncErr, errDiskGone) {
		t.Errorf("SyncErr() = %v, want wrapped errDiskGone", syncErr)
	}
	if st := p.Stats(); st.QueuedSnapshots != 1 {
		t.Errorf("queued snapshots = %d, failed snapshot must stay queued", st.QueuedSnapshots)
	}

	inner.failSave.Store(false)
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("retry Flush() error: %v", err)
	}
	if err := p.SyncErr("player-1"); err != nil {
		t.Errorf("SyncErr() after recovery = %v, want nil", err)
	}

	saved, err := inner.Store.LoadPoints(ctx, "player-1")
	if err != nil || saved == nil || saved.TotalPoints != 50 {
		t.Fatalf("store = %+v, %v; want total 50", saved, err)
	}

	st := p.Stats()
	if st.TotalFlushes != 2 || st.TotalFailed != 1 {
		t.Errorf("stats = %+v, want 2 flushes with 1 failed", st)
	}
}

func TestPersister_EventRetryKeepsOrder(t *testing.T) {
	ctx := context.Background()
	inner := newFlakyStore()
	p := engagement.NewPersister(inner, engagement.DefaultPersisterConfig())
	e := newEngine(t, p)

	if err := e.AddPoints(ctx, 1, "first"); err != nil {
		t.Fatal(err)
	}
	inner.failAppend.Store(true)
	if err := p.Flush(ctx); err == nil {
		t.Fatal("Flush() with failing journal should error")
	}

	if err := e.AddPoints(ctx, 2, "second"); err != nil {
		t.Fatal(err)
	}
	inner.failAppend.Store(false)
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	history, err := inner.Store.ListPointEvents(ctx, "player-1", 10)
	if err != nil {
		t.Fatalf("ListPointEvents() error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}
	if history[0].Reason != "second" || history[1].Reason != "first" {
		t.Errorf("history order = %q, %q; want second, first", history[0].Reason, history[1].Reason)
	}
}

func TestPersister_RunFlushesOnCancel(t *testing.T) {
	inner := newFlakyStore()
	p := engagement.NewPersister(inner, engagement.PersisterConfig{FlushInterval: time.Hour})
	e := newEngine(t, p)
	if err := e.AddPoints(context.Background(), 7, "late"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	saved, err := inner.Store.LoadPoints(context.Background(), "player-1")
	if err != nil || saved == nil || saved.TotalPoints != 7 {
		t.Fatalf("store after Run = %+v, %v; want total 7", saved, err)
	}
}

func TestPersister_CloseFlushes(t *testing.T) {
	inner := newFlakyStore()
	p := engagement.NewPersister(inner, engagement.DefaultPersisterConfig())
	if err := p.SavePoints(context.Background(), "player-2", domain.NewPointsState()); err != nil {
		t.Fatal(err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if got := inner.saves.Load(); got != 1 {
		t.Errorf("saves = %d, want 1", got)
	}
	if err := inner.Ping(context.Background()); err == nil {
		t.Error("inner store left open")
	}
}
