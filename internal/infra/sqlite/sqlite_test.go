package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, FileName)); os.IsNotExist(err) {
		t.Error("state.db should exist")
	}
	if db.Path() != filepath.Join(dir, FileName) {
		t.Errorf("Path() = %q", db.Path())
	}
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	s := domain.NewPointsState()
	s.TotalPoints = 42
	if err := db.SavePoints(ctx, "u1", s); err != nil {
		t.Fatalf("SavePoints() error: %v", err)
	}
	db.Close()

	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db2.Close()
	got, err := db2.LoadPoints(ctx, "u1")
	if err != nil || got == nil {
		t.Fatalf("LoadPoints() = %v, %v", got, err)
	}
	if got.TotalPoints != 42 {
		t.Errorf("TotalPoints = %d, want 42", got.TotalPoints)
	}
}

// ─── Points Aggregate ───────────────────────────────────────────────────────

func TestLoadPoints_Missing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.LoadPoints(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LoadPoints() error: %v", err)
	}
	if got != nil {
		t.Errorf("LoadPoints() = %+v, want nil", got)
	}
}

func TestSavePoints_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := domain.NewPointsState()
	s.TotalPoints = 325
	s.WeeklyPoints = 125
	s.CurrentStreak = 7
	s.UnlockedAchievements = []domain.AchievementID{"streak_3", "streak_7", "zen_master"}
	s.ActivityCounts[domain.ActivityBreathingSessions] = 20
	s.ActivityCounts[domain.ActivityQuotesRead] = 3

	if err := db.SavePoints(ctx, "u1", s); err != nil {
		t.Fatalf("SavePoints() error: %v", err)
	}
	got, err := db.LoadPoints(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadPoints() error: %v", err)
	}
	if got.TotalPoints != 325 || got.WeeklyPoints != 125 || got.CurrentStreak != 7 {
		t.Errorf("scalars = %+v", got)
	}
	if !slices.Equal(got.UnlockedAchievements, s.UnlockedAchievements) {
		t.Errorf("unlocked = %v, want %v", got.UnlockedAchievements, s.UnlockedAchievements)
	}
	for _, a := range domain.ActivityTypes() {
		if got.ActivityCounts[a] != s.ActivityCounts[a] {
			t.Errorf("%s = %d, want %d", a, got.ActivityCounts[a], s.ActivityCounts[a])
		}
	}
}

func TestSavePoints_Upsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := domain.NewPointsState()
	s.TotalPoints = 10
	_ = db.SavePoints(ctx, "u1", s)
	s.TotalPoints = 20
	if err := db.SavePoints(ctx, "u1", s); err != nil {
		t.Fatalf("SavePoints() error: %v", err)
	}

	got, _ := db.LoadPoints(ctx, "u1")
	if got.TotalPoints != 20 {
		t.Errorf("TotalPoints = %d, want 20", got.TotalPoints)
	}

	var rows int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM user_points`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("rows = %d, want 1", rows)
	}
}

func TestSavePoints_NilCollections(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SavePoints(ctx, "u1", domain.PointsState{TotalPoints: 5}); err != nil {
		t.Fatalf("SavePoints() error: %v", err)
	}
	got, _ := db.LoadPoints(ctx, "u1")
	if got.UnlockedAchievements == nil {
		t.Error("unlocked decoded as nil")
	}
	if len(got.ActivityCounts) != len(domain.ActivityTypes()) {
		t.Errorf("counters = %v", got.ActivityCounts)
	}
}

// ─── Point Journal ──────────────────────────────────────────────────────────

func TestPointEvents_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 4; i++ {
		ev := domain.PointEvent{
			ID: "ev-" + string(rune('0'+i)), UserKey: "u1", Amount: int64(i * 10),
			Reason: "tick", TotalAfter: int64(i * 10), CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.AppendPointEvent(ctx, ev); err != nil {
			t.Fatalf("AppendPointEvent() error: %v", err)
		}
	}
	_ = db.AppendPointEvent(ctx, domain.PointEvent{ID: "other", UserKey: "u2", Amount: 1, CreatedAt: base})

	got, err := db.ListPointEvents(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListPointEvents() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "ev-4" || got[1].ID != "ev-3" {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}
	if !got[0].CreatedAt.Equal(base.Add(4 * time.Second)) {
		t.Errorf("CreatedAt = %v", got[0].CreatedAt)
	}
}

func TestPointEvents_ReplayIgnored(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ev := domain.PointEvent{ID: "dup", UserKey: "u1", Amount: 5, CreatedAt: time.Now()}

	for i := 0; i < 3; i++ {
		if err := db.AppendPointEvent(ctx, ev); err != nil {
			t.Fatalf("AppendPointEvent() error: %v", err)
		}
	}
	got, _ := db.ListPointEvents(ctx, "u1", 10)
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestPointEvents_Empty(t *testing.T) {
	db := newTestDB(t)
	got, err := db.ListPointEvents(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("ListPointEvents() error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty slice", got)
	}
}
