package redisstore

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// Integration-style tests: run only if REDIS_ADDR is set.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	s, err := Open(context.Background(), Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		Prefix:   "kickoff-test-" + uuid.NewString(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_EmptyAddr(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.Error(t, err)
}

func TestNew_DefaultPrefix(t *testing.T) {
	s := New(nil, "")
	assert.Equal(t, "kickoff:points:u1", s.pointsKey("u1"))
	assert.Equal(t, "kickoff:events:u1", s.eventsKey("u1"))
	assert.Equal(t, "kickoff:event-id:u1:e1", s.eventIDKey("u1", "e1"))
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.LoadPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	st := domain.NewPointsState()
	st.TotalPoints = 1500
	st.CurrentStreak = 30
	st.UnlockedAchievements = []domain.AchievementID{"streak_30"}
	st.ActivityCounts[domain.ActivityEarlyBird] = 5
	require.NoError(t, s.SavePoints(ctx, "u1", st))

	got, err = s.LoadPoints(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, st, *got)
}

func TestStore_JournalCapped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.AppendPointEvent(ctx, domain.PointEvent{
			ID: uuid.NewString(), UserKey: "u1", Amount: int64(i), CreatedAt: base,
		}))
	}

	got, err := s.ListPointEvents(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].Amount)
	assert.Equal(t, int64(4), got[1].Amount)

	n, err := s.client.LLen(ctx, s.eventsKey("u1")).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, n, int64(MaxJournal))
}

func TestStore_AppendReplayIgnored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ev := domain.PointEvent{ID: uuid.NewString(), UserKey: "u1", Amount: 10, TotalAfter: 10, CreatedAt: time.Now().UTC()}

	require.NoError(t, s.AppendPointEvent(ctx, ev))
	require.NoError(t, s.AppendPointEvent(ctx, ev), "replay must be ignored")

	got, err := s.ListPointEvents(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)

	ttl, err := s.client.TTL(ctx, s.eventIDKey("u1", ev.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, EventIDTTL)
}
