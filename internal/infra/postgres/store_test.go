package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// openTestStore connects to DATABASE_URL, skipping when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := "test-" + uuid.NewString()

	got, err := s.LoadPoints(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, got)

	st := domain.NewPointsState()
	st.TotalPoints = 610
	st.WeeklyPoints = 210
	st.CurrentStreak = 14
	st.UnlockedAchievements = []domain.AchievementID{"streak_3", "streak_7", "streak_14"}
	st.ActivityCounts[domain.ActivityMatchRituals] = 4
	require.NoError(t, s.SavePoints(ctx, user, st))

	st.TotalPoints = 620
	require.NoError(t, s.SavePoints(ctx, user, st))

	got, err = s.LoadPoints(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, st, *got)
}

func TestStore_Journal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := "test-" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 1; i <= 3; i++ {
		ev := domain.PointEvent{
			ID: uuid.NewString(), UserKey: user, Amount: int64(i),
			Reason: "tick", TotalAfter: int64(i), CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.AppendPointEvent(ctx, ev))
		require.NoError(t, s.AppendPointEvent(ctx, ev), "replay must be ignored")
	}

	got, err := s.ListPointEvents(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].Amount)
	assert.Equal(t, int64(1), got[2].Amount)
}

func TestStore_Ping(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
