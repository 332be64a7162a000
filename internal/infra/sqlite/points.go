package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

var _ domain.Store = (*DB)(nil)

// ─── Points Aggregate ───────────────────────────────────────────────────────

// LoadPoints returns the saved state for userKey, or nil if none exists.
func (d *DB) LoadPoints(ctx context.Context, userKey string) (*domain.PointsState, error) {
	var (
		s              domain.PointsState
		unlocked, cnts string
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT total_points, weekly_points, current_streak, unlocked_achievements, activity_counts
		 FROM user_points WHERE user_key = ?`, userKey,
	).Scan(&s.TotalPoints, &s.WeeklyPoints, &s.CurrentStreak, &unlocked, &cnts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(unlocked), &s.UnlockedAchievements); err != nil {
		return nil, fmt.Errorf("decode unlocked_achievements: %w", err)
	}
	if err := json.Unmarshal([]byte(cnts), &s.ActivityCounts); err != nil {
		return nil, fmt.Errorf("decode activity_counts: %w", err)
	}
	return &s, nil
}

// SavePoints upserts the aggregate row for userKey.
func (d *DB) SavePoints(ctx context.Context, userKey string, state domain.PointsState) error {
	state = state.Normalize()
	unlocked, err := json.Marshal(state.UnlockedAchievements)
	if err != nil {
		return err
	}
	cnts, err := json.Marshal(state.ActivityCounts)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO user_points (user_key, total_points, weekly_points, current_streak, unlocked_achievements, activity_counts, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_key) DO UPDATE SET
			total_points=excluded.total_points,
			weekly_points=excluded.weekly_points,
			current_streak=excluded.current_streak,
			unlocked_achievements=excluded.unlocked_achievements,
			activity_counts=excluded.activity_counts,
			updated_at=excluded.updated_at`,
		userKey, state.TotalPoints, state.WeeklyPoints, state.CurrentStreak,
		string(unlocked), string(cnts), time.Now().Unix(),
	)
	return err
}

// ─── Point Journal ──────────────────────────────────────────────────────────

// AppendPointEvent records an award. Replaying an event ID is a no-op.
func (d *DB) AppendPointEvent(ctx context.Context, ev domain.PointEvent) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO point_events (id, user_key, amount, reason, total_after, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserKey, ev.Amount, ev.Reason, ev.TotalAfter, ev.CreatedAt.UnixMilli(),
	)
	return err
}

// ListPointEvents returns up to limit events for userKey, newest first.
func (d *DB) ListPointEvents(ctx context.Context, userKey string, limit int) ([]domain.PointEvent, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_key, amount, reason, total_after, created_at
		 FROM point_events WHERE user_key = ? ORDER BY seq DESC LIMIT ?`,
		userKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.PointEvent{}
	for rows.Next() {
		var ev domain.PointEvent
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.UserKey, &ev.Amount, &ev.Reason, &ev.TotalAfter, &createdAt); err != nil {
			return nil, err
		}
		ev.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}
