// Package postgres stores points state in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

var _ domain.Store = (*Store)(nil)

// Store is a domain.Store backed by the user_points and point_events tables.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to url, verifies the connection and applies migrations.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS user_points (
			user_key              TEXT PRIMARY KEY,
			total_points          BIGINT NOT NULL DEFAULT 0,
			weekly_points         BIGINT NOT NULL DEFAULT 0,
			current_streak        INTEGER NOT NULL DEFAULT 0,
			unlocked_achievements JSONB NOT NULL DEFAULT '[]',
			activity_counts       JSONB NOT NULL DEFAULT '{}',
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS point_events (
			seq         BIGSERIAL PRIMARY KEY,
			id          TEXT NOT NULL UNIQUE,
			user_key    TEXT NOT NULL,
			amount      BIGINT NOT NULL,
			reason      TEXT NOT NULL,
			total_after BIGINT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_point_events_user ON point_events(user_key, seq DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// LoadPoints returns the saved state for userKey, or nil if none exists.
func (s *Store) LoadPoints(ctx context.Context, userKey string) (*domain.PointsState, error) {
	var (
		st             domain.PointsState
		unlocked, cnts []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT total_points, weekly_points, current_streak, unlocked_achievements, activity_counts
		 FROM user_points WHERE user_key = $1`, userKey,
	).Scan(&st.TotalPoints, &st.WeeklyPoints, &st.CurrentStreak, &unlocked, &cnts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(unlocked, &st.UnlockedAchievements); err != nil {
		return nil, fmt.Errorf("decode unlocked_achievements: %w", err)
	}
	if err := json.Unmarshal(cnts, &st.ActivityCounts); err != nil {
		return nil, fmt.Errorf("decode activity_counts: %w", err)
	}
	return &st, nil
}

// SavePoints upserts the row for userKey.
func (s *Store) SavePoints(ctx context.Context, userKey string, state domain.PointsState) error {
	state = state.Normalize()
	unlocked, err := json.Marshal(state.UnlockedAchievements)
	if err != nil {
		return err
	}
	cnts, err := json.Marshal(state.ActivityCounts)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_points (user_key, total_points, weekly_points, current_streak, unlocked_achievements, activity_counts, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, now())
		 ON CONFLICT (user_key) DO UPDATE SET
			total_points = EXCLUDED.total_points,
			weekly_points = EXCLUDED.weekly_points,
			current_streak = EXCLUDED.current_streak,
			unlocked_achievements = EXCLUDED.unlocked_achievements,
			activity_counts = EXCLUDED.activity_counts,
			updated_at = now()`,
		userKey, state.TotalPoints, state.WeeklyPoints, state.CurrentStreak, string(unlocked), string(cnts),
	)
	return err
}

// AppendPointEvent records an award. Replaying an event ID is a no-op.
func (s *Store) AppendPointEvent(ctx context.Context, ev domain.PointEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO point_events (id, user_key, amount, reason, total_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.UserKey, ev.Amount, ev.Reason, ev.TotalAfter, ev.CreatedAt,
	)
	return err
}

// ListPointEvents returns up to limit events for userKey, newest first.
func (s *Store) ListPointEvents(ctx context.Context, userKey string, limit int) ([]domain.PointEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_key, amount, reason, total_after, created_at
		 FROM point_events WHERE user_key = $1 ORDER BY seq DESC LIMIT $2`,
		userKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.PointEvent{}
	for rows.Next() {
		var ev domain.PointEvent
		if err := rows.Scan(&ev.ID, &ev.UserKey, &ev.Amount, &ev.Reason, &ev.TotalAfter, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
