// Package engagement implements the kickoff points engine.
// Points accumulate into a level derived from a fixed tier table; activity
// counters and the daily streak unlock one-shot achievements that award
// bonus points of their own.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/infra/metrics"
	"github.com/kickoff-wellness/kickoff/internal/logger"
)

// Engine is the points, level and achievement state machine for one user.
// Every operation runs to completion under the engine's lock, then the
// state is persisted once. A failed persist never rolls back the mutation.
type Engine struct {
	mu      sync.Mutex
	userKey string
	state   domain.PointsState

	// Transient presentation flags; never persisted.
	pendingLevelUp      *domain.Level
	pendingAchievements []domain.Achievement

	store    domain.PointsStore
	journal  domain.PointsJournal
	notifier domain.Notifier
	log      *slog.Logger
	now      func() time.Time

	events     []domain.PointEvent // awards made by the in-flight operation
	persistErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier publishes level-ups and unlocks to n.
func WithNotifier(n domain.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// Load restores the engine for userKey from store, starting from the
// all-zero state when nothing was saved yet.
func Load(ctx context.Context, userKey string, store domain.PointsStore, opts ...Option) (*Engine, error) {
	if userKey == "" {
		return nil, domain.ErrEmptyUserKey
	}

	e := &Engine{
		userKey: userKey,
		store:   store,
		log:     logger.Component("engagement"),
		now:     time.Now,
	}
	if j, ok := store.(domain.PointsJournal); ok {
		e.journal = j
	}
	for _, opt := range opts {
		opt(e)
	}

	saved, err := store.LoadPoints(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("load points for %q: %w: %w", userKey, domain.ErrPersistenceUnavailable, err)
	}
	if saved == nil {
		e.state = domain.NewPointsState()
	} else {
		e.state = saved.Normalize()
	}
	return e, nil
}

// UserKey returns the user this engine belongs to.
func (e *Engine) UserKey() string { return e.userKey }

// ─── Mutators ───────────────────────────────────────────────────────────────

// AddPoints adds amount to both the total and weekly points. Negative amounts
// are accepted and can lower the level, but only upward crossings raise a
// pending level-up.
func (e *Engine) AddPoints(ctx context.Context, amount int64, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.addPoints(amount, reason)
	return e.persist(ctx)
}

func (e *Engine) addPoints(amount int64, reason string) {
	oldLevel := LevelFor(e.state.TotalPoints)
	e.state.TotalPoints += amount
	e.state.WeeklyPoints += amount
	newLevel := LevelFor(e.state.TotalPoints)

	e.events = append(e.events, domain.PointEvent{
		ID:         uuid.NewString(),
		UserKey:    e.userKey,
		Amount:     amount,
		Reason:     reason,
		TotalAfter: e.state.TotalPoints,
		CreatedAt:  e.now(),
	})
	if amount > 0 {
		metrics.PointsAwarded.Add(float64(amount))
	}
	e.log.Debug("points added", "user", e.userKey, "amount", amount, "reason", reason, "total", e.state.TotalPoints)

	if newLevel.ID > oldLevel.ID {
		lvl := newLevel
		e.pendingLevelUp = &lvl
		metrics.LevelUps.WithLabelValues(fmt.Sprint(lvl.ID)).Inc()
		e.log.Info("level up", "user", e.userKey, "level", lvl.ID, "name", lvl.Name)
		e.notify(domain.Notification{Kind: domain.NotifyLevelUp, Level: &lvl})
	}
}

// persist saves the current state and flushes the journal events produced
// by the operation. Errors wrap domain.ErrPersistenceUnavailable.
func (e *Engine) persist(ctx context.Context) error {
	events := e.events
	e.events = nil

	var errs []error
	if err := e.store.SavePoints(ctx, e.userKey, e.state.Clone()); err != nil {
		metrics.PersistFailures.WithLabelValues("save").Inc()
		errs = append(errs, fmt.Errorf("save points: %w", err))
	}
	if e.journal != nil {
		for _, ev := range events {
			if err := e.journal.AppendPointEvent(ctx, ev); err != nil {
				metrics.PersistFailures.WithLabelValues("journal").Inc()
				errs = append(errs, fmt.Errorf("append event: %w", err))
				break
			}
		}
	}

	if len(errs) > 0 {
		e.persistErr = fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, errors.Join(errs...))
		e.log.Warn("persist failed, keeping in-memory state", "user", e.userKey, "error", e.persistErr)
		return e.persistErr
	}
	e.persistErr = nil
	return nil
}

// PersistErr returns the error of the most recent persist, or nil.
func (e *Engine) PersistErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistErr
}

func (e *Engine) notify(n domain.Notification) {
	if e.notifier == nil {
		return
	}
	n.UserKey = e.userKey
	n.At = e.now()
	e.notifier.Notify(n)
}

// ─── Views ──────────────────────────────────────────────────────────────────

// Summary is a consistent read of every engine view.
type Summary struct {
	UserKey              string                      `json:"user_key"`
	TotalPoints          int64                       `json:"total_points"`
	WeeklyPoints         int64                       `json:"weekly_points"`
	CurrentStreak        int                         `json:"current_streak"`
	Level                domain.Level                `json:"level"`
	ProgressPct          float64                     `json:"progress_pct"`
	PointsToNextLevel    int64                       `json:"points_to_next_level"`
	UnlockedAchievements []domain.AchievementID      `json:"unlocked_achievements"`
	ActivityCounts       map[domain.ActivityType]int `json:"activity_counts"`
	PendingLevelUp       *domain.Level               `json:"pending_level_up"`
	PendingAchievements  []domain.Achievement        `json:"pending_achievements"`
}

// Snapshot returns all views taken under a single lock.
func (e *Engine) Snapshot() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state.Clone()
	return Summary{
		UserKey:              e.userKey,
		TotalPoints:          s.TotalPoints,
		WeeklyPoints:         s.WeeklyPoints,
		CurrentStreak:        s.CurrentStreak,
		Level:                LevelFor(s.TotalPoints),
		ProgressPct:          ProgressPct(s.TotalPoints),
		PointsToNextLevel:    PointsToNextLevel(s.TotalPoints),
		UnlockedAchievements: s.UnlockedAchievements,
		ActivityCounts:       s.ActivityCounts,
		PendingLevelUp:       e.peekLevelUp(),
		PendingAchievements:  e.pendingQueue(),
	}
}

// State returns a copy of the persisted aggregate.
func (e *Engine) State() domain.PointsState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// TotalPoints returns lifetime points.
func (e *Engine) TotalPoints() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.TotalPoints
}

// WeeklyPoints returns the weekly accumulator.
func (e *Engine) WeeklyPoints() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.WeeklyPoints
}

// CurrentStreak returns the consecutive qualifying days.
func (e *Engine) CurrentStreak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.CurrentStreak
}

// CurrentLevel returns the tier for the current total.
func (e *Engine) CurrentLevel() domain.Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return LevelFor(e.state.TotalPoints)
}

// ProgressToNextLevel returns progress in [0, 100]; 100 on the top tier.
func (e *Engine) ProgressToNextLevel() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ProgressPct(e.state.TotalPoints)
}

// UnlockedAchievements returns unlocked IDs in unlock order.
func (e *Engine) UnlockedAchievements() []domain.AchievementID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone().UnlockedAchievements
}

// ActivityCounts returns a copy of the activity counters.
func (e *Engine) ActivityCounts() map[domain.ActivityType]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone().ActivityCounts
}
