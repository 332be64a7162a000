// Package domain holds the pure types of the kickoff engagement engine:
// points, levels, achievements, activity counters and the notifications
// the engine raises for the presentation layer.
package domain

import (
	"slices"
	"time"
)

// ─── Activities ─────────────────────────────────────────────────────────────

// ActivityType names a tracked wellness activity counter.
type ActivityType string

const (
	ActivityEarlyBird         ActivityType = "early_bird"
	ActivityQuotesRead        ActivityType = "quotes_read"
	ActivityMatchRituals      ActivityType = "match_rituals"
	ActivityBreathingSessions ActivityType = "breathing_sessions"
	ActivityToolboxUses       ActivityType = "toolbox_uses"
	ActivityPerfectPreps      ActivityType = "perfect_preps"
)

var activityTypes = []ActivityType{
	ActivityEarlyBird,
	ActivityQuotesRead,
	ActivityMatchRituals,
	ActivityBreathingSessions,
	ActivityToolboxUses,
	ActivityPerfectPreps,
}

// ActivityTypes returns the six known activity keys in canonical order.
func ActivityTypes() []ActivityType {
	return slices.Clone(activityTypes)
}

// Valid reports whether a is one of the known activity keys.
func (a ActivityType) Valid() bool {
	return slices.Contains(activityTypes, a)
}

// ─── Points State ───────────────────────────────────────────────────────────

// AchievementID identifies an entry of the achievement catalog.
type AchievementID string

// PointsState is the single persisted aggregate for one user.
// WeeklyPoints only ever accumulates; nothing resets it at week boundaries.
type PointsState struct {
	TotalPoints          int64                `json:"total_points"`
	WeeklyPoints         int64                `json:"weekly_points"`
	CurrentStreak        int                  `json:"current_streak"`
	UnlockedAchievements []AchievementID      `json:"unlocked_achievements"`
	ActivityCounts       map[ActivityType]int `json:"activity_counts"`
}

// NewPointsState returns the all-zero state a user starts with.
func NewPointsState() PointsState {
	s := PointsState{UnlockedAchievements: []AchievementID{}}
	s.ActivityCounts = make(map[ActivityType]int, len(activityTypes))
	for _, a := range activityTypes {
		s.ActivityCounts[a] = 0
	}
	return s
}

// Normalize fills in missing counter keys and nil collections so that a
// state decoded from any store compares equal to one built in memory.
// Unknown counter keys are dropped.
func (s PointsState) Normalize() PointsState {
	out := s.Clone()
	if out.UnlockedAchievements == nil {
		out.UnlockedAchievements = []AchievementID{}
	}
	counts := make(map[ActivityType]int, len(activityTypes))
	for _, a := range activityTypes {
		counts[a] = s.ActivityCounts[a]
	}
	out.ActivityCounts = counts
	return out
}

// Clone returns a deep copy.
func (s PointsState) Clone() PointsState {
	out := s
	if s.UnlockedAchievements != nil {
		out.UnlockedAchievements = slices.Clone(s.UnlockedAchievements)
	}
	if s.ActivityCounts != nil {
		out.ActivityCounts = make(map[ActivityType]int, len(s.ActivityCounts))
		for k, v := range s.ActivityCounts {
			out.ActivityCounts[k] = v
		}
	}
	return out
}

// HasAchievement reports whether id is already unlocked.
func (s PointsState) HasAchievement(id AchievementID) bool {
	return slices.Contains(s.UnlockedAchievements, id)
}

// ─── Levels ─────────────────────────────────────────────────────────────────

// Level is one tier of the static level catalog. MaxPoints is exclusive.
type Level struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	MinPoints int64  `json:"min_points"`
	MaxPoints int64  `json:"max_points"`
	Badge     string `json:"badge"`
}

// Contains reports whether points falls in [MinPoints, MaxPoints).
func (l Level) Contains(points int64) bool {
	return points >= l.MinPoints && points < l.MaxPoints
}

// ─── Achievements ───────────────────────────────────────────────────────────

// Achievement is one entry of the static achievement catalog.
type Achievement struct {
	ID          AchievementID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Points      int64         `json:"points"`
	Target      int           `json:"target"`
}

// ─── Journal ────────────────────────────────────────────────────────────────

// PointEvent records a single points award, including achievement bonuses.
type PointEvent struct {
	ID         string    `json:"id"`
	UserKey    string    `json:"user_key"`
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason"`
	TotalAfter int64     `json:"total_after"`
	CreatedAt  time.Time `json:"created_at"`
}

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationKind categorizes engine notifications.
type NotificationKind string

const (
	NotifyLevelUp     NotificationKind = "level_up"
	NotifyAchievement NotificationKind = "achievement"
)

// Notification is published when a user levels up or unlocks an achievement.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	UserKey     string           `json:"user_key"`
	Level       *Level           `json:"level,omitempty"`
	Achievement *Achievement     `json:"achievement,omitempty"`
	At          time.Time        `json:"at"`
}
