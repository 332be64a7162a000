package engagement

import (
	"context"
	"fmt"

	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/infra/metrics"
)

// TrackActivity increments the counter for activity and unlocks every
// not-yet-unlocked achievement whose rule is now satisfied.
// Unknown activities are rejected with no state change.
func (e *Engine) TrackActivity(ctx context.Context, activity domain.ActivityType) error {
	if !activity.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidActivityType, activity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.ActivityCounts[activity]++
	metrics.ActivitiesTracked.WithLabelValues(string(activity)).Inc()

	e.checkAndUnlock()
	return e.persist(ctx)
}

// UnlockAchievement unlocks id directly. Returns false if it was already
// unlocked; a repeat unlock awards nothing and persists nothing.
func (e *Engine) UnlockAchievement(ctx context.Context, id domain.AchievementID) (bool, error) {
	def, ok := LookupAchievement(id)
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownAchievement, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.unlock(def) {
		return false, nil
	}
	return true, e.persist(ctx)
}

// checkAndUnlock evaluates every achievement rule against current state.
// Already-unlocked achievements are skipped.
func (e *Engine) checkAndUnlock() {
	for _, r := range rules {
		if e.state.HasAchievement(r.def.ID) {
			continue
		}
		if r.satisfied(e.state) {
			e.unlock(r.def)
		}
	}
}

// unlock records def, awards its bonus points (which may itself level up)
// and queues it for display. Returns false if def was already unlocked.
func (e *Engine) unlock(def domain.Achievement) bool {
	if e.state.HasAchievement(def.ID) {
		return false
	}

	e.state.UnlockedAchievements = append(e.state.UnlockedAchievements, def.ID)
	e.addPoints(def.Points, "Achievement: "+def.Name)
	e.pendingAchievements = append(e.pendingAchievements, def)

	metrics.AchievementsUnlocked.WithLabelValues(string(def.ID)).Inc()
	e.log.Info("achievement unlocked", "user", e.userKey, "achievement", def.ID, "points", def.Points)

	a := def
	e.notify(domain.Notification{Kind: domain.NotifyAchievement, Achievement: &a})
	return true
}
