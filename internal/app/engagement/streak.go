package engagement

import (
	"context"
)

// UpdateStreak extends the streak by one day, or resets it to zero, then
// unlocks any streak milestone the new length has reached.
// Nothing calls this automatically: the daily roll-over belongs to the
// caller, once per calendar day.
func (e *Engine) UpdateStreak(ctx context.Context, increment bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if increment {
		e.state.CurrentStreak++
	} else {
		e.state.CurrentStreak = 0
	}

	for _, days := range StreakMilestones {
		if e.state.CurrentStreak < days {
			continue
		}
		if def, ok := LookupAchievement(StreakAchievementID(days)); ok {
			e.unlock(def)
		}
	}

	e.log.Debug("streak updated", "user", e.userKey, "increment", increment, "streak", e.state.CurrentStreak)
	return e.persist(ctx)
}
