package engagement

import (
	"slices"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// Pending notifications are one-shot flags for the presentation layer.
// The engine sets them; only the caller clears them.
//   - Level-up: a single slot holding the most recent tier reached.
//   - Achievements: a FIFO queue, so several unlocks in one call are all
//     delivered instead of the last one overwriting the others.

// PendingLevelUp returns the tier reached by the last uncleared level-up.
func (e *Engine) PendingLevelUp() *domain.Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peekLevelUp()
}

// ClearPendingLevelUp acknowledges the level-up modal.
func (e *Engine) ClearPendingLevelUp() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingLevelUp = nil
}

// PendingAchievement returns the oldest undisplayed unlock, or nil.
func (e *Engine) PendingAchievement() *domain.Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pendingAchievements) == 0 {
		return nil
	}
	a := e.pendingAchievements[0]
	return &a
}

// ClearPendingAchievement acknowledges the oldest undisplayed unlock and
// returns it, or nil when the queue is empty.
func (e *Engine) ClearPendingAchievement() *domain.Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pendingAchievements) == 0 {
		return nil
	}
	a := e.pendingAchievements[0]
	e.pendingAchievements = e.pendingAchievements[1:]
	return &a
}

// PendingAchievements returns every undisplayed unlock, oldest first.
func (e *Engine) PendingAchievements() []domain.Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingQueue()
}

func (e *Engine) peekLevelUp() *domain.Level {
	if e.pendingLevelUp == nil {
		return nil
	}
	l := *e.pendingLevelUp
	return &l
}

func (e *Engine) pendingQueue() []domain.Achievement {
	if len(e.pendingAchievements) == 0 {
		return []domain.Achievement{}
	}
	return slices.Clone(e.pendingAchievements)
}
