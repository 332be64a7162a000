package engagement

import (
	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// LevelFor returns the tier whose [MinPoints, MaxPoints) contains points.
// Totals above every tier map to the top tier; negative totals, reachable
// only through negative awards, map to the first tier.
func LevelFor(points int64) domain.Level {
	if points < levels[0].MinPoints {
		return levels[0]
	}
	for _, l := range levels {
		if l.Contains(points) {
			return l
		}
	}
	return levels[len(levels)-1]
}

// ProgressPct returns progress toward the next tier (0.0–100.0).
// The top tier always reports 100.
func ProgressPct(points int64) float64 {
	current := LevelFor(points)
	if current.ID == MaxLevel().ID {
		return 100.0
	}
	span := current.MaxPoints - current.MinPoints
	if span <= 0 {
		return 100.0
	}
	progress := float64(points-current.MinPoints) / float64(span) * 100.0
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return progress
}

// PointsToNextLevel returns points remaining until the next tier, or 0 on
// the top tier.
func PointsToNextLevel(points int64) int64 {
	current := LevelFor(points)
	if current.ID == MaxLevel().ID {
		return 0
	}
	remaining := current.MaxPoints - points
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
