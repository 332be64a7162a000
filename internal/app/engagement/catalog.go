package engagement

import (
	"fmt"
	"math"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// ─── Level Catalog ──────────────────────────────────────────────────────────
// Six tiers partitioning [0, ∞). The last tier's MaxPoints is a sentinel
// large enough that no reachable total exceeds it.

var levels = []domain.Level{
	{ID: 1, Name: "Junior Talent", MinPoints: 0, MaxPoints: 100, Badge: "⚽"},
	{ID: 2, Name: "Jeugdspeler", MinPoints: 100, MaxPoints: 300, Badge: "🎯"},
	{ID: 3, Name: "Jong Ajax", MinPoints: 300, MaxPoints: 600, Badge: "⚡"},
	{ID: 4, Name: "Eerste Elftal", MinPoints: 600, MaxPoints: 1000, Badge: "👕"},
	{ID: 5, Name: "Aanvoerder", MinPoints: 1000, MaxPoints: 1500, Badge: "💪"},
	{ID: 6, Name: "Ajax Legende", MinPoints: 1500, MaxPoints: math.MaxInt64, Badge: "🏆"},
}

// Levels returns the level catalog ordered by ID.
func Levels() []domain.Level {
	out := make([]domain.Level, len(levels))
	copy(out, levels)
	return out
}

// MaxLevel returns the top tier.
func MaxLevel() domain.Level {
	return levels[len(levels)-1]
}

// ValidateLevels checks that tiers are contiguous from 0, ordered by both
// ID and MinPoints, and non-empty.
func ValidateLevels(ls []domain.Level) error {
	if len(ls) == 0 {
		return fmt.Errorf("level catalog is empty")
	}
	if ls[0].MinPoints != 0 {
		return fmt.Errorf("level %d starts at %d, want 0", ls[0].ID, ls[0].MinPoints)
	}
	for i, l := range ls {
		if l.MaxPoints <= l.MinPoints {
			return fmt.Errorf("level %d has empty range [%d, %d)", l.ID, l.MinPoints, l.MaxPoints)
		}
		if i == 0 {
			continue
		}
		prev := ls[i-1]
		if l.ID <= prev.ID {
			return fmt.Errorf("level %d not ordered after level %d", l.ID, prev.ID)
		}
		if l.MinPoints != prev.MaxPoints {
			return fmt.Errorf("gap or overlap between level %d and %d", prev.ID, l.ID)
		}
	}
	return nil
}

// ─── Achievement Catalog ────────────────────────────────────────────────────
// Each achievement unlocks when one activity counter, or the streak,
// reaches its target. Catalog order is evaluation order.

// rule binds an achievement to the counter it is measured against.
// An empty Activity means the rule is measured against the current streak.
type rule struct {
	def      domain.Achievement
	activity domain.ActivityType
}

func (r rule) satisfied(s domain.PointsState) bool {
	if r.activity == "" {
		return s.CurrentStreak >= r.def.Target
	}
	return s.ActivityCounts[r.activity] >= r.def.Target
}

var rules = []rule{
	{
		def: domain.Achievement{
			ID: "early_bird", Name: "Vroege Vogel", Description: "Voor 20:00 naar bed 5x",
			Icon: "🐦", Points: 50, Target: 5,
		},
		activity: domain.ActivityEarlyBird,
	},
	{
		def: domain.Achievement{
			ID: "cruijff_fan", Name: "Cruijff Fan", Description: "Alle quotes gelezen",
			Icon: "💬", Points: 30, Target: 8,
		},
		activity: domain.ActivityQuotesRead,
	},
	{
		def: domain.Achievement{
			ID: "reflection_master", Name: "Reflectie Meester", Description: "10x wedstrijd ritueel",
			Icon: "🎯", Points: 100, Target: 10,
		},
		activity: domain.ActivityMatchRituals,
	},
	{
		def: domain.Achievement{
			ID: "zen_master", Name: "Zen Master", Description: "20x ademhalings-oefening",
			Icon: "🧘", Points: 75, Target: 20,
		},
		activity: domain.ActivityBreathingSessions,
	},
	{
		def: domain.Achievement{
			ID: "match_day_hero", Name: "Wedstrijddag Held", Description: "Voltooi 5x wedstrijddag rituelen",
			Icon: "⚽", Points: 150, Target: 5,
		},
		activity: domain.ActivityMatchRituals,
	},
	{
		def: domain.Achievement{
			ID: "perfect_prep", Name: "Perfecte Voorbereiding", Description: "Alle pre-match rituelen 1x",
			Icon: "🏆", Points: 200, Target: 1,
		},
		activity: domain.ActivityPerfectPreps,
	},
	{
		def: domain.Achievement{
			ID: "daily_warrior", Name: "Dagelijkse Strijder", Description: "Gebruik app 10 dagen op rij",
			Icon: "💪", Points: 100, Target: 10,
		},
	},
	{
		def: domain.Achievement{
			ID: "toolbox_master", Name: "Toolbox Master", Description: "25x wellness tools gebruikt",
			Icon: "🛠️", Points: 125, Target: 25,
		},
		activity: domain.ActivityToolboxUses,
	},
	{
		def: domain.Achievement{
			ID: "streak_3", Name: "Warme Start", Description: "3 dagen streak",
			Icon: "🔥", Points: 25, Target: 3,
		},
	},
	{
		def: domain.Achievement{
			ID: "streak_7", Name: "Week Kampioen", Description: "7 dagen streak",
			Icon: "⭐", Points: 75, Target: 7,
		},
	},
	{
		def: domain.Achievement{
			ID: "streak_14", Name: "Twee Weken Koning", Description: "14 dagen streak",
			Icon: "💎", Points: 150, Target: 14,
		},
	},
	{
		def: domain.Achievement{
			ID: "streak_30", Name: "Maand Legende", Description: "30 dagen streak",
			Icon: "👑", Points: 300, Target: 30,
		},
	},
}

// StreakMilestones are the streak lengths checked by UpdateStreak.
var StreakMilestones = []int{3, 7, 14, 30}

// StreakAchievementID returns the achievement awarded at a streak milestone.
func StreakAchievementID(days int) domain.AchievementID {
	return domain.AchievementID(fmt.Sprintf("streak_%d", days))
}

// AllAchievements returns the full achievement catalog in evaluation order.
func AllAchievements() []domain.Achievement {
	out := make([]domain.Achievement, len(rules))
	for i, r := range rules {
		out[i] = r.def
	}
	return out
}

// LookupAchievement finds an achievement by ID.
func LookupAchievement(id domain.AchievementID) (domain.Achievement, bool) {
	for _, r := range rules {
		if r.def.ID == id {
			return r.def, true
		}
	}
	return domain.Achievement{}, false
}

// ValidateAchievements checks IDs are unique and every rule is reachable.
func ValidateAchievements() error {
	seen := make(map[domain.AchievementID]bool, len(rules))
	for _, r := range rules {
		if seen[r.def.ID] {
			return fmt.Errorf("duplicate achievement %q", r.def.ID)
		}
		seen[r.def.ID] = true
		if r.def.Target <= 0 {
			return fmt.Errorf("achievement %q has non-positive target", r.def.ID)
		}
		if r.activity != "" && !r.activity.Valid() {
			return fmt.Errorf("achievement %q counts unknown activity %q", r.def.ID, r.activity)
		}
	}
	for _, days := range StreakMilestones {
		if !seen[StreakAchievementID(days)] {
			return fmt.Errorf("no achievement for %d-day streak", days)
		}
	}
	return nil
}
