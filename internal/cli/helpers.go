package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/daemon"
	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// withStore opens the configured store for the duration of fn. Writes go
// straight to the store so they are durable before the command exits.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store domain.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := daemon.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

// withEngine loads the engine for userKey and runs fn against it.
func withEngine(cmd *cobra.Command, userKey string, fn func(ctx context.Context, e *engagement.Engine) error) error {
	return withStore(cmd, func(ctx context.Context, store domain.Store) error {
		e, err := engagement.Load(ctx, userKey, store)
		if err != nil {
			return err
		}
		return fn(ctx, e)
	})
}

// printSummary renders the engine views plus any pending notifications.
func printSummary(w io.Writer, s engagement.Summary) {
	fmt.Fprintf(w, "User:         %s\n", s.UserKey)
	fmt.Fprintf(w, "Level:        %s %d · %s\n", s.Level.Badge, s.Level.ID, s.Level.Name)
	fmt.Fprintf(w, "Points:       %d (this week %d)\n", s.TotalPoints, s.WeeklyPoints)
	fmt.Fprintf(w, "Progress:     %s %.0f%%", progressBar(s.ProgressPct, 20), s.ProgressPct)
	if s.PointsToNextLevel > 0 {
		fmt.Fprintf(w, " (%d to next level)", s.PointsToNextLevel)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Streak:       %d days\n", s.CurrentStreak)
	fmt.Fprintf(w, "Achievements: %d/%d\n", len(s.UnlockedAchievements), len(engagement.AllAchievements()))

	if s.PendingLevelUp != nil {
		fmt.Fprintf(w, "\n%s Level up! You reached %s.\n", s.PendingLevelUp.Badge, s.PendingLevelUp.Name)
	}
	for _, a := range s.PendingAchievements {
		fmt.Fprintf(w, "%s Achievement unlocked: %s (+%d)\n", a.Icon, a.Name, a.Points)
	}
}

func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
