package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
	"github.com/kickoff-wellness/kickoff/internal/domain"
)

func init() {
	streakCmd.Flags().BoolVar(&streakReset, "reset", false, "Reset the streak to zero instead of extending it")
	rootCmd.AddCommand(statusCmd, awardCmd, trackCmd, streakCmd, unlockCmd)
}

var streakReset bool

var statusCmd = &cobra.Command{
	Use:   "status USER",
	Short: "Show points, level and streak for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, args[0], func(ctx context.Context, e *engagement.Engine) error {
			printSummary(cmd.OutOrStdout(), e.Snapshot())
			return nil
		})
	},
}

var awardCmd = &cobra.Command{
	Use:   "award USER AMOUNT [REASON]",
	Short: "Add points to a user",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("amount %q is not an integer", args[1])
		}
		reason := "manual award"
		if len(args) == 3 {
			reason = args[2]
		}
		return withEngine(cmd, args[0], func(ctx context.Context, e *engagement.Engine) error {
			if err := e.AddPoints(ctx, amount, reason); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), e.Snapshot())
			return nil
		})
	},
}

var trackCmd = &cobra.Command{
	Use:   "track USER ACTIVITY",
	Short: "Record one activity for a user",
	Long: "Record one activity for a user. ACTIVITY is one of:\n  " +
		strings.Join(activityNames(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, args[0], func(ctx context.Context, e *engagement.Engine) error {
			if err := e.TrackActivity(ctx, domain.ActivityType(args[1])); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), e.Snapshot())
			return nil
		})
	},
}

var streakCmd = &cobra.Command{
	Use:   "streak USER",
	Short: "Extend (or with --reset, clear) a user's daily streak",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, args[0], func(ctx context.Context, e *engagement.Engine) error {
			if err := e.UpdateStreak(ctx, !streakReset); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), e.Snapshot())
			return nil
		})
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock USER ACHIEVEMENT",
	Short: "Unlock an achievement directly",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, args[0], func(ctx context.Context, e *engagement.Engine) error {
			ok, err := e.UnlockAchievement(ctx, domain.AchievementID(args[1]))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already unlocked.\n", args[1])
				return nil
			}
			printSummary(cmd.OutOrStdout(), e.Snapshot())
			return nil
		})
	},
}

func activityNames() []string {
	types := domain.ActivityTypes()
	out := make([]string, len(types))
	for i, a := range types {
		out[i] = string(a)
	}
	return out
}
