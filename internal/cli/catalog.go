package cli

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/app/engagement"
)

func init() {
	rootCmd.AddCommand(levelsCmd, achievementsCmd)
}

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List the level tiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LEVEL\tNAME\tPOINTS\tBADGE")
		for _, l := range engagement.Levels() {
			span := fmt.Sprintf("%d-%d", l.MinPoints, l.MaxPoints-1)
			if l.MaxPoints == math.MaxInt64 {
				span = fmt.Sprintf("%d+", l.MinPoints)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", l.ID, l.Name, span, l.Badge)
		}
		return w.Flush()
	},
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "List every achievement and what unlocks it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPOINTS\tTARGET\tDESCRIPTION")
		for _, a := range engagement.AllAchievements() {
			fmt.Fprintf(w, "%s\t%s %s\t%d\t%d\t%s\n", a.ID, a.Icon, a.Name, a.Points, a.Target, a.Description)
		}
		return w.Flush()
	},
}
