package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of events to show")
	rootCmd.AddCommand(historyCmd)
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history USER",
	Short: "Show the newest point awards for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store domain.Store) error {
			events, err := store.ListPointEvents(ctx, args[0], max(1, historyLimit))
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No points recorded for %s yet.\n", args[0])
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tPOINTS\tTOTAL\tREASON")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%+d\t%d\t%s\n",
					ev.CreatedAt.Local().Format("2006-01-02 15:04"), ev.Amount, ev.TotalAfter, ev.Reason)
			}
			return w.Flush()
		})
	},
}
