package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

func init() {
	f := pendingCmd.Flags()
	f.StringVar(&pendingFlags.addr, "addr", "", "Server base URL (default from api.host and api.port)")
	f.StringVar(&pendingFlags.token, "token", "", "Bearer token (default KICKOFF_TOKEN, or minted from auth.jwt_secret)")
	f.BoolVar(&pendingFlags.clear, "clear", false, "Acknowledge the shown level-up and achievements")
	rootCmd.AddCommand(pendingCmd)
}

var pendingFlags struct {
	addr  string
	token string
	clear bool
}

type pendingView struct {
	LevelUp      *domain.Level        `json:"level_up"`
	Achievements []domain.Achievement `json:"achievements"`
}

var pendingCmd = &cobra.Command{
	Use:   "pending USER",
	Short: "Show (or with --clear, acknowledge) a user's pending notifications",
	Long: `Show the level-up and achievement notifications a running server holds
for USER. With --clear, acknowledge exactly the ones shown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		c, err := newAPIClient(pendingFlags.addr, pendingFlags.token, args[0])
		if err != nil {
			return err
		}
		path := "/api/users/" + url.PathEscape(args[0]) + "/pending"

		var p pendingView
		if err := c.do(ctx, http.MethodGet, path, &p); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if p.LevelUp == nil && len(p.Achievements) == 0 {
			fmt.Fprintln(out, "Nothing pending.")
			return nil
		}
		if p.LevelUp != nil {
			fmt.Fprintf(out, "level-up: %s %s\n", p.LevelUp.Badge, p.LevelUp.Name)
		}
		for _, a := range p.Achievements {
			fmt.Fprintf(out, "achievement: %s %s\n", a.Icon, a.Name)
		}
		if !pendingFlags.clear {
			return nil
		}

		if p.LevelUp != nil {
			if err := c.do(ctx, http.MethodDelete, path+"/level-up", nil); err != nil {
				return err
			}
		}
		// The queue is FIFO, so popping len(shown) times removes only what was shown.
		for range p.Achievements {
			if err := c.do(ctx, http.MethodDelete, path+"/achievement", nil); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, "Acknowledged.")
		return nil
	},
}
