package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/api"
)

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token USER",
	Short: "Issue a bearer token for USER's API routes",
	Long: `Issue an HS256 bearer token signed with auth.jwt_secret. The server
accepts it only on /api/users/USER routes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := api.NewAuthenticator(cfg.Auth.JWTSecret)
		if auth == nil {
			return errors.New("auth.jwt_secret (or KICKOFF_JWT_SECRET) is not set")
		}
		if tokenTTL <= 0 {
			return fmt.Errorf("--ttl must be positive, got %s", tokenTTL)
		}
		tok, err := auth.Issue(args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}
