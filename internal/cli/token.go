package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/socialsync/socialsync/internal/api"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user",
	Long: `Sign a JWT with the configured secret so the API can be called
without the frontend, e.g. from curl during development.

Example:
  socialsync token --user 42 --ttl 1h`,
	RunE: runToken,
}

var tokenFlags struct {
	User string
	TTL  time.Duration
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.User, "user", "", "User ID placed in the token")
	tokenCmd.Flags().DurationVar(&tokenFlags.TTL, "ttl", 0, "Token lifetime (defaults to api.auth.token_ttl)")

	RootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenFlags.User == "" {
		return fmt.Errorf("--user is required")
	}
	if tokenFlags.TTL < 0 {
		return fmt.Errorf("--ttl must not be negative")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	auth := cfg.API.Auth
	if tokenFlags.TTL > 0 {
		auth.TokenTTL = tokenFlags.TTL
	}

	now := time.Now()
	token, err := api.IssueToken(auth, tokenFlags.User, now)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	out := cmd.OutOrStdout()
	if globalFlags.JSON {
		return writeJSON(out, map[string]any{
			"token":     token,
			"userId":    tokenFlags.User,
			"expiresAt": now.Add(auth.TokenTTL).UTC().Format(time.RFC3339),
		})
	}
	fmt.Fprintln(out, token)
	return nil
}
