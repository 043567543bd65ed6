package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/internal/store"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect or remove a user's linked accounts",
	Long: `Operate on the accounts stored in the SQLite database.

Example:
  socialsync accounts list --user 42
  socialsync accounts disconnect --user 42 --platform facebook`,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's linked accounts",
	RunE:  runAccountsList,
}

var accountsDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Remove every account a user has on one platform",
	RunE:  runAccountsDisconnect,
}

var accountsFlags struct {
	User     string
	Platform string
}

func init() {
	accountsCmd.PersistentFlags().StringVar(&accountsFlags.User, "user", "", "User ID that owns the accounts")
	accountsDisconnectCmd.Flags().StringVar(&accountsFlags.Platform, "platform", "", "Platform to disconnect (twitter, linkedin, facebook, instagram)")

	accountsCmd.AddCommand(accountsListCmd, accountsDisconnectCmd)
	RootCmd.AddCommand(accountsCmd)
}

// openOperatorStore opens the configured SQLite database for one-off commands.
func openOperatorStore() (*store.SQLiteStore, *logging.Logger, error) {
	if accountsFlags.User == "" {
		return nil, nil, fmt.Errorf("--user is required")
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, os.Stderr)
	s, err := store.NewSQLiteStore(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return s, logger, nil
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	s, _, err := openOperatorStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	accounts, err := s.ListAccountsByUser(ctx, accountsFlags.User)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if globalFlags.JSON {
		summaries := make([]models.AccountSummary, 0, len(accounts))
		for i := range accounts {
			summaries = append(summaries, accounts[i].Summary())
		}
		return writeJSON(out, summaries)
	}

	if len(accounts) == 0 {
		fmt.Fprintf(out, "No accounts linked for user %s\n", accountsFlags.User)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLATFORM\tUSERNAME\tDISPLAY NAME\tTOKEN EXPIRES")
	for _, acc := range accounts {
		expires := "never"
		if acc.TokenExpiresAt != nil {
			expires = acc.TokenExpiresAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", acc.ID, acc.Platform, acc.Username, acc.DisplayName, expires)
	}
	return w.Flush()
}

func runAccountsDisconnect(cmd *cobra.Command, args []string) error {
	platform, ok := models.ParsePlatform(accountsFlags.Platform)
	if !ok {
		return &errors.ErrUnsupportedPlatform{Platform: accountsFlags.Platform}
	}

	s, logger, err := openOperatorStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	removed, err := s.DeleteAccountsByPlatform(ctx, accountsFlags.User, platform)
	event := logging.NewAuditEvent(logging.OperatorCommand, "accounts.disconnect", logging.StatusSuccess).
		WithUserID(accountsFlags.User).
		WithPlatform(string(platform))
	if err != nil {
		logger.Audit(ctx, event.WithError(err))
		return err
	}
	logger.Audit(ctx, event.WithDetail("removed", removed))

	out := cmd.OutOrStdout()
	if globalFlags.JSON {
		return writeJSON(out, map[string]any{
			"success":  true,
			"platform": platform,
			"removed":  removed,
		})
	}
	fmt.Fprintf(out, "Removed %d %s account(s) for user %s\n", removed, platform, accountsFlags.User)
	return nil
}
