package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/claude"
)

var addDisplayName string

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the account registry",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		activeUUID := ""
		if configStore, err := app.claudeConfig(); err == nil {
			if acct, err := configStore.ReadOAuthAccount(); err == nil {
				activeUUID = acct.AccountUUID
			}
		}

		accounts := app.registry.Accounts()
		if len(accounts) == 0 {
			fmt.Println("no accounts registered; run `claude-use-bar accounts add` while logged in")
			return nil
		}

		for _, acct := range accounts {
			marker := " "
			if acct.AccountUUID == activeUUID && activeUUID != "" {
				marker = "*"
			}
			name := acct.DisplayName
			if name == "" {
				name = "-"
			}
			lastUsed := "never"
			if !acct.LastUsedAt.IsZero() {
				lastUsed = acct.LastUsedAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("%s %d  %-32s %-20s last used %s  %s\n",
				marker, acct.Order, acct.EmailAddress, name, lastUsed, acct.ID)
		}
		return nil
	},
}

// accountsAddCmd captures whichever account Claude Code is currently logged
// in as: the descriptor comes from the configuration file, the tokens from
// the credential slot.
var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register the account Claude Code is currently logged in as",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		configStore, err := app.claudeConfig()
		if err != nil {
			return fmt.Errorf("locate Claude Code configuration: %w", err)
		}
		descriptor, err := configStore.ReadOAuthAccount()
		if err != nil {
			if errors.Is(err, claude.ErrMissingOAuthAccount) {
				return fmt.Errorf("Claude Code is not logged in; log in first, then add the account")
			}
			return fmt.Errorf("read active account: %w", err)
		}
		creds, err := app.slot.ReadCredentials()
		if err != nil {
			if errors.Is(err, claude.ErrSlotNotFound) {
				return fmt.Errorf("no stored Claude Code credentials; log in first, then add the account")
			}
			return fmt.Errorf("read credentials: %w", err)
		}

		displayName := addDisplayName
		if displayName == "" {
			displayName = descriptor.DisplayName
		}
		organizationName := ""
		if descriptor.OrganizationName != nil {
			organizationName = *descriptor.OrganizationName
		}

		acct, err := app.registry.Add(
			account.New(descriptor.EmailAddress, descriptor.AccountUUID, displayName, organizationName),
			creds,
		)
		if err != nil {
			var dup *account.DuplicateAccountError
			if errors.As(err, &dup) {
				return fmt.Errorf("%s is already registered", descriptor.EmailAddress)
			}
			return err
		}

		fmt.Printf("added %s (%s)\n", acct.EmailAddress, acct.ID)
		return nil
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <email-or-id>",
	Short: "Remove an account and its stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		acct, err := resolveAccount(app.registry, args[0])
		if err != nil {
			return err
		}
		if err := app.registry.Remove(acct.ID); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", acct.EmailAddress)
		return nil
	},
}

var accountsReorderCmd = &cobra.Command{
	Use:   "reorder <email-or-id>...",
	Short: "Reorder accounts; list every account in the desired order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(args))
		for _, ref := range args {
			acct, err := resolveAccount(app.registry, ref)
			if err != nil {
				return err
			}
			ids = append(ids, acct.ID)
		}
		if err := app.registry.Reorder(ids); err != nil {
			return err
		}

		ordered := make([]string, 0, len(args))
		for _, acct := range app.registry.Accounts() {
			ordered = append(ordered, acct.EmailAddress)
		}
		fmt.Printf("order: %s\n", strings.Join(ordered, ", "))
		return nil
	},
}

func init() {
	accountsAddCmd.Flags().StringVar(&addDisplayName, "name", "", "override the stored display name")
	accountsCmd.AddCommand(accountsListCmd, accountsAddCmd, accountsRemoveCmd, accountsReorderCmd)
	rootCmd.AddCommand(accountsCmd)
}
