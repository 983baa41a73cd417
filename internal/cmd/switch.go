package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joaoalves/claude-use-bar/internal/claude"
	"github.com/joaoalves/claude-use-bar/internal/switcher"
)

var switchForce bool

var switchCmd = &cobra.Command{
	Use:   "switch <email-or-id>",
	Short: "Switch which account Claude Code runs as",
	Long: `Switch rewrites the Claude Code credential slot and configuration to
the given account. Both are backed up first and restored on failure.
Claude Code must be restarted afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		configStore, err := app.claudeConfig()
		if err != nil {
			return fmt.Errorf("locate Claude Code configuration: %w", err)
		}
		acct, err := resolveAccount(app.registry, args[0])
		if err != nil {
			return err
		}

		sw := switcher.New(app.registry, configStore, app.slot, claude.PgrepDetector{})
		result, err := sw.Switch(acct.ID, switchForce)
		if err != nil {
			if errors.Is(err, switcher.ErrClaudeRunning) {
				return fmt.Errorf("Claude Code is running; quit it first or pass --force")
			}
			var rollbackErr *switcher.RollbackError
			if errors.As(err, &rollbackErr) {
				// The stores may disagree with each other now; tell the user
				// exactly that instead of a generic failure.
				return rollbackErr
			}
			return err
		}

		fmt.Printf("switched to %s\n", result.Account.EmailAddress)
		if result.RequiresRestart {
			fmt.Println("restart Claude Code to pick up the new account")
		}
		return nil
	},
}

func init() {
	switchCmd.Flags().BoolVar(&switchForce, "force", false, "switch even while Claude Code is running")
	rootCmd.AddCommand(switchCmd)
}
