package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joaoalves/claude-use-bar/internal/doctor"
)

var (
	doctorJSON    bool
	doctorTimeout time.Duration
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local Claude Code setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := doctor.Run(cmd.Context(), doctor.Options{
			ConfigPath:   cfg.ClaudeConfigPath,
			AccountsFile: cfg.AccountsFile,
			FetchTimeout: doctorTimeout,
		})

		if doctorJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			for _, c := range report.Checks {
				state := "FAIL"
				if c.OK {
					state = "PASS"
				}
				fmt.Printf("[%s] %s\n", state, c.Name)
				fmt.Printf("  %s\n", c.Details)
			}
		}

		if !report.Healthy() {
			return fmt.Errorf("environment is not ready; fix the failing checks above")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output report as JSON")
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 8*time.Second, "usage fetch timeout")
	rootCmd.AddCommand(doctorCmd)
}
