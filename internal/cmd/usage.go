package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joaoalves/claude-use-bar/internal/usage"
)

var usageJSON bool

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Fetch and print current usage for every account",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		opts := usage.Options{
			Source:       app.registry,
			Fetcher:      usage.NewClient(cfg.FetchTimeout),
			TTL:          cfg.CacheTTL,
			FetchTimeout: cfg.FetchTimeout,
		}
		if configStore, err := app.claudeConfig(); err == nil {
			opts.Active = configStore
		}

		engine := usage.NewEngine(opts)
		defer engine.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout+5*time.Second)
		defer cancel()
		engine.RefreshAll(ctx)

		rows := engine.Usages()
		if usageJSON {
			return printUsageJSON(rows, engine.ActiveAccountUUID())
		}
		printUsageHuman(rows, engine.ActiveAccountUUID())
		return nil
	},
}

func init() {
	usageCmd.Flags().BoolVar(&usageJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(usageCmd)
}

func printUsageHuman(rows []usage.AccountUsage, activeUUID string) {
	if len(rows) == 0 {
		fmt.Println("no accounts registered")
		return
	}
	for _, row := range rows {
		marker := " "
		if row.Account.AccountUUID == activeUUID && activeUUID != "" {
			marker = "*"
		}
		fmt.Printf("%s %-32s %s\n", marker, row.Account.EmailAddress, formatState(row.State))
	}
}

func formatState(state usage.LoadingState) string {
	switch state.Phase() {
	case usage.PhaseLoaded:
		snap, loadedAt, _ := state.Snapshot()
		out := fmt.Sprintf("5h %d%% (resets %s)",
			snap.UtilizationPercent(), snap.FiveHour.ResetsAt.Format("15:04 MST"))
		if snap.SevenDay != nil {
			out += fmt.Sprintf(", 7d %d%%", snap.SevenDay.Percent())
		}
		return out + fmt.Sprintf("  [as of %s]", loadedAt.Format("15:04:05"))
	case usage.PhaseErrored:
		err, _ := state.Err()
		return "error: " + err.Error()
	case usage.PhaseLoading:
		return "loading"
	default:
		return "no data"
	}
}

type usageRow struct {
	EmailAddress    string     `json:"emailAddress"`
	DisplayName     string     `json:"displayName,omitempty"`
	Active          bool       `json:"active"`
	State           string     `json:"state"`
	FiveHourPercent *int       `json:"fiveHourPercent,omitempty"`
	FiveHourResets  *time.Time `json:"fiveHourResetsAt,omitempty"`
	SevenDayPercent *int       `json:"sevenDayPercent,omitempty"`
	SevenDayResets  *time.Time `json:"sevenDayResetsAt,omitempty"`
	Error           string     `json:"error,omitempty"`
}

func printUsageJSON(rows []usage.AccountUsage, activeUUID string) error {
	out := make([]usageRow, 0, len(rows))
	for _, row := range rows {
		r := usageRow{
			EmailAddress: row.Account.EmailAddress,
			DisplayName:  row.Account.DisplayName,
			Active:       row.Account.AccountUUID == activeUUID && activeUUID != "",
		}
		switch row.State.Phase() {
		case usage.PhaseLoaded:
			r.State = "loaded"
			snap, _, _ := row.State.Snapshot()
			five := snap.UtilizationPercent()
			fiveResets := snap.FiveHour.ResetsAt
			r.FiveHourPercent = &five
			r.FiveHourResets = &fiveResets
			if snap.SevenDay != nil {
				seven := snap.SevenDay.Percent()
				sevenResets := snap.SevenDay.ResetsAt
				r.SevenDayPercent = &seven
				r.SevenDayResets = &sevenResets
			}
		case usage.PhaseErrored:
			r.State = "errored"
			err, _ := row.State.Err()
			r.Error = err.Error()
		case usage.PhaseLoading:
			r.State = "loading"
		default:
			r.State = "idle"
		}
		out = append(out, r)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
