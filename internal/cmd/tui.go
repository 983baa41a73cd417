package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joaoalves/claude-use-bar/internal/claude"
	"github.com/joaoalves/claude-use-bar/internal/switcher"
	"github.com/joaoalves/claude-use-bar/internal/tui"
	"github.com/joaoalves/claude-use-bar/internal/usage"
)

var (
	tuiNoColor     bool
	tuiNoAltScreen bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the interactive account monitor (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiNoColor, "no-color", false, "disable color styling")
	tuiCmd.Flags().BoolVar(&tuiNoAltScreen, "no-alt-screen", false, "disable alternate screen mode")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a TTY; see `claude-use-bar usage` for one-shot output")
	}

	app, err := newApp()
	if err != nil {
		return err
	}

	configStore, err := app.claudeConfig()
	if err != nil {
		return fmt.Errorf("locate Claude Code configuration: %w", err)
	}

	engine := usage.NewEngine(usage.Options{
		Source:       app.registry,
		Fetcher:      usage.NewClient(cfg.FetchTimeout),
		Active:       configStore,
		TTL:          cfg.CacheTTL,
		PollInterval: cfg.PollInterval,
		FetchTimeout: cfg.FetchTimeout,
	})
	defer engine.Close()

	sw := switcher.New(app.registry, configStore, app.slot, claude.PgrepDetector{})

	return tui.Run(tui.Options{
		Provider:  engine,
		Switcher:  sw,
		Interval:  cfg.PollInterval,
		Timeout:   cfg.FetchTimeout,
		NoColor:   tuiNoColor,
		AltScreen: !tuiNoAltScreen,
	})
}
