package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [file|dir]",
	Short: "Launch the interactive bill dashboard",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, args []string) error {
	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Logs would corrupt the alt screen; send them to a file instead.
	log := logger.Nop()
	logPath := filepath.Join(config.DataDir(appConfig), "tui.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err == nil {
		//nolint:gosec // log path is under the user's data dir
		if f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600); err == nil {
			defer func() { _ = f.Close() }()
			logCfg := logger.DefaultConfig()
			logCfg.Level = logger.ParseLevel(flagLogLevel)
			logCfg.Output = f
			log = logger.New(logCfg)
		}
	}
	appLog = log

	an, st := newAnalyzer()
	defer closeStore(st)

	opts := tui.Options{
		Analyzer:  an,
		Carrier:   carrierPreference(),
		NeedSetup: !config.Exists() && flagConfig == "",
		Logger:    log,
	}
	if st != nil {
		opts.Store = st
	}
	if len(args) == 1 {
		opts.Path = args[0]
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
