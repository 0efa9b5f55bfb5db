package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, err := tui.RunSetup()
	if errors.Is(err, huh.ErrUserAborted) {
		fmt.Println("  Setup cancelled; nothing saved.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	if cfg.General.DefaultCarrier != "" {
		fmt.Printf("  Quotes default to %s.\n", carrierName(cfg.General.DefaultCarrier))
	}
	if config.GetExtractionURL(cfg) == "" {
		fmt.Println("  No extraction service set: only JSON bill records can be analyzed.")
	}
	fmt.Println("  Run `billcheck setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
