package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(configFilePath())
	},
}

var configPlansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List the alternative plan catalog",
	RunE:  runConfigPlans,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configPlansCmd)
	rootCmd.AddCommand(configCmd)
}

func configFilePath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ConfigPath()
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appConfig

	fmt.Printf("  Config file: %s\n", configFilePath())
	if config.Exists() || flagConfig != "" {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory:  %s\n", config.DataDir(cfg))
	if cfg.General.DefaultCarrier != "" {
		fmt.Printf("    Default carrier: %s\n", carrierName(cfg.General.DefaultCarrier))
	} else {
		fmt.Println("    Default carrier: not set")
	}
	fmt.Println()

	fmt.Println("  [Extraction]")
	if u := config.GetExtractionURL(cfg); u != "" {
		fmt.Printf("    Service URL: %s\n", u)
	} else {
		fmt.Println("    Service URL: not configured (JSON records only)")
	}
	if key := config.GetAPIKey(cfg); key != "" {
		fmt.Printf("    API key:     %s\n", maskAPIKey(key))
	} else {
		fmt.Println("    API key:     not configured")
	}
	fmt.Printf("    Timeout:     %ds\n", cfg.Extraction.TimeoutSeconds)
	fmt.Printf("    Retries:     %d\n", cfg.Extraction.RetryCount)
	fmt.Println()

	policy := cfg.Policy()
	fmt.Println("  [Pricing]")
	fmt.Printf("    Per-line rate:     %s\n", cli.FormatMoney(policy.PerLineRate))
	fmt.Printf("    Tax rate:          %s\n", cli.FormatPercent(policy.TaxRate))
	fmt.Printf("    Projection factor: %.2f\n", policy.ProjectionFactor)
	fmt.Printf("    Max lines:         %d\n", policy.MaxLines)
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Listen:        %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("    Events buffer: %d\n", cfg.Server.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `billcheck setup` to reconfigure.")
	return nil
}

func runConfigPlans(_ *cobra.Command, _ []string) error {
	plans := appConfig.Catalog()
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			carrierName(p.Network),
			cli.FormatMoney(p.MonthlyCost) + "/line",
			strings.Join(p.Pros, "; "),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Plan Catalog",
		Headers: []string{"ID", "Plan", "Network", "Cost", "Highlights"},
		Rows:    rows,
	}))
	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
