// Package cmd implements the billcheck CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/extract"
	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/store"
	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagDataDir  string
	flagCarrier  string
	flagQuiet    bool
	flagNoSave   bool
	flagLogLevel string
	flagLogJSON  bool
)

var (
	appConfig config.Config
	appLog    = logger.Default()
)

var rootCmd = &cobra.Command{
	Use:   "billcheck",
	Short: "Wireless bill analysis and carrier savings quotes",
	Long: "Analyze wireless bills (PDF, image or JSON export), break down charges by line\n" +
		"and category, and estimate what switching carriers would save.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runHistory,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Directory for the analysis database")
	rootCmd.PersistentFlags().StringVarP(&flagCarrier, "carrier", "c", "", "Carrier preference to quote (verizon, att, tmobile)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagNoSave, "no-save", false, "Don't store analyses")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Log as JSON")
}

// setup loads config and initializes logging before every command.
func setup(_ *cobra.Command, _ []string) error {
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(flagLogLevel)
	logCfg.JSON = flagLogJSON
	appLog = logger.Init(logCfg)

	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	appConfig = cfg
	theme.SetActive(cfg.Appearance.Theme)
	return nil
}

// carrierPreference returns the --carrier flag, then the configured default.
func carrierPreference() string {
	if flagCarrier != "" {
		return config.NormalizeCarrierID(flagCarrier)
	}
	if appConfig.General.DefaultCarrier != "" {
		return appConfig.General.DefaultCarrier
	}
	return config.CarrierVerizon
}

// openStore opens the analysis database in the configured data dir.
func openStore() (*store.Store, error) {
	st, err := store.Open(store.DefaultPath(config.DataDir(appConfig)))
	if err != nil {
		return nil, fmt.Errorf("opening analysis store: %w", err)
	}
	return st, nil
}

// newExtractor returns the extraction client, or nil when no service is
// configured.
func newExtractor() pipeline.Extractor {
	client := extract.NewClient(extract.Options{
		BaseURL:    config.GetExtractionURL(appConfig),
		APIKey:     config.GetAPIKey(appConfig),
		Timeout:    time.Duration(appConfig.Extraction.TimeoutSeconds) * time.Second,
		RetryCount: appConfig.Extraction.RetryCount,
		Logger:     appLog,
	})
	if client == nil {
		return nil
	}
	return client
}

// newAnalyzer wires an analyzer with the extractor and, unless --no-save,
// the store. The returned store may be nil; close it with closeStore.
func newAnalyzer() (*pipeline.Analyzer, *store.Store) {
	var st *store.Store
	if !flagNoSave {
		var err error
		st, err = openStore()
		if err != nil {
			appLog.Warn("analysis store unavailable, results won't be saved", "err", err)
			st = nil
		}
	}
	var sink pipeline.AnalysisStore
	if st != nil {
		sink = st
	}
	return pipeline.NewAnalyzer(appConfig, newExtractor(), sink, appLog), st
}

func closeStore(st *store.Store) {
	if st != nil {
		_ = st.Close()
	}
}

// describeError adds a hint for the common setup problems.
func describeError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrExtraction) && config.GetExtractionURL(appConfig) == "":
		return fmt.Errorf("%w\n  Set an extraction service with `billcheck setup` or BILLCHECK_EXTRACT_URL", err)
	case errors.Is(err, extract.ErrUnauthorized):
		return fmt.Errorf("%w\n  Check the API key with `billcheck config`", err)
	}
	return err
}

func progressLine(current, total int) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "\r  Analyzing %s", cli.RenderProgressBar(current, total, 30))
}
