package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/theirongolddev/billcheck/internal/source"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a bill (PDF, image or JSON record)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, args []string) error {
	path := args[0]
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return fmt.Errorf("%s is a directory; use `billcheck import %s`", path, path)
	}

	df, err := source.Discover(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	an, st := newAnalyzer()
	defer closeStore(st)

	if !flagQuiet && !flagJSON && df.Kind == source.KindDocument {
		fmt.Fprintf(os.Stderr, "  Extracting %s...\n", df.Name)
	}
	analysis, err := an.AnalyzeFile(ctx, df)
	if err != nil {
		return describeError(err)
	}

	carrier := carrierPreference()
	quote := an.Quote(carrier, analysis)
	if flagJSON {
		return printJSON(report{Analysis: analysis, Quote: &quote})
	}
	printAnalysis(analysis, quote, carrier)
	return nil
}
