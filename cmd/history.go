package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagHistoryAccount string
	flagHistoryLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var showCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, historyCmd} {
		c.Flags().StringVar(&flagHistoryAccount, "account", "", "Only show analyses for this account")
		c.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Max analyses to list (0 for all)")
	}
	showCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the analysis as JSON")

	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	analyses, err := st.ListAnalyses(store.ListOptions{Account: flagHistoryAccount, Limit: flagHistoryLimit})
	if err != nil {
		return fmt.Errorf("listing analyses: %w", err)
	}
	if len(analyses) == 0 {
		fmt.Println("\n  No stored analyses.")
		fmt.Println("  Analyze a bill with `billcheck analyze <file>` or open `billcheck tui`.")
		return nil
	}

	title := "BILL HISTORY"
	if flagHistoryAccount != "" {
		title += "  " + flagHistoryAccount
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()

	stats := pipeline.Summarize(analyses)
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Analyses", cli.FormatNumber(int64(stats.Analyses))},
			{"Accounts", cli.FormatNumber(int64(stats.Accounts))},
			{"Avg Lines", fmt.Sprintf("%.1f", stats.AverageLines)},
			{"---"},
			{"Total Billed", cli.FormatMoney(stats.TotalBilled)},
			{"Average Bill", cli.FormatMoney(stats.AverageBill)},
			{"Potential Savings", cli.FormatSavings(stats.PotentialSavings) + "/mo"},
		},
	}))

	// Oldest on the left.
	totals := make([]float64, len(analyses))
	for i, a := range analyses {
		totals[len(analyses)-1-i] = a.TotalAmount
	}
	if len(totals) > 1 {
		fmt.Printf("\n  Trend  %s\n", cli.RenderSparkline(totals))
	}

	if cats, err := st.CategoryTotals(flagHistoryAccount); err == nil && cats.Sum() > 0 {
		printCategories(cats)
	}

	fmt.Println()
	printHistory(analyses, time.Now())
	return nil
}

func runShow(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	analysis, err := st.GetAnalysis(args[0])
	if err != nil {
		return lookupError(args[0], err)
	}

	an := pipeline.NewAnalyzer(appConfig, nil, nil, appLog)
	carrier := carrierPreference()
	quote := an.Quote(carrier, analysis)
	if flagJSON {
		return printJSON(report{Analysis: analysis, Quote: &quote})
	}
	printAnalysis(analysis, quote, carrier)
	return nil
}

func runHistoryDelete(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	analysis, err := st.GetAnalysis(args[0])
	if err != nil {
		return lookupError(args[0], err)
	}
	if err := st.DeleteAnalysis(analysis.ID); err != nil {
		return err
	}
	fmt.Printf("  Deleted analysis %s (%s, %s)\n",
		cli.FormatShortID(analysis.ID), orDash(analysis.AccountNumber), cli.FormatMoney(analysis.TotalAmount))
	return nil
}

func lookupError(id string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("no stored analysis matches %q; see `billcheck history`", id)
	case errors.Is(err, store.ErrAmbiguous):
		return fmt.Errorf("%q matches more than one analysis; use more of the ID", id)
	}
	return err
}
