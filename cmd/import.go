package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagForce bool

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Analyze every bill in a directory, skipping unchanged files",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "Re-analyze files that haven't changed")
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	dir := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	an, st := newAnalyzer()
	defer closeStore(st)

	var tracker pipeline.FileTracker
	if st != nil {
		tracker = st
	}

	result, err := an.ImportDir(ctx, dir, tracker, flagForce, progressLine)
	if !flagQuiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}
	if result.TotalFiles == 0 {
		fmt.Printf("\n  No bill files found in %s\n", dir)
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("IMPORT  " + dir))
	fmt.Println()

	rows := [][]string{
		{"Files", cli.FormatNumber(int64(result.TotalFiles))},
		{"Analyzed", cli.FormatNumber(int64(result.Analyzed))},
		{"Unchanged", cli.FormatNumber(int64(result.Unchanged))},
		{"Failed", cli.FormatNumber(int64(len(result.FileErrors)))},
	}
	if st == nil {
		rows = append(rows, []string{"---"}, []string{"Saved", "no"})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Import", "Count"},
		Rows:    rows,
	}))

	if len(result.Analyses) > 0 {
		carrier := carrierPreference()
		quoteRows := make([][]string, 0, len(result.Analyses))
		for _, a := range result.Analyses {
			q := an.Quote(carrier, a)
			quoteRows = append(quoteRows, []string{
				cli.FormatShortID(a.ID),
				orDash(a.AccountNumber),
				orDash(a.BillingPeriod),
				cli.FormatMoney(a.TotalAmount),
				cli.FormatSavings(q.MonthlySavings),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Analyzed (" + carrierName(carrier) + " quote)",
			Headers: []string{"ID", "Account", "Period", "Total", "Monthly Savings"},
			Rows:    quoteRows,
		}))
	}

	for _, fe := range result.FileErrors {
		fmt.Fprintln(os.Stderr, cli.RenderWarning(fmt.Sprintf("%s: %v", fe.Path, describeError(fe.Err))))
	}
	return nil
}
