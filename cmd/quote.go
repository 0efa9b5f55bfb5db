package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/source"
	"github.com/theirongolddev/billcheck/internal/store"

	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <carrier|all> [analysis-id|file]",
	Short: "Estimate savings from switching carriers",
	Long: "Quote the savings of switching to a carrier's plan. Without a second\n" +
		"argument the most recent stored analysis is quoted.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the quote as JSON")
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(_ *cobra.Command, args []string) error {
	carrier := config.NormalizeCarrierID(args[0])
	if args[0] != "all" && !config.IsCarrier(carrier) {
		return fmt.Errorf("unknown carrier %q (choose one of verizon, att, tmobile, all)", args[0])
	}

	ref := ""
	if len(args) == 2 {
		ref = args[1]
	}
	analysis, an, err := resolveAnalysis(ref)
	if err != nil {
		return err
	}

	carriers := []string{carrier}
	if args[0] == "all" {
		carriers = config.Carriers
	}

	quotes := make(map[string]model.SavingsQuote, len(carriers))
	for _, c := range carriers {
		quotes[c] = an.Quote(c, analysis)
	}
	if flagJSON {
		if len(carriers) == 1 {
			q := quotes[carrier]
			return printJSON(report{Analysis: analysis, Quote: &q})
		}
		return printJSON(quotes)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("QUOTE  %s  %s", orDash(analysis.AccountNumber), cli.FormatMoney(analysis.TotalAmount))))
	fmt.Println()

	rows := make([][]string, 0, len(carriers))
	for _, c := range carriers {
		q := quotes[c]
		rows = append(rows, []string{
			carrierName(c),
			q.PlanName,
			cli.FormatMoney(q.Price),
			cli.RenderSavings(q.MonthlySavings),
			cli.RenderSavings(q.AnnualSavings),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Carrier", "Plan", "Price", "Monthly", "Annual"},
		Rows:    rows,
	}))
	return nil
}

// resolveAnalysis loads the analysis named by ref: a bill file, a stored
// analysis ID prefix, or the newest stored analysis when ref is empty.
func resolveAnalysis(ref string) (*model.BillAnalysis, *pipeline.Analyzer, error) {
	if ref != "" {
		if _, err := os.Stat(ref); err == nil {
			df, err := source.Discover(ref)
			if err != nil {
				return nil, nil, err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			an, st := newAnalyzer()
			defer closeStore(st)
			analysis, err := an.AnalyzeFile(ctx, df)
			if err != nil {
				return nil, nil, describeError(err)
			}
			return analysis, an, nil
		}
	}

	an := pipeline.NewAnalyzer(appConfig, nil, nil, appLog)
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	defer closeStore(st)

	if ref != "" {
		analysis, err := st.GetAnalysis(ref)
		if err != nil {
			return nil, nil, lookupError(ref, err)
		}
		return analysis, an, nil
	}

	latest, err := st.ListAnalyses(store.ListOptions{Limit: 1})
	if err != nil {
		return nil, nil, err
	}
	if len(latest) == 0 {
		return nil, nil, errors.New("no stored analyses; run `billcheck analyze <file>` first")
	}
	return &latest[0], an, nil
}
