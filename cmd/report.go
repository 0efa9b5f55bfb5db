package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/pipeline"
)

var flagJSON bool

// report is the JSON shape printed by --json.
type report struct {
	Analysis *model.BillAnalysis `json:"analysis"`
	Quote    *model.SavingsQuote `json:"quote,omitempty"`
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printAnalysis renders a full analysis report with the quote for carrier.
func printAnalysis(an *model.BillAnalysis, quote model.SavingsQuote, carrier string) {
	title := "BILL ANALYSIS"
	if an.BillingPeriod != "" {
		title += "  " + an.BillingPeriod
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()

	rows := [][]string{
		{"Account", orDash(an.AccountNumber)},
		{"Analysis", cli.FormatShortID(an.ID)},
		{"Lines", cli.FormatNumber(int64(an.LineCount()))},
		{"---"},
		{"Total", cli.FormatMoney(an.TotalAmount)},
		{"Average Monthly", cli.FormatMoney(an.CostAnalysis.AverageMonthlyBill)},
		{"Projected Next", fmt.Sprintf("%s  (%s)", cli.FormatMoney(an.CostAnalysis.ProjectedNextBill), trendLabel(an.UsageAnalysis))},
		{"Usage", cli.FormatUsage(an.UsageAnalysis.AvgDataUsage, an.UsageAnalysis.AvgTalkMinutes, an.UsageAnalysis.AvgTextCount)},
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Bill", "Value"},
		Rows:    rows,
	}))

	printCategories(an.ChargesByCategory)
	printLines(an.PhoneLines)
	printQuote(quote, carrier)
	printRecommendation(an.PlanRecommendation)
}

func printCategories(totals model.CategoryTotals) {
	shares := pipeline.CategoryShares(totals)
	var top float64
	for _, s := range shares {
		if s.Total > top {
			top = s.Total
		}
	}
	fmt.Println()
	fmt.Println("  Charges by Category")
	fmt.Println()
	for _, s := range shares {
		fmt.Println(cli.RenderHorizontalBar(s.Name, s.Total, top, 18, 30) + "  " + cli.FormatPercent(s.Share))
	}
}

func printLines(lines []model.PhoneLine) {
	if len(lines) == 0 {
		return
	}
	rows := make([][]string, 0, len(lines)+2)
	var total float64
	for i, l := range lines {
		total += l.MonthlyTotal
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			orDash(l.DeviceName),
			orDash(l.PlanName),
			cli.FormatMoney(l.Details.PlanCost - l.Details.PlanDiscount),
			cli.FormatMoney(l.Details.DevicePayment - l.Details.DeviceCredit),
			cli.FormatMoney(l.MonthlyTotal),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"", "Total", "", "", "", cli.FormatMoney(total)})

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Lines",
		Headers: []string{"#", "Device", "Plan", "Plan Net", "Device Net", "Monthly"},
		Rows:    rows,
	}))
}

func printQuote(q model.SavingsQuote, carrier string) {
	fmt.Println()
	pairs := [][2]string{
		{"Carrier", carrierName(carrier)},
		{"Plan", q.PlanName},
		{"Price", cli.FormatMoney(q.Price)},
		{"Monthly", cli.RenderSavings(q.MonthlySavings)},
		{"Annual", cli.RenderSavings(q.AnnualSavings)},
	}
	fmt.Println("  Switching Quote")
	fmt.Println()
	fmt.Print(cli.RenderKeyValues(pairs))
	if q.MonthlySavings < 0 {
		fmt.Println(cli.RenderWarning("Switching would cost more than the current bill"))
	}
}

func printRecommendation(rec model.PlanRecommendation) {
	if rec.RecommendedPlan == "" {
		return
	}
	fmt.Println()
	fmt.Printf("  Recommended: %s  (confidence %s)\n", rec.RecommendedPlan, cli.FormatPercent(rec.ConfidenceScore))
	for _, r := range rec.Reasons {
		fmt.Printf("    - %s\n", r)
	}
	if len(rec.AlternativePlans) == 0 {
		return
	}
	rows := make([][]string, 0, len(rec.AlternativePlans))
	for _, p := range rec.AlternativePlans {
		rows = append(rows, []string{p.Name, cli.FormatMoney(p.MonthlyCost), cli.FormatSavings(p.EstimatedSavings)})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Alternative Plans",
		Headers: []string{"Plan", "Cost", "Savings"},
		Rows:    rows,
	}))
}

// printHistory renders stored analyses as a table, newest first.
func printHistory(analyses []model.BillAnalysis, now time.Time) {
	rows := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		rows = append(rows, []string{
			cli.FormatShortID(a.ID),
			orDash(a.AccountNumber),
			orDash(a.BillingPeriod),
			cli.FormatNumber(int64(a.LineCount())),
			cli.FormatMoney(a.TotalAmount),
			cli.FormatSavings(a.PlanRecommendation.EstimatedMonthlySavings),
			cli.FormatAge(a.CreatedAt, now),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Recent Analyses",
		Headers: []string{"ID", "Account", "Period", "Lines", "Total", "Savings", "Analyzed"},
		Rows:    rows,
	}))
}

func trendLabel(u model.UsageAnalysis) string {
	if u.Trend == model.TrendStable || u.Trend == "" {
		return "stable"
	}
	return fmt.Sprintf("%s %s", u.Trend, cli.FormatChange(u.PercentageChange))
}

func carrierName(id string) string {
	if name, ok := config.CarrierNames[id]; ok {
		return name
	}
	return id
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
