// Package pipeline normalizes bill records, derives category totals and
// savings quotes, and runs single and batch analyses.
package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/model"
)

// Aggregate groups line charges into categories with the default tax rate.
func Aggregate(lines []model.PhoneLine) model.CategoryTotals {
	return AggregateWithRate(lines, config.DefaultPolicy.TaxRate)
}

// AggregateWithRate groups line charges into the four display categories.
// "Taxes & Fees" is taxRate applied to the sum of the other three, not the
// lines' own tax fields. Every category is present, zero when lines is empty.
func AggregateWithRate(lines []model.PhoneLine, taxRate float64) model.CategoryTotals {
	var plans, devices, services decimal.Decimal
	for _, l := range lines {
		d := l.Details
		plans = plans.Add(dec(d.PlanCost).Sub(dec(d.PlanDiscount)))
		devices = devices.Add(dec(d.DevicePayment).Sub(dec(d.DeviceCredit)))
		services = services.Add(dec(d.Protection))
	}
	taxes := plans.Add(devices).Add(services).Mul(dec(taxRate))

	return model.CategoryTotals{
		model.CategoryPlans:    cents(plans),
		model.CategoryDevices:  cents(devices),
		model.CategoryServices: cents(services),
		model.CategoryTaxes:    cents(taxes),
	}
}

// CategoryShare is one category's total and share of the category sum.
type CategoryShare struct {
	Name  string
	Total float64
	Share float64
}

// CategoryShares returns categories in display order with their share of the
// total. Shares are zero when the total isn't positive.
func CategoryShares(totals model.CategoryTotals) []CategoryShare {
	sum := totals.Sum()
	out := make([]CategoryShare, 0, len(model.CategoryOrder))
	for _, name := range model.CategoryOrder {
		cs := CategoryShare{Name: name, Total: totals[name]}
		if sum > 0 {
			cs.Share = cs.Total / sum
		}
		out = append(out, cs)
	}
	return out
}

// LineCost is one line's net cost and share of the bill.
type LineCost struct {
	Index      int
	DeviceName string
	PlanName   string
	Net        float64
	Share      float64
}

// RankLines returns the lines ordered by net cost, most expensive first.
// Ties keep bill order.
func RankLines(lines []model.PhoneLine) []LineCost {
	var total float64
	for _, l := range lines {
		total += l.MonthlyTotal
	}
	out := make([]LineCost, 0, len(lines))
	for i, l := range lines {
		lc := LineCost{Index: i, DeviceName: l.DeviceName, PlanName: l.PlanName, Net: l.MonthlyTotal}
		if total > 0 {
			lc.Share = l.MonthlyTotal / total
		}
		out = append(out, lc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Net > out[j].Net
	})
	return out
}

// Summarize computes history statistics across stored analyses.
func Summarize(analyses []model.BillAnalysis) model.HistoryStats {
	var stats model.HistoryStats
	accounts := make(map[string]struct{})
	billed := decimal.Zero
	savings := decimal.Zero
	var lines int

	for _, a := range analyses {
		stats.Analyses++
		accounts[a.AccountNumber] = struct{}{}
		billed = billed.Add(dec(a.TotalAmount))
		savings = savings.Add(dec(a.PlanRecommendation.EstimatedMonthlySavings))
		lines += len(a.PhoneLines)
	}

	stats.Accounts = len(accounts)
	stats.TotalBilled = cents(billed)
	stats.PotentialSavings = cents(savings)
	if stats.Analyses > 0 {
		n := decimal.NewFromInt(int64(stats.Analyses))
		stats.AverageBill = cents(billed.Div(n))
		stats.AverageLines = float64(lines) / float64(stats.Analyses)
	}
	return stats
}
