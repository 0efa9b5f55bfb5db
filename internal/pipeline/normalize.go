package pipeline

import (
	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/source"
)

// Normalizer turns raw bill records into complete analyses under a pricing
// policy and plan catalog.
type Normalizer struct {
	Policy  config.PricingPolicy
	Catalog []config.Plan
}

// NewNormalizer returns a Normalizer. A non-positive line cap falls back to
// the default policy's cap.
func NewNormalizer(policy config.PricingPolicy, catalog []config.Plan) *Normalizer {
	if policy.MaxLines <= 0 {
		policy.MaxLines = config.DefaultPolicy.MaxLines
	}
	return &Normalizer{Policy: policy, Catalog: catalog}
}

// Normalize converts raw into a BillAnalysis with the built-in policy.
func Normalize(raw source.RawBillRecord) model.BillAnalysis {
	return DefaultNormalizer().Normalize(raw)
}

// Normalize converts raw into a BillAnalysis. It never fails: absent fields
// get fixed defaults or values derived from the rest of the record.
//
// Enhanced records keep the usage, cost and recommendation blocks they carry
// and only have gaps filled. Minimal records get all three synthesized. The
// line cap is applied before totals and categories are derived, so both
// always describe the lines that are kept.
func (n *Normalizer) Normalize(raw source.RawBillRecord) model.BillAnalysis {
	total, totalKnown := rawTotal(&raw)

	lines := make([]model.PhoneLine, 0, len(raw.PhoneLines))
	for i := range raw.PhoneLines {
		lines = append(lines, normalizeLine(raw.PhoneLines[i]))
	}
	if len(lines) == 0 && raw.Variant == source.VariantMinimal && raw.HasLegacyCategories() {
		lines = append(lines, placeholderLine(total))
	}
	if len(lines) == 0 {
		lines = exampleLines()
	}
	if len(lines) > n.Policy.MaxLines {
		lines = lines[:n.Policy.MaxLines]
	}

	if !totalKnown {
		sum := dec(0)
		for _, l := range lines {
			sum = sum.Add(dec(l.MonthlyTotal))
		}
		total = cents(sum)
	}

	var (
		usage source.RawUsageAnalysis
		cost  source.RawCostAnalysis
		plan  source.RawPlanRecommendation
	)
	if raw.Variant == source.VariantEnhanced {
		if raw.UsageAnalysis != nil {
			usage = *raw.UsageAnalysis
		}
		if raw.CostAnalysis != nil {
			cost = *raw.CostAnalysis
		}
		if raw.PlanRecommendation != nil {
			plan = *raw.PlanRecommendation
		}
	}

	average := total
	if cost.AverageMonthlyBill != nil {
		average = cost.AverageMonthlyBill.Float()
	}
	mergeDefaults(&usage, n.usageDefaults())
	mergeDefaults(&cost, n.costDefaults(average))
	mergeDefaults(&plan, n.planDefaults(total, len(lines)))

	account := raw.AccountNumberText()
	if account == "" {
		account = DefaultAccountNumber
	}
	period := raw.BillingPeriodText()
	if period == "" {
		period = DefaultBillingPeriod
	}

	return model.BillAnalysis{
		AccountNumber:      account,
		BillingPeriod:      period,
		TotalAmount:        total,
		UsageAnalysis:      toUsage(usage),
		CostAnalysis:       toCost(cost),
		PlanRecommendation: toPlan(plan),
		PhoneLines:         lines,
		ChargesByCategory:  AggregateWithRate(lines, n.Policy.TaxRate),
		Variant:            raw.Variant.String(),
	}
}

// rawTotal returns the bill total the record states, either directly or as
// the sum of its legacy category totals.
func rawTotal(raw *source.RawBillRecord) (float64, bool) {
	if raw.TotalAmount != nil {
		return cents(dec(raw.TotalAmount.Float())), true
	}
	if raw.HasLegacyCategories() {
		return cents(dec(raw.LegacyCategoryTotal())), true
	}
	return 0, false
}

func normalizeLine(raw source.RawPhoneLine) model.PhoneLine {
	mergeDefaults(&raw, lineDefaults())

	var details model.LineDetails
	if d := raw.Details; d != nil {
		details = model.LineDetails{
			PlanCost:      d.PlanCost.Float(),
			PlanDiscount:  d.PlanDiscount.Float(),
			DevicePayment: d.DevicePayment.Float(),
			DeviceCredit:  d.DeviceCredit.Float(),
			Protection:    d.Protection.Float(),
			Perks:         d.Perks.Float(),
			PerksDiscount: d.PerksDiscount.Float(),
			Surcharges:    d.Surcharges.Float(),
			Taxes:         d.Taxes.Float(),
		}
	}

	monthly := cents(dec(details.Net()))
	if raw.MonthlyTotal != nil {
		monthly = raw.MonthlyTotal.Float()
	}

	return model.PhoneLine{
		DeviceName:   raw.DeviceName.String(),
		PhoneNumber:  raw.PhoneNumber.String(),
		PlanName:     raw.PlanName.String(),
		MonthlyTotal: monthly,
		Details:      details,
	}
}

func toUsage(u source.RawUsageAnalysis) model.UsageAnalysis {
	trend := model.Trend(u.Trend.String())
	if !trend.Valid() {
		trend = model.TrendStable
	}
	return model.UsageAnalysis{
		Trend:            trend,
		PercentageChange: u.PercentageChange.Float(),
		AvgDataUsage:     u.AvgDataUsage.Float(),
		AvgTalkMinutes:   u.AvgTalkMinutes.Float(),
		AvgTextCount:     u.AvgTextCount.Float(),
	}
}

func toCost(c source.RawCostAnalysis) model.CostAnalysis {
	items := make([]model.SavingsItem, 0, len(c.PotentialSavings))
	for _, item := range c.PotentialSavings {
		mergeDefaults(&item, source.RawSavingsItem{
			Description:     text(DefaultSavingsLabel),
			EstimatedAmount: amount(0),
		})
		items = append(items, model.SavingsItem{
			Description:     item.Description.String(),
			EstimatedAmount: item.EstimatedAmount.Float(),
		})
	}
	return model.CostAnalysis{
		AverageMonthlyBill: c.AverageMonthlyBill.Float(),
		ProjectedNextBill:  c.ProjectedNextBill.Float(),
		PotentialSavings:   items,
	}
}

func toPlan(p source.RawPlanRecommendation) model.PlanRecommendation {
	alts := make([]model.AlternativePlan, 0, len(p.AlternativePlans))
	for _, alt := range p.AlternativePlans {
		mergeDefaults(&alt, source.RawAlternativePlan{
			Name:             text(DefaultAlternative),
			MonthlyCost:      amount(0),
			Pros:             []string{},
			Cons:             []string{},
			EstimatedSavings: amount(0),
		})
		alts = append(alts, model.AlternativePlan{
			Name:             alt.Name.String(),
			MonthlyCost:      alt.MonthlyCost.Float(),
			Pros:             nonNil(alt.Pros),
			Cons:             nonNil(alt.Cons),
			EstimatedSavings: alt.EstimatedSavings.Float(),
		})
	}
	return model.PlanRecommendation{
		RecommendedPlan:         p.RecommendedPlan.String(),
		Reasons:                 nonNil(p.Reasons),
		EstimatedMonthlySavings: p.EstimatedMonthlySavings.Float(),
		ConfidenceScore:         clampConfidence(p.ConfidenceScore.Float()),
		AlternativePlans:        alts,
	}
}

// clampConfidence maps a score into [0,1]. Values in (1,100] are read as
// percentages.
func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1 && v <= 100:
		return v / 100
	case v > 100:
		return 1
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
