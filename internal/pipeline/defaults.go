package pipeline

import (
	"dario.cat/mergo"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/source"
)

// Fixed defaults for fields a bill record leaves out.
const (
	DefaultAccountNumber = "Unknown"
	DefaultBillingPeriod = "Current Period"
	DefaultDeviceName    = "Unknown Device"
	DefaultPhoneNumber   = "N/A"
	DefaultPlanName      = "Unknown Plan"
	DefaultSavingsLabel  = "Unspecified saving"
	DefaultAlternative   = "Unnamed plan"
	PlaceholderDevice    = "Primary Line"

	defaultDataUsageGB   = 15.0
	defaultTalkMinutes   = 500.0
	defaultTextCount     = 1000.0
	defaultConfidence    = 0.85
	consolidateShare     = 0.15
	protectionShare      = 0.05
	placeholderPlanShare = 0.7
	placeholderDevShare  = 0.2
	placeholderProtShare = 0.1
)

var defaultReasons = []string{
	"Flat per-line pricing with taxes and fees included",
	"Unlimited talk, text and data on a major network",
	"No annual contract or activation fees",
}

// mergeDefaults fills every nil or empty field of dst from src. Non-nil
// pointers in dst are kept even when they point at a zero value, so an
// explicit 0 in the input survives.
func mergeDefaults(dst, src any) {
	// dst and src always share a type here, the only error mergo reports for
	// plain structs.
	_ = mergo.Merge(dst, src, mergo.WithoutDereference)
}

func text(s string) *source.Text {
	t := source.Text(s)
	return &t
}

func amount(f float64) *source.Amount {
	a := source.Amount(f)
	return &a
}

func (n *Normalizer) usageDefaults() source.RawUsageAnalysis {
	return source.RawUsageAnalysis{
		Trend:            text(string(model.TrendStable)),
		PercentageChange: amount(0),
		AvgDataUsage:     amount(defaultDataUsageGB),
		AvgTalkMinutes:   amount(defaultTalkMinutes),
		AvgTextCount:     amount(defaultTextCount),
	}
}

func (n *Normalizer) costDefaults(average float64) source.RawCostAnalysis {
	return source.RawCostAnalysis{
		AverageMonthlyBill: amount(average),
		ProjectedNextBill:  amount(mulCents(average, n.Policy.ProjectionFactor)),
		PotentialSavings: []source.RawSavingsItem{
			{
				Description:     text("Consolidate lines on an unlimited multi-line plan"),
				EstimatedAmount: amount(mulCents(average, consolidateShare)),
			},
			{
				Description:     text("Drop unused device protection"),
				EstimatedAmount: amount(mulCents(average, protectionShare)),
			},
		},
	}
}

func (n *Normalizer) planDefaults(total float64, lines int) source.RawPlanRecommendation {
	rec := source.RawPlanRecommendation{
		RecommendedPlan:         text(DefaultPlanName),
		Reasons:                 append([]string(nil), defaultReasons...),
		EstimatedMonthlySavings: amount(mulCents(total, consolidateShare)),
		ConfidenceScore:         amount(defaultConfidence),
	}
	if len(n.Catalog) > 0 {
		rec.RecommendedPlan = text(n.Catalog[0].Name)
	}
	for _, p := range n.Catalog {
		cost := mulCents(p.MonthlyCost, float64(lines))
		rec.AlternativePlans = append(rec.AlternativePlans, source.RawAlternativePlan{
			Name:             text(p.Name),
			MonthlyCost:      amount(cost),
			Pros:             append([]string(nil), p.Pros...),
			Cons:             append([]string(nil), p.Cons...),
			EstimatedSavings: amount(cents(dec(total).Sub(dec(cost)))),
		})
	}
	return rec
}

func lineDefaults() source.RawPhoneLine {
	return source.RawPhoneLine{
		DeviceName:  text(DefaultDeviceName),
		PhoneNumber: text(DefaultPhoneNumber),
		PlanName:    text(DefaultPlanName),
	}
}

// placeholderLine splits total across plan, device and protection charges.
func placeholderLine(total float64) model.PhoneLine {
	return model.PhoneLine{
		DeviceName:   PlaceholderDevice,
		PhoneNumber:  DefaultPhoneNumber,
		PlanName:     DefaultPlanName,
		MonthlyTotal: cents(dec(total)),
		Details: model.LineDetails{
			PlanCost:      mulCents(total, placeholderPlanShare),
			DevicePayment: mulCents(total, placeholderDevShare),
			Protection:    mulCents(total, placeholderProtShare),
		},
	}
}

// exampleLines are shown when a bill yields no lines at all.
func exampleLines() []model.PhoneLine {
	return []model.PhoneLine{
		{
			DeviceName:   "iPhone 15",
			PhoneNumber:  "(555) 123-4567",
			PlanName:     "Unlimited Plus",
			MonthlyTotal: 100,
			Details: model.LineDetails{
				PlanCost:      65,
				DevicePayment: 20,
				Protection:    15,
			},
		},
		{
			DeviceName:   "iPhone 14",
			PhoneNumber:  "(555) 987-6543",
			PlanName:     "Unlimited Plus",
			MonthlyTotal: 75,
			Details: model.LineDetails{
				PlanCost:      65,
				DevicePayment: 15,
				DeviceCredit:  5,
			},
		},
	}
}

// DefaultNormalizer uses the built-in pricing policy and plan catalog.
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(config.DefaultPolicy, config.DefaultPlans)
}
