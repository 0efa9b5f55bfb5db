package pipeline

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/model"
)

// Quote plan names for the two empty outcomes.
const (
	NoAnalysisPlan = "N/A"
	NoMatchPlan    = "No matching plan"
)

// DefaultMatchThreshold is the minimum similarity for a fuzzy plan match.
const DefaultMatchThreshold = 0.6

// Estimator quotes a switch to an alternative plan.
type Estimator struct {
	Policy    config.PricingPolicy
	Catalog   []config.Plan
	Carriers  map[string]string
	Threshold float64
}

// NewEstimator returns an Estimator over catalog using the built-in carrier
// table.
func NewEstimator(policy config.PricingPolicy, catalog []config.Plan) *Estimator {
	return &Estimator{
		Policy:    policy,
		Catalog:   catalog,
		Carriers:  config.CarrierPlans,
		Threshold: DefaultMatchThreshold,
	}
}

// EstimateSavings quotes carrierID against analysis with the built-in policy
// and catalog.
func EstimateSavings(carrierID string, analysis *model.BillAnalysis) model.SavingsQuote {
	return NewEstimator(config.DefaultPolicy, config.DefaultPlans).Estimate(carrierID, analysis)
}

// Estimate returns the savings from moving every line on analysis to the plan
// carrierID resolves to. The price is the flat per-line rate times the line
// count, whatever the matched plan lists. MonthlySavings is negative when the
// switch costs more.
func (e *Estimator) Estimate(carrierID string, analysis *model.BillAnalysis) model.SavingsQuote {
	if analysis == nil {
		return model.SavingsQuote{PlanName: NoAnalysisPlan}
	}

	plan, ok := e.ResolvePlan(carrierID)
	if !ok {
		return model.SavingsQuote{PlanName: NoMatchPlan}
	}

	price := dec(e.Policy.PerLineRate).Mul(dec(float64(len(analysis.PhoneLines))))
	monthly := dec(analysis.TotalAmount).Sub(price)

	return model.SavingsQuote{
		MonthlySavings: cents(monthly),
		AnnualSavings:  cents(monthly.Mul(dec(12))),
		PlanName:       plan.Name,
		Price:          cents(price),
	}
}

// ResolvePlan maps a carrier identifier to a catalog plan, first through the
// carrier table and then by fuzzy match against plan IDs, names and networks.
func (e *Estimator) ResolvePlan(carrierID string) (config.Plan, bool) {
	key := config.NormalizeCarrierID(carrierID)
	if key == "" {
		return config.Plan{}, false
	}
	if id, ok := e.Carriers[key]; ok {
		if p, ok := config.LookupPlan(e.Catalog, id); ok {
			return p, true
		}
	}
	return e.bestMatch(key)
}

func (e *Estimator) bestMatch(key string) (config.Plan, bool) {
	var (
		best      config.Plan
		bestScore float64
	)
	for _, p := range e.Catalog {
		for _, candidate := range []string{p.ID, p.Name, p.Network} {
			if s := matchScore(key, config.NormalizeCarrierID(candidate)); s > bestScore {
				best, bestScore = p, s
			}
		}
	}
	if bestScore < e.Threshold {
		return config.Plan{}, false
	}
	return best, true
}

// containmentScore is awarded when one identifier contains the other, as in
// "verizonwireless" and "verizon".
const containmentScore = 0.9

func matchScore(key, candidate string) float64 {
	if candidate == "" {
		return 0
	}
	score := levenshtein.Similarity(key, candidate, nil)
	if len(key) >= 3 && len(candidate) >= 3 &&
		(strings.Contains(key, candidate) || strings.Contains(candidate, key)) {
		score = max(score, containmentScore)
	}
	return score
}
