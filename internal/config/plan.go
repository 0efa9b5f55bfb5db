package config

import "strings"

// Plan is one alternative plan the reseller can offer.
type Plan struct {
	ID          string   `toml:"id" json:"id" validate:"required"`
	Name        string   `toml:"name" json:"name" validate:"required"`
	Network     string   `toml:"network" json:"network"`
	MonthlyCost float64  `toml:"monthly_cost" json:"monthlyCost" validate:"gte=0"`
	Pros        []string `toml:"pros,omitempty" json:"pros"`
	Cons        []string `toml:"cons,omitempty" json:"cons"`
}

// Carrier identifiers accepted by the carrier preference selector.
const (
	CarrierVerizon = "verizon"
	CarrierATT     = "att"
	CarrierTMobile = "tmobile"
)

// Carriers lists the selectable carrier preferences in display order.
var Carriers = []string{CarrierVerizon, CarrierATT, CarrierTMobile}

// CarrierNames maps carrier identifiers to display names.
var CarrierNames = map[string]string{
	CarrierVerizon: "Verizon",
	CarrierATT:     "AT&T",
	CarrierTMobile: "T-Mobile",
}

// DefaultPlans is the built-in catalog of alternative plans.
var DefaultPlans = []Plan{
	{
		ID: "unlimited-verizon", Name: "Unlimited on Verizon", Network: "verizon", MonthlyCost: 45,
		Pros: []string{"Widest rural 5G coverage", "Unlimited talk, text and data"},
		Cons: []string{"Video streams at 480p"},
	},
	{
		ID: "unlimited-att", Name: "Unlimited on AT&T", Network: "att", MonthlyCost: 42,
		Pros: []string{"Strong urban coverage", "Includes hotspot"},
		Cons: []string{"Deprioritized during congestion"},
	},
	{
		ID: "unlimited-tmobile", Name: "Unlimited on T-Mobile", Network: "tmobile", MonthlyCost: 40,
		Pros: []string{"Fastest mid-band 5G", "International texting included"},
		Cons: []string{"Weaker in-building coverage"},
	},
	{
		ID: "essentials-5gb", Name: "Essentials 5GB", Network: "tmobile", MonthlyCost: 25,
		Pros: []string{"Lowest monthly price"},
		Cons: []string{"5GB of high-speed data", "No hotspot"},
	},
}

// CarrierPlans maps normalized carrier identifiers to catalog plan IDs.
var CarrierPlans = map[string]string{
	"verizon": "unlimited-verizon",
	"vzw":     "unlimited-verizon",
	"att":     "unlimited-att",
	"tmobile": "unlimited-tmobile",
	"tmo":     "unlimited-tmobile",
}

// NormalizeCarrierID lower-cases a carrier identifier and strips everything
// but letters and digits, e.g. "AT&T" -> "att", "T-Mobile" -> "tmobile".
func NormalizeCarrierID(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsCarrier reports whether id names one of the selectable carriers.
func IsCarrier(id string) bool {
	id = NormalizeCarrierID(id)
	for _, c := range Carriers {
		if c == id {
			return true
		}
	}
	return false
}

// Catalog returns the built-in plans with config entries replacing plans of
// the same ID and appending new ones.
func (c Config) Catalog() []Plan {
	plans := make([]Plan, 0, len(DefaultPlans)+len(c.Plans))
	plans = append(plans, DefaultPlans...)
	for _, override := range c.Plans {
		replaced := false
		for i := range plans {
			if plans[i].ID == override.ID {
				plans[i] = override
				replaced = true
				break
			}
		}
		if !replaced {
			plans = append(plans, override)
		}
	}
	return plans
}

// LookupPlan returns the catalog plan with the given ID.
func LookupPlan(catalog []Plan, id string) (Plan, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
