package config

// PricingPolicy holds the business constants used when deriving an analysis
// and quoting an alternative plan.
type PricingPolicy struct {
	// PerLineRate is the flat monthly price per line of any alternative plan.
	PerLineRate float64
	// TaxRate is applied to the plan, device and service subtotal to derive
	// the "Taxes & Fees" category.
	TaxRate float64
	// ProjectionFactor scales the average monthly bill into the next bill.
	ProjectionFactor float64
	// MaxLines caps the number of phone lines kept on an analysis.
	MaxLines int
}

// DefaultPolicy is the pricing policy in effect when nothing is configured.
var DefaultPolicy = PricingPolicy{
	PerLineRate:      44,
	TaxRate:          0.08,
	ProjectionFactor: 1.05,
	MaxLines:         8,
}

// Policy returns DefaultPolicy with the [pricing] overrides applied.
func (c Config) Policy() PricingPolicy {
	p := DefaultPolicy
	o := c.Pricing
	if o.PerLineRate != nil {
		p.PerLineRate = *o.PerLineRate
	}
	if o.TaxRate != nil {
		p.TaxRate = *o.TaxRate
	}
	if o.ProjectionFactor != nil {
		p.ProjectionFactor = *o.ProjectionFactor
	}
	if o.MaxLines != nil {
		p.MaxLines = *o.MaxLines
	}
	return p
}
