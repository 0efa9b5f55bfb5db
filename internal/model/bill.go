// Package model defines domain types for billcheck bill analyses and quotes.
package model

import "time"

// Trend classifies how a bill is moving between billing cycles.
type Trend string

// Usage trends.
const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// Valid reports whether t is one of the known trends.
func (t Trend) Valid() bool {
	switch t {
	case TrendStable, TrendIncreasing, TrendDecreasing:
		return true
	}
	return false
}

// Charge category names used in CategoryTotals.
const (
	CategoryPlans    = "Plan Charges"
	CategoryDevices  = "Device Payments"
	CategoryServices = "Services & Add-ons"
	CategoryTaxes    = "Taxes & Fees"
)

// CategoryOrder is the display order of charge categories.
var CategoryOrder = []string{CategoryPlans, CategoryDevices, CategoryServices, CategoryTaxes}

// CategoryTotals maps a charge category name to its total.
type CategoryTotals map[string]float64

// Sum returns the total across all categories.
func (c CategoryTotals) Sum() float64 {
	var total float64
	for _, v := range c {
		total += v
	}
	return total
}

// BillAnalysis is the canonical, fully populated result of normalizing a bill.
type BillAnalysis struct {
	ID                 string             `json:"id,omitempty"`
	AccountNumber      string             `json:"accountNumber"`
	BillingPeriod      string             `json:"billingPeriod"`
	TotalAmount        float64            `json:"totalAmount"`
	UsageAnalysis      UsageAnalysis      `json:"usageAnalysis"`
	CostAnalysis       CostAnalysis       `json:"costAnalysis"`
	PlanRecommendation PlanRecommendation `json:"planRecommendation"`
	PhoneLines         []PhoneLine        `json:"phoneLines"`
	ChargesByCategory  CategoryTotals     `json:"chargesByCategory"`
	Variant            string             `json:"variant,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// LineCount returns the number of phone lines on the bill.
func (a *BillAnalysis) LineCount() int {
	return len(a.PhoneLines)
}

// UsageAnalysis summarizes average usage across the account.
type UsageAnalysis struct {
	Trend            Trend   `json:"trend"`
	PercentageChange float64 `json:"percentageChange"`
	AvgDataUsage     float64 `json:"avgDataUsage"`
	AvgTalkMinutes   float64 `json:"avgTalkMinutes"`
	AvgTextCount     float64 `json:"avgTextCount"`
}

// CostAnalysis holds the bill-level cost derivations.
type CostAnalysis struct {
	AverageMonthlyBill float64       `json:"averageMonthlyBill"`
	ProjectedNextBill  float64       `json:"projectedNextBill"`
	PotentialSavings   []SavingsItem `json:"potentialSavings"`
}

// SavingsItem is a single suggested saving with its estimated amount.
type SavingsItem struct {
	Description     string  `json:"description"`
	EstimatedAmount float64 `json:"estimatedAmount"`
}

// PlanRecommendation is the suggested alternative plan for the account.
type PlanRecommendation struct {
	RecommendedPlan         string            `json:"recommendedPlan"`
	Reasons                 []string          `json:"reasons"`
	EstimatedMonthlySavings float64           `json:"estimatedMonthlySavings"`
	ConfidenceScore         float64           `json:"confidenceScore"`
	AlternativePlans        []AlternativePlan `json:"alternativePlans"`
}

// AlternativePlan is one plan offered as an alternative to the current bill.
type AlternativePlan struct {
	Name             string   `json:"name"`
	MonthlyCost      float64  `json:"monthlyCost"`
	Pros             []string `json:"pros"`
	Cons             []string `json:"cons"`
	EstimatedSavings float64  `json:"estimatedSavings"`
}

// PhoneLine is one billed device or subscription within an account.
type PhoneLine struct {
	DeviceName   string      `json:"deviceName"`
	PhoneNumber  string      `json:"phoneNumber"`
	PlanName     string      `json:"planName"`
	MonthlyTotal float64     `json:"monthlyTotal"`
	Details      LineDetails `json:"details"`
}

// LineDetails is the per-line charge breakdown. Absent charges are zero.
type LineDetails struct {
	PlanCost      float64 `json:"planCost"`
	PlanDiscount  float64 `json:"planDiscount"`
	DevicePayment float64 `json:"devicePayment"`
	DeviceCredit  float64 `json:"deviceCredit"`
	Protection    float64 `json:"protection"`
	Perks         float64 `json:"perks"`
	PerksDiscount float64 `json:"perksDiscount"`
	Surcharges    float64 `json:"surcharges"`
	Taxes         float64 `json:"taxes"`
}

// Net returns the line's charges after discounts and credits.
func (d LineDetails) Net() float64 {
	return d.PlanCost - d.PlanDiscount +
		d.DevicePayment - d.DeviceCredit +
		d.Protection +
		d.Perks - d.PerksDiscount +
		d.Surcharges + d.Taxes
}
