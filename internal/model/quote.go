package model

// SavingsQuote is the result of estimating a switch to an alternative plan.
// MonthlySavings may be negative when switching costs more.
type SavingsQuote struct {
	MonthlySavings float64 `json:"monthlySavings"`
	AnnualSavings  float64 `json:"annualSavings"`
	PlanName       string  `json:"planName"`
	Price          float64 `json:"price"`
}

// HistoryStats summarizes a set of stored analyses.
type HistoryStats struct {
	Analyses         int
	Accounts         int
	TotalBilled      float64
	AverageBill      float64
	AverageLines     float64
	PotentialSavings float64
}
