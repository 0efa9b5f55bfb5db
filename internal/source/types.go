package source

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Variant tags a decoded bill record with the extraction quality it came from.
type Variant int

// Record variants.
const (
	// VariantMinimal is a partial record: sub-objects are synthesized.
	VariantMinimal Variant = iota
	// VariantEnhanced carries the enhanced marker and at least one phone line;
	// sub-objects it supplies are kept.
	VariantEnhanced
)

func (v Variant) String() string {
	if v == VariantEnhanced {
		return "enhanced"
	}
	return "minimal"
}

// Amount is a lenient currency or count value. It accepts JSON numbers and
// numeric strings such as "$1,204.50" or "12%". Unparseable and non-finite
// strings ("NaN", "Inf") decode as 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(parseAmount(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*a = 0
		return nil //nolint:nilerr // booleans, objects and overflowing numbers coalesce to zero
	}
	*a = Amount(f)
	return nil
}

func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if neg {
		return -f
	}
	return f
}

// Float returns the amount, or 0 when a is nil.
func (a *Amount) Float() float64 {
	if a == nil {
		return 0
	}
	return float64(*a)
}

// Text is a lenient string that also accepts JSON numbers and booleans, as
// extraction services sometimes emit account numbers unquoted.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return nil
	}
	*t = Text(data)
	return nil
}

// String returns the text, or "" when t is nil.
func (t *Text) String() string {
	if t == nil {
		return ""
	}
	return string(*t)
}

// Strings is a lenient string list. Numbers and booleans keep their literal
// text, other elements are dropped, and a non-array decodes as empty.
type Strings []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Strings) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	if !r.IsArray() {
		*s = nil
		return nil
	}
	var out Strings
	for _, e := range r.Array() {
		switch e.Type {
		case gjson.String:
			if v := strings.TrimSpace(e.Str); v != "" {
				out = append(out, v)
			}
		case gjson.Number, gjson.True, gjson.False:
			out = append(out, e.Raw)
		}
	}
	*s = out
	return nil
}

// Categories maps category names to lenient amounts. A non-object decodes as
// empty.
type Categories map[string]Amount

// UnmarshalJSON implements json.Unmarshaler.
func (c *Categories) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		*c = nil
		return nil
	}
	out := make(Categories)
	r.ForEach(func(k, v gjson.Result) bool {
		var a Amount
		if err := a.UnmarshalJSON([]byte(v.Raw)); err == nil {
			out[k.String()] = a
		}
		return true
	})
	*c = out
	return nil
}

// List is a lenient list of sub-objects. A non-array decodes as empty.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		*l = nil
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// decodeObject unmarshals data into v when it is a JSON object. Any other
// value leaves v untouched so one mistyped sub-object does not sink the record.
func decodeObject(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	return json.Unmarshal(data, v)
}

// RawBillRecord is a bill record as it arrives from extraction, a JSON export
// or manual entry. Every field may be absent.
type RawBillRecord struct {
	Variant Variant `json:"-"`

	AccountInfo   *RawAccountInfo `json:"accountInfo,omitempty"`
	AccountNumber *Text           `json:"accountNumber,omitempty"`
	BillingPeriod *Text           `json:"billingPeriod,omitempty"`
	TotalAmount   *Amount         `json:"totalAmount,omitempty"`

	PhoneLines        []RawPhoneLine `json:"phoneLines,omitempty"`
	ChargesByCategory Categories     `json:"chargesByCategory,omitempty"`

	UsageAnalysis      *RawUsageAnalysis      `json:"usageAnalysis,omitempty"`
	CostAnalysis       *RawCostAnalysis       `json:"costAnalysis,omitempty"`
	PlanRecommendation *RawPlanRecommendation `json:"planRecommendation,omitempty"`
}

// RawAccountInfo is the nested account block some extractors emit.
type RawAccountInfo struct {
	AccountNumber *Text `json:"accountNumber,omitempty"`
	BillingPeriod *Text `json:"billingPeriod,omitempty"`
	CustomerName  *Text `json:"customerName,omitempty"`
	Carrier       *Text `json:"carrier,omitempty"`
}

// RawPhoneLine is one line entry with optional fields.
type RawPhoneLine struct {
	DeviceName   *Text           `json:"deviceName,omitempty"`
	PhoneNumber  *Text           `json:"phoneNumber,omitempty"`
	PlanName     *Text           `json:"planName,omitempty"`
	MonthlyTotal *Amount         `json:"monthlyTotal,omitempty"`
	Details      *RawLineDetails `json:"details,omitempty"`
}

// RawLineDetails is the optional per-line charge breakdown.
type RawLineDetails struct {
	PlanCost      *Amount `json:"planCost,omitempty"`
	PlanDiscount  *Amount `json:"planDiscount,omitempty"`
	DevicePayment *Amount `json:"devicePayment,omitempty"`
	DeviceCredit  *Amount `json:"deviceCredit,omitempty"`
	Protection    *Amount `json:"protection,omitempty"`
	Perks         *Amount `json:"perks,omitempty"`
	PerksDiscount *Amount `json:"perksDiscount,omitempty"`
	Surcharges    *Amount `json:"surcharges,omitempty"`
	Taxes         *Amount `json:"taxes,omitempty"`
}

// RawUsageAnalysis is a partially populated usage block.
type RawUsageAnalysis struct {
	Trend            *Text   `json:"trend,omitempty"`
	PercentageChange *Amount `json:"percentageChange,omitempty"`
	AvgDataUsage     *Amount `json:"avgDataUsage,omitempty"`
	AvgTalkMinutes   *Amount `json:"avgTalkMinutes,omitempty"`
	AvgTextCount     *Amount `json:"avgTextCount,omitempty"`
}

// RawCostAnalysis is a partially populated cost block.
type RawCostAnalysis struct {
	AverageMonthlyBill *Amount              `json:"averageMonthlyBill,omitempty"`
	ProjectedNextBill  *Amount              `json:"projectedNextBill,omitempty"`
	PotentialSavings   List[RawSavingsItem] `json:"potentialSavings,omitempty"`
}

// RawSavingsItem is one potential-savings entry.
type RawSavingsItem struct {
	Description     *Text   `json:"description,omitempty"`
	EstimatedAmount *Amount `json:"estimatedAmount,omitempty"`
}

// RawPlanRecommendation is a partially populated recommendation block.
type RawPlanRecommendation struct {
	RecommendedPlan         *Text                    `json:"recommendedPlan,omitempty"`
	Reasons                 Strings                  `json:"reasons,omitempty"`
	EstimatedMonthlySavings *Amount                  `json:"estimatedMonthlySavings,omitempty"`
	ConfidenceScore         *Amount                  `json:"confidenceScore,omitempty"`
	AlternativePlans        List[RawAlternativePlan] `json:"alternativePlans,omitempty"`
}

// RawAlternativePlan is one alternative plan entry.
type RawAlternativePlan struct {
	Name             *Text   `json:"name,omitempty"`
	MonthlyCost      *Amount `json:"monthlyCost,omitempty"`
	Pros             Strings `json:"pros,omitempty"`
	Cons             Strings `json:"cons,omitempty"`
	EstimatedSavings *Amount `json:"estimatedSavings,omitempty"`
}

// The sub-object unmarshalers below ignore values that are not objects.

func (a *RawAccountInfo) UnmarshalJSON(data []byte) error {
	type plain RawAccountInfo
	return decodeObject(data, (*plain)(a))
}

func (l *RawPhoneLine) UnmarshalJSON(data []byte) error {
	type plain RawPhoneLine
	return decodeObject(data, (*plain)(l))
}

func (d *RawLineDetails) UnmarshalJSON(data []byte) error {
	type plain RawLineDetails
	return decodeObject(data, (*plain)(d))
}

func (u *RawUsageAnalysis) UnmarshalJSON(data []byte) error {
	type plain RawUsageAnalysis
	return decodeObject(data, (*plain)(u))
}

func (c *RawCostAnalysis) UnmarshalJSON(data []byte) error {
	type plain RawCostAnalysis
	return decodeObject(data, (*plain)(c))
}

func (i *RawSavingsItem) UnmarshalJSON(data []byte) error {
	type plain RawSavingsItem
	return decodeObject(data, (*plain)(i))
}

func (p *RawPlanRecommendation) UnmarshalJSON(data []byte) error {
	type plain RawPlanRecommendation
	return decodeObject(data, (*plain)(p))
}

func (p *RawAlternativePlan) UnmarshalJSON(data []byte) error {
	type plain RawAlternativePlan
	return decodeObject(data, (*plain)(p))
}

// Legacy category keys used by older extractors for the bill summary.
var legacyCategoryKeys = []string{"plans", "devices", "services", "taxes"}

// HasLegacyCategories reports whether the record's category totals use the
// legacy plans/devices/services/taxes keys.
func (r *RawBillRecord) HasLegacyCategories() bool {
	for _, k := range legacyCategoryKeys {
		if _, ok := r.ChargesByCategory[k]; ok {
			return true
		}
	}
	return false
}

// LegacyCategoryTotal sums the legacy category values.
func (r *RawBillRecord) LegacyCategoryTotal() float64 {
	var total float64
	for _, k := range legacyCategoryKeys {
		total += float64(r.ChargesByCategory[k])
	}
	return total
}

// AccountNumberText returns the account number, preferring the nested block.
func (r *RawBillRecord) AccountNumberText() string {
	if r.AccountInfo != nil && r.AccountInfo.AccountNumber.String() != "" {
		return r.AccountInfo.AccountNumber.String()
	}
	return r.AccountNumber.String()
}

// BillingPeriodText returns the billing period, preferring the nested block.
func (r *RawBillRecord) BillingPeriodText() string {
	if r.AccountInfo != nil && r.AccountInfo.BillingPeriod.String() != "" {
		return r.AccountInfo.BillingPeriod.String()
	}
	return r.BillingPeriod.String()
}
