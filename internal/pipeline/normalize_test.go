package pipeline

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/source"
)

func decodeRecord(t *testing.T, js string) source.RawBillRecord {
	t.Helper()
	rec, err := source.Decode([]byte(js))
	require.NoError(t, err)
	return rec
}

func assertComplete(t *testing.T, a model.BillAnalysis) {
	t.Helper()
	assert.NotEmpty(t, a.AccountNumber)
	assert.NotEmpty(t, a.BillingPeriod)
	assert.True(t, a.UsageAnalysis.Trend.Valid(), "trend %q", a.UsageAnalysis.Trend)
	assert.NotNil(t, a.CostAnalysis.PotentialSavings)
	assert.NotEmpty(t, a.PlanRecommendation.RecommendedPlan)
	assert.NotNil(t, a.PlanRecommendation.Reasons)
	assert.NotNil(t, a.PlanRecommendation.AlternativePlans)
	assert.GreaterOrEqual(t, a.PlanRecommendation.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, a.PlanRecommendation.ConfidenceScore, 1.0)
	assert.NotEmpty(t, a.PhoneLines)
	assert.LessOrEqual(t, len(a.PhoneLines), 8)
	for _, l := range a.PhoneLines {
		assert.NotEmpty(t, l.DeviceName)
		assert.NotEmpty(t, l.PhoneNumber)
		assert.NotEmpty(t, l.PlanName)
	}
	for _, name := range model.CategoryOrder {
		_, ok := a.ChargesByCategory[name]
		assert.True(t, ok, "category %q missing", name)
	}
}

func TestNormalize_EmptyRecord(t *testing.T) {
	a := Normalize(decodeRecord(t, `{}`))
	assertComplete(t, a)

	assert.Equal(t, DefaultAccountNumber, a.AccountNumber)
	assert.Equal(t, DefaultBillingPeriod, a.BillingPeriod)
	assert.Equal(t, "minimal", a.Variant)

	require.Len(t, a.PhoneLines, 2)
	assert.Equal(t, "iPhone 15", a.PhoneLines[0].DeviceName)
	assert.Equal(t, "iPhone 14", a.PhoneLines[1].DeviceName)
	assert.Equal(t, 175.0, a.TotalAmount)

	assert.Equal(t, model.TrendStable, a.UsageAnalysis.Trend)
	assert.Equal(t, 15.0, a.UsageAnalysis.AvgDataUsage)
	assert.Equal(t, 500.0, a.UsageAnalysis.AvgTalkMinutes)
	assert.Equal(t, 1000.0, a.UsageAnalysis.AvgTextCount)

	assert.Equal(t, 175.0, a.CostAnalysis.AverageMonthlyBill)
	assert.Equal(t, 183.75, a.CostAnalysis.ProjectedNextBill)
	require.Len(t, a.CostAnalysis.PotentialSavings, 2)
	assert.Equal(t, 26.25, a.CostAnalysis.PotentialSavings[0].EstimatedAmount)
	assert.Equal(t, 8.75, a.CostAnalysis.PotentialSavings[1].EstimatedAmount)

	assert.Equal(t, 0.85, a.PlanRecommendation.ConfidenceScore)
	assert.Equal(t, "Unlimited on Verizon", a.PlanRecommendation.RecommendedPlan)
	assert.Len(t, a.PlanRecommendation.AlternativePlans, 4)
}

func TestNormalize_NeverLeavesGaps(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"phoneLines":[]}`,
		`{"phoneLines":[{}]}`,
		`{"totalAmount":"$88.10"}`,
		`{"analysisType":"enhanced","phoneLines":[{}],"usageAnalysis":{},"costAnalysis":{},"planRecommendation":{}}`,
		`{"enhanced":true,"phoneLines":[{"details":{}}],"costAnalysis":{"potentialSavings":[{}]},"planRecommendation":{"alternativePlans":[{}]}}`,
		`{"chargesByCategory":{"taxes":4}}`,
		`{"accountInfo":{"accountNumber":123456}}`,
		`{"totalAmount":"NaN"}`,
		`{"totalAmount":"Inf"}`,
		`{"totalAmount":"-infinity"}`,
		`{"totalAmount":""}`,
		`{"phoneLines":[{"monthlyTotal":"nan","details":{"planCost":"nan","taxes":"+Inf"}}]}`,
		`{"chargesByCategory":"x"}`,
		`{"chargesByCategory":{"plans":"NaN","taxes":[1]}}`,
		`{"analysisType":"enhanced","phoneLines":[{}],"planRecommendation":{"reasons":[1,2],"confidenceScore":"Inf"}}`,
		`{"planRecommendation":{"reasons":"cheaper","alternativePlans":{"name":"x"}}}`,
		`{"enhanced":true,"phoneLines":["x",{"details":"y"}],"usageAnalysis":[],"costAnalysis":"z"}`,
		`{"accountInfo":"acct","costAnalysis":{"potentialSavings":[1,{"estimatedAmount":"Infinity"}]}}`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			rec := decodeRecord(t, in)
			require.NotPanics(t, func() { assertComplete(t, Normalize(rec)) })
		})
	}
}

func TestNormalize_NonFiniteAmountsCoalesceToZero(t *testing.T) {
	a := Normalize(decodeRecord(t, `{"totalAmount":"NaN","phoneLines":[{"deviceName":"Pixel","monthlyTotal":"Inf","details":{"planCost":"nan","taxes":"4"}}]}`))

	require.Len(t, a.PhoneLines, 1)
	assert.Equal(t, "Pixel", a.PhoneLines[0].DeviceName)
	assert.Equal(t, 0.0, a.PhoneLines[0].Details.PlanCost)
	assert.Equal(t, 4.0, a.PhoneLines[0].Details.Taxes)
	assert.False(t, math.IsNaN(a.TotalAmount))
	assert.False(t, math.IsInf(a.TotalAmount, 0))
}

func FuzzNormalize(f *testing.F) {
	seeds := []string{
		`{}`,
		`{"totalAmount":"NaN"}`,
		`{"totalAmount":"Inf"}`,
		`{"phoneLines":[{"details":{"planCost":"nan"}}]}`,
		`{"chargesByCategory":"x"}`,
		`{"analysisType":"enhanced","phoneLines":[{}],"planRecommendation":{"reasons":[1,2]}}`,
		`{"data":{"phoneLines":[{"monthlyTotal":"1e400"}]}}`,
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := source.Decode(data)
		if err != nil {
			return
		}
		assertComplete(t, Normalize(rec))
	})
}

func TestNormalize_CapsLinesInOrder(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf(`{"deviceName":"Device %d","monthlyTotal":10}`, i))
	}
	js := `{"totalAmount":100,"phoneLines":[` + strings.Join(lines, ",") + `]}`

	a := Normalize(decodeRecord(t, js))
	require.Len(t, a.PhoneLines, 8)
	for i, l := range a.PhoneLines {
		assert.Equal(t, fmt.Sprintf("Device %d", i), l.DeviceName)
	}
}

func TestNormalize_CategoriesFollowCappedLines(t *testing.T) {
	var lines []string
	for i := 0; i < 9; i++ {
		lines = append(lines, `{"details":{"planCost":10,"planDiscount":2,"devicePayment":5,"deviceCredit":1,"protection":3,"taxes":99}}`)
	}
	js := `{"phoneLines":[` + strings.Join(lines, ",") + `]}`

	a := Normalize(decodeRecord(t, js))
	require.Len(t, a.PhoneLines, 8)
	assert.Equal(t, 64.0, a.ChargesByCategory[model.CategoryPlans])
	assert.Equal(t, 32.0, a.ChargesByCategory[model.CategoryDevices])
	assert.Equal(t, 24.0, a.ChargesByCategory[model.CategoryServices])
	assert.Equal(t, 9.6, a.ChargesByCategory[model.CategoryTaxes])
}

func TestNormalize_LineMonthlyTotalDefaultsToNet(t *testing.T) {
	a := Normalize(decodeRecord(t, `{"phoneLines":[
		{"deviceName":"Pixel 8","details":{"planCost":50,"planDiscount":10,"devicePayment":20,"taxes":4.5}},
		{"deviceName":"Galaxy","monthlyTotal":0,"details":{"planCost":30}}
	]}`))

	require.Len(t, a.PhoneLines, 2)
	assert.Equal(t, 64.5, a.PhoneLines[0].MonthlyTotal)
	assert.Equal(t, 0.0, a.PhoneLines[1].MonthlyTotal, "explicit zero kept")
	assert.Equal(t, DefaultPhoneNumber, a.PhoneLines[0].PhoneNumber)
	assert.Equal(t, DefaultPlanName, a.PhoneLines[0].PlanName)
	assert.Equal(t, 64.5, a.TotalAmount)
}

func TestNormalize_PlaceholderFromLegacyCategories(t *testing.T) {
	a := Normalize(decodeRecord(t, `{"chargesByCategory":{"plans":70,"devices":20,"services":6,"taxes":4}}`))

	require.Len(t, a.PhoneLines, 1)
	l := a.PhoneLines[0]
	assert.Equal(t, PlaceholderDevice, l.DeviceName)
	assert.Equal(t, 100.0, a.TotalAmount)
	assert.Equal(t, 70.0, l.Details.PlanCost)
	assert.Equal(t, 20.0, l.Details.DevicePayment)
	assert.Equal(t, 10.0, l.Details.Protection)

	assert.Equal(t, 70.0, a.ChargesByCategory[model.CategoryPlans])
	assert.Equal(t, 20.0, a.ChargesByCategory[model.CategoryDevices])
	assert.Equal(t, 10.0, a.ChargesByCategory[model.CategoryServices])
	assert.Equal(t, 8.0, a.ChargesByCategory[model.CategoryTaxes])
}

func TestNormalize_StatedTotalWins(t *testing.T) {
	a := Normalize(decodeRecord(t, `{"totalAmount":"$1,204.50","chargesByCategory":{"plans":1}}`))
	assert.Equal(t, 1204.5, a.TotalAmount)
	require.Len(t, a.PhoneLines, 1)
	assert.Equal(t, 843.15, a.PhoneLines[0].Details.PlanCost)
}

func TestNormalize_EnhancedKeepsSubObjects(t *testing.T) {
	a := Normalize(decodeRecord(t, `{
		"analysisType": "enhanced",
		"accountInfo": {"accountNumber": "ACC-9", "billingPeriod": "Apr 2025"},
		"totalAmount": 240,
		"phoneLines": [{"deviceName": "Pixel 8", "monthlyTotal": 120}, {"deviceName": "iPad", "monthlyTotal": 120}],
		"usageAnalysis": {"trend": "increasing", "percentageChange": 12.5, "avgDataUsage": 0},
		"costAnalysis": {"averageMonthlyBill": 200},
		"planRecommendation": {"recommendedPlan": "Family Unlimited", "confidenceScore": 92, "reasons": ["Fewer lines"]}
	}`))

	assert.Equal(t, "enhanced", a.Variant)
	assert.Equal(t, "ACC-9", a.AccountNumber)
	assert.Equal(t, "Apr 2025", a.BillingPeriod)
	assert.Equal(t, 240.0, a.TotalAmount)

	assert.Equal(t, model.TrendIncreasing, a.UsageAnalysis.Trend)
	assert.Equal(t, 12.5, a.UsageAnalysis.PercentageChange)
	assert.Equal(t, 0.0, a.UsageAnalysis.AvgDataUsage, "explicit zero kept")
	assert.Equal(t, 500.0, a.UsageAnalysis.AvgTalkMinutes, "gap filled")

	assert.Equal(t, 200.0, a.CostAnalysis.AverageMonthlyBill)
	assert.Equal(t, 210.0, a.CostAnalysis.ProjectedNextBill)
	assert.Len(t, a.CostAnalysis.PotentialSavings, 2)

	assert.Equal(t, "Family Unlimited", a.PlanRecommendation.RecommendedPlan)
	assert.Equal(t, []string{"Fewer lines"}, a.PlanRecommendation.Reasons)
	assert.Equal(t, 0.92, a.PlanRecommendation.ConfidenceScore)
	assert.NotEmpty(t, a.PlanRecommendation.AlternativePlans)
}

func TestNormalize_MinimalReplacesSubObjects(t *testing.T) {
	a := Normalize(decodeRecord(t, `{
		"phoneLines": [{"deviceName": "Pixel 8", "monthlyTotal": 80}],
		"usageAnalysis": {"trend": "decreasing"},
		"planRecommendation": {"recommendedPlan": "Ignored"}
	}`))

	assert.Equal(t, "minimal", a.Variant)
	assert.Equal(t, model.TrendStable, a.UsageAnalysis.Trend)
	assert.Equal(t, "Unlimited on Verizon", a.PlanRecommendation.RecommendedPlan)
}

func TestNormalize_InvalidTrendBecomesStable(t *testing.T) {
	a := Normalize(decodeRecord(t, `{"enhanced":true,"phoneLines":[{}],"usageAnalysis":{"trend":"sideways"}}`))
	assert.Equal(t, model.TrendStable, a.UsageAnalysis.Trend)
}

func TestNormalize_AlternativesUseCatalog(t *testing.T) {
	a := Normalize(decodeRecord(t, `{"totalAmount":200,"phoneLines":[{},{}]}`))

	alts := a.PlanRecommendation.AlternativePlans
	require.Len(t, alts, 4)
	assert.Equal(t, "Unlimited on Verizon", alts[0].Name)
	assert.Equal(t, 90.0, alts[0].MonthlyCost)
	assert.Equal(t, 110.0, alts[0].EstimatedSavings)
	assert.NotEmpty(t, alts[0].Pros)
}

func TestNewNormalizer_CapFallback(t *testing.T) {
	n := NewNormalizer(testPolicy(0), nil)
	assert.Equal(t, 8, n.Policy.MaxLines)

	n = NewNormalizer(testPolicy(2), nil)
	a := n.Normalize(decodeRecord(t, `{"phoneLines":[{},{},{}]}`))
	assert.Len(t, a.PhoneLines, 2)
	assert.Equal(t, DefaultPlanName, a.PlanRecommendation.RecommendedPlan)
	assert.Empty(t, a.PlanRecommendation.AlternativePlans)
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{85, 0.85},
		{100, 1},
		{250, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampConfidence(tt.in), "clampConfidence(%v)", tt.in)
	}
}
