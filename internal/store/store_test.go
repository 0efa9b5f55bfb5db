package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/billcheck/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleAnalysis(id, account, period string, total float64, created time.Time) *model.BillAnalysis {
	return &model.BillAnalysis{
		ID:            id,
		AccountNumber: account,
		BillingPeriod: period,
		TotalAmount:   total,
		PhoneLines: []model.PhoneLine{
			{DeviceName: "Pixel 8", MonthlyTotal: total, Details: model.LineDetails{PlanCost: total}},
		},
		ChargesByCategory: model.CategoryTotals{
			model.CategoryPlans:    total,
			model.CategoryDevices:  0,
			model.CategoryServices: 0,
			model.CategoryTaxes:    0,
		},
		PlanRecommendation: model.PlanRecommendation{RecommendedPlan: "Unlimited on AT&T"},
		CreatedAt:          created,
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveAnalysis(sampleAnalysis("a1b2c3", "100", "May 2025", 120.5, now)))

	got, err := s.GetAnalysis("a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, "100", got.AccountNumber)
	assert.Equal(t, 120.5, got.TotalAmount)
	assert.Len(t, got.PhoneLines, 1)
	assert.True(t, got.CreatedAt.Equal(now))

	byPrefix, err := s.GetAnalysis("a1b")
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3", byPrefix.ID)

	_, err = s.GetAnalysis("zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAnalysis_SameBillReplaces(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	require.NoError(t, s.SaveAnalysis(sampleAnalysis("first", "100", "May 2025", 120.5, now)))
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("second", "100", "May 2025", 120.5, now)))
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("third", "100", "June 2025", 99, now)))

	count, err := s.AnalysisCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = s.GetAnalysis("first")
	assert.ErrorIs(t, err, ErrNotFound)

	totals, err := s.CategoryTotals("100")
	require.NoError(t, err)
	assert.InDelta(t, 219.5, totals[model.CategoryPlans], 0.001)
}

func TestGetAnalysis_AmbiguousPrefix(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("abc1", "1", "Jan", 10, now)))
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("abc2", "2", "Jan", 20, now)))

	_, err := s.GetAnalysis("abc")
	assert.ErrorIs(t, err, ErrAmbiguous)

	got, err := s.GetAnalysis("abc2")
	require.NoError(t, err)
	assert.Equal(t, "2", got.AccountNumber)
}

func TestGetAnalysis_PrefixIsLiteral(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("abc1", "1", "Jan", 10, now)))
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("a_c%9", "2", "Feb", 20, now)))
	require.NoError(t, s.SaveAnalysis(sampleAnalysis(`x\y`, "3", "Mar", 30, now)))

	for _, id := range []string{"_bc", "%", "a%1", "ab_"} {
		_, err := s.GetAnalysis(id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}

	for id, want := range map[string]string{"a_c": "a_c%9", "a_c%": "a_c%9", `x\`: `x\y`} {
		got, err := s.GetAnalysis(id)
		require.NoError(t, err, id)
		assert.Equal(t, want, got.ID, id)
	}
}

func TestListAnalyses_NewestFirstAndFiltered(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("old", "100", "Jan", 10, base)))
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("mid", "200", "Feb", 20, base.Add(24*time.Hour))))
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("new", "100", "Mar", 30, base.Add(48*time.Hour))))

	all, err := s.ListAnalyses(ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	mine, err := s.ListAnalyses(ListOptions{Account: "100", Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "new", mine[0].ID)
}

func TestDeleteAnalysis(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveAnalysis(sampleAnalysis("gone", "1", "Jan", 10, time.Now())))

	require.NoError(t, s.DeleteAnalysis("gone"))
	assert.ErrorIs(t, s.DeleteAnalysis("gone"), ErrNotFound)

	totals, err := s.CategoryTotals("")
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestSaveAnalysis_RequiresID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.SaveAnalysis(&model.BillAnalysis{AccountNumber: "1"}))
}

func TestFileTracker(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.TrackFile("/bills/may.json", FileInfo{MtimeNs: 42, SizeBytes: 100, AnalysisID: "x"}))
	tracked, err := s.GetTrackedFiles()
	require.NoError(t, err)
	assert.Equal(t, FileInfo{MtimeNs: 42, SizeBytes: 100, AnalysisID: "x"}, tracked["/bills/may.json"])

	require.NoError(t, s.DeleteFileTracker("/bills/may.json"))
	tracked, err = s.GetTrackedFiles()
	require.NoError(t, err)
	assert.Empty(t, tracked)
}
