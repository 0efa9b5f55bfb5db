package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/session"
)

func newTestApp(t *testing.T) App {
	t.Helper()
	an := pipeline.NewAnalyzer(config.DefaultConfig(), nil, nil, logger.Nop())
	app := NewApp(Options{Analyzer: an, Carrier: "verizon"})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return m.(App)
}

func sampleAnalysis() *model.BillAnalysis {
	lines := []model.PhoneLine{
		{DeviceName: "iPhone 15", MonthlyTotal: 90, Details: model.LineDetails{PlanCost: 70, DevicePayment: 20}},
		{DeviceName: "Pixel 8", MonthlyTotal: 70, Details: model.LineDetails{PlanCost: 70}},
		{DeviceName: "iPad", MonthlyTotal: 50, Details: model.LineDetails{PlanCost: 40, Protection: 10}},
	}
	return &model.BillAnalysis{
		ID:                "3f9a2c1e-0000-4000-8000-000000000001",
		AccountNumber:     "1234-5678",
		BillingPeriod:     "Mar 2025",
		TotalAmount:       210,
		UsageAnalysis:     model.UsageAnalysis{Trend: model.TrendStable},
		CostAnalysis:      model.CostAnalysis{AverageMonthlyBill: 210, ProjectedNextBill: 220.5},
		PhoneLines:        lines,
		ChargesByCategory: pipeline.Aggregate(lines),
		PlanRecommendation: model.PlanRecommendation{
			RecommendedPlan: "Unlimited on Verizon",
			ConfidenceScore: 0.85,
		},
		CreatedAt: time.Now(),
	}
}

func writeRecord(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

func TestApp_AnalyzeThenReset(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, session.StateEmpty, a.machine.State())
	assert.Contains(t, a.View(), "Bill to analyze")

	a.pathInput.SetValue("/bills/march.json")
	a, cmd := send(t, a, key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, session.StateLoading, a.machine.State())
	assert.Contains(t, a.View(), "Analyzing /bills/march.json")
	a.cancel()

	a, _ = send(t, a, AnalysisDoneMsg{Analysis: sampleAnalysis()})
	require.Equal(t, session.StateReady, a.machine.State())
	assert.Equal(t, 132.0, a.quote.Price)
	assert.Equal(t, 78.0, a.quote.MonthlySavings)
	assert.Equal(t, "Unlimited on Verizon", a.quote.PlanName)

	a, _ = send(t, a, key("c"))
	assert.Equal(t, "att", a.carrier())
	assert.Equal(t, "Unlimited on AT&T", a.quote.PlanName)

	a, _ = send(t, a, key("n"))
	assert.Equal(t, session.StateEmpty, a.machine.State())
	assert.Nil(t, a.machine.Analysis())
	assert.Empty(t, a.pathInput.Value())
}

func TestApp_FailureAndRetry(t *testing.T) {
	a := newTestApp(t)
	a.pathInput.SetValue("/bills/scan.pdf")
	a, _ = send(t, a, key("enter"))
	a.cancel()

	a, _ = send(t, a, AnalysisDoneMsg{Err: errors.New("bill extraction failed: timeout")})
	require.Equal(t, session.StateFailed, a.machine.State())
	view := a.View()
	assert.Contains(t, view, "Analysis failed")
	assert.Contains(t, view, "timeout")

	a, cmd := send(t, a, key("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, session.StateLoading, a.machine.State())
	assert.Equal(t, "/bills/scan.pdf", a.machine.Snapshot().Source)
	a.cancel()

	a, _ = send(t, a, AnalysisDoneMsg{Err: context.Canceled})
	a, _ = send(t, a, key("esc"))
	assert.Equal(t, session.StateEmpty, a.machine.State())
}

func TestApp_KeysIgnoredWhileLoading(t *testing.T) {
	a := newTestApp(t)
	a.pathInput.SetValue("/bills/march.json")
	a, _ = send(t, a, key("enter"))
	defer a.cancel()

	a, _ = send(t, a, key("n"))
	assert.Equal(t, session.StateLoading, a.machine.State())
	a, _ = send(t, a, key("enter"))
	assert.Equal(t, session.StateLoading, a.machine.State())
}

func TestApp_EmptyPathReopensLatest(t *testing.T) {
	a := newTestApp(t)

	a, _ = send(t, a, key("enter"))
	assert.Equal(t, session.StateEmpty, a.machine.State())
	assert.Equal(t, "Enter a path to analyze", a.notice)

	latest := *sampleAnalysis()
	a, _ = send(t, a, HistoryLoadedMsg{Analyses: []model.BillAnalysis{latest}})
	a, _ = send(t, a, key("enter"))
	require.Equal(t, session.StateReady, a.machine.State())
	assert.Equal(t, latest.ID, a.machine.Analysis().ID)
}

func TestApp_TabsRender(t *testing.T) {
	a := newTestApp(t)
	a.pathInput.SetValue("/bills/march.json")
	a, _ = send(t, a, key("enter"))
	a.cancel()
	a, _ = send(t, a, AnalysisDoneMsg{Analysis: sampleAnalysis()})
	a, _ = send(t, a, HistoryLoadedMsg{Analyses: []model.BillAnalysis{*sampleAnalysis()}})

	wants := map[string]string{
		"o": "Projected Next",
		"l": "iPhone 15",
		"b": "Charges by Category",
		"u": "Switching Quotes",
		"h": "Recent Analyses",
	}
	for k, want := range wants {
		a, _ = send(t, a, key(k))
		view := a.View()
		assert.Contains(t, view, want, "tab %q", k)
		assert.Len(t, strings.Split(view, "\n"), 40, "tab %q should fill the screen", k)
	}

	a, _ = send(t, a, key("?"))
	assert.Contains(t, a.View(), "Keyboard Shortcuts")
	a, _ = send(t, a, key("x"))
	assert.False(t, a.showHelp)
}

func TestApp_LinesCursor(t *testing.T) {
	a := newTestApp(t)
	a.pathInput.SetValue("/bills/march.json")
	a, _ = send(t, a, key("enter"))
	a.cancel()
	a, _ = send(t, a, AnalysisDoneMsg{Analysis: sampleAnalysis()})
	a, _ = send(t, a, key("l"))

	a, _ = send(t, a, key("j"))
	a, _ = send(t, a, key("j"))
	a, _ = send(t, a, key("j"))
	assert.Equal(t, 2, a.lines.cursor)
	assert.Contains(t, a.View(), "Line 3")

	a, _ = send(t, a, key("k"))
	assert.Equal(t, 1, a.lines.cursor)
	a, _ = send(t, a, key("g"))
	assert.Equal(t, 0, a.lines.cursor)
}

func TestRunAnalysis_File(t *testing.T) {
	an := pipeline.NewAnalyzer(config.DefaultConfig(), nil, nil, logger.Nop())
	path := writeRecord(t, t.TempDir(), "march.json",
		`{"accountNumber":"A1","totalAmount":120,"phoneLines":[{"deviceName":"Pixel 8","monthlyTotal":120}]}`)

	msg := runAnalysis(context.Background(), an, nil, path, make(chan tea.Msg, 1))
	require.NoError(t, msg.Err)
	assert.Equal(t, "A1", msg.Analysis.AccountNumber)
	assert.Len(t, msg.Analysis.PhoneLines, 1)
}

func TestRunAnalysis_Directory(t *testing.T) {
	an := pipeline.NewAnalyzer(config.DefaultConfig(), nil, nil, logger.Nop())
	dir := t.TempDir()
	writeRecord(t, dir, "may.json", `{"accountNumber":"A1","totalAmount":100}`)
	writeRecord(t, dir, "june.json", `{"accountNumber":"A1","totalAmount":120}`)

	sub := make(chan tea.Msg, 8)
	msg := runAnalysis(context.Background(), an, nil, dir, sub)
	require.NoError(t, msg.Err)
	assert.Equal(t, 2, msg.Imported)
	assert.NotNil(t, msg.Analysis)

	empty := t.TempDir()
	msg = runAnalysis(context.Background(), an, nil, empty, sub)
	require.Error(t, msg.Err)
	assert.Contains(t, msg.Err.Error(), "no bill files")
}

func TestRunAnalysis_Missing(t *testing.T) {
	an := pipeline.NewAnalyzer(config.DefaultConfig(), nil, nil, logger.Nop())
	msg := runAnalysis(context.Background(), an, nil, filepath.Join(t.TempDir(), "nope.json"), nil)
	require.Error(t, msg.Err)
	assert.Nil(t, msg.Analysis)
}
