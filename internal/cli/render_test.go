package cli

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Lines",
		Headers: []string{"Device", "Monthly"},
		Rows: [][]string{
			{"iPhone 15", "$100.00"},
			{"---"},
			{"Total", "$100.00"},
		},
	})

	for _, want := range []string{"Lines", "Device", "iPhone 15", "Total", "╭", "╯"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "├"); got != 2 {
		t.Errorf("separator rows = %d, want 2 (header + explicit)", got)
	}
}

func TestRenderTable_Empty(t *testing.T) {
	if out := RenderTable(Table{}); out != "" {
		t.Errorf("empty table rendered %q", out)
	}
}

func TestRenderHorizontalBar(t *testing.T) {
	out := RenderHorizontalBar("Plan Charges", 50, 100, 14, 10)
	if !strings.Contains(out, "Plan Charges") {
		t.Errorf("bar missing label: %q", out)
	}
	if got := strings.Count(out, "█"); got != 5 {
		t.Errorf("filled cells = %d, want 5", got)
	}
	if !strings.Contains(out, "$50.00") {
		t.Errorf("bar missing value: %q", out)
	}

	zero := RenderHorizontalBar("Taxes & Fees", 0, 0, 14, 10)
	if strings.Count(zero, "░") != 10 {
		t.Errorf("zero max should render an empty bar: %q", zero)
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline([]float64{0, 50, 100}); got != "▁▄█" {
		t.Errorf("RenderSparkline = %q", got)
	}
	if got := RenderSparkline(nil); got != "" {
		t.Errorf("RenderSparkline(nil) = %q", got)
	}
}

func TestRenderKeyValues(t *testing.T) {
	out := RenderKeyValues([][2]string{{"Account", "123"}, {"Period", "May 2025"}})
	if !strings.Contains(out, "Account") || !strings.Contains(out, "May 2025") {
		t.Errorf("key values missing content:\n%s", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected 2 lines:\n%s", out)
	}
}
