// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatMoney formats a currency amount with thousands separators and cents.
// e.g., 1204.5 -> "$1,204.50", -27.5 -> "-$27.50"
func FormatMoney(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + "$" + d.StringFixed(2)
	}
	return sign + "$" + FormatNumber(n) + "." + frac
}

// FormatSavings formats a savings figure with an explicit sign, so a switch
// that costs more reads as negative.
// e.g., 42 -> "+$42.00", -8.5 -> "-$8.50"
func FormatSavings(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return FormatMoney(amount)
	}
	if decimal.NewFromFloat(amount).Round(2).IsNegative() {
		return FormatMoney(amount)
	}
	return "+" + FormatMoney(amount)
}

// FormatCompactMoney formats large amounts without cents.
// e.g., 18420.7 -> "$18.4K", 940.2 -> "$940"
func FormatCompactMoney(amount float64) string {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("$%.1fM", amount/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("$%.1fK", amount/1_000)
	case abs >= 100:
		return fmt.Sprintf("$%.0f", amount)
	default:
		return FormatMoney(amount)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatChange formats a percentage change that is already in percent units.
// e.g., 12.5 -> "+12.5%"
func FormatChange(pct float64) string {
	if pct > 0 {
		return fmt.Sprintf("+%.1f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatUsage formats average usage figures.
func FormatUsage(dataGB, minutes, texts float64) string {
	return fmt.Sprintf("%.1f GB · %s min · %s texts",
		dataGB,
		FormatNumber(int64(minutes)),
		FormatNumber(int64(texts)),
	)
}

// FormatShortID returns the first 8 characters of an analysis ID.
func FormatShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatAge formats how long ago t was, relative to now.
// e.g., 3 hours -> "3h ago", 2 days -> "2d ago"
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
