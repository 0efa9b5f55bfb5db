package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/theirongolddev/billcheck/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagManualFile    string
	flagManualAccount string
	flagManualPeriod  string
	flagManualLines   []string
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Analyze a bill entered line by line",
	Long: "Analyze a bill typed in by hand, either as a JSON entry (--file, - for stdin)\n" +
		"or as repeated --line flags:\n\n" +
		"  billcheck manual -c att --line \"iPhone 15,plan=70,discount=10,device=25\" \\\n" +
		"                          --line \"iPad,plan=20,protection=9\"\n\n" +
		"Line keys: phone, name (plan name), plan, discount, device, credit,\n" +
		"protection, perks, perks-discount, surcharges, taxes.",
	Args: cobra.NoArgs,
	RunE: runManual,
}

func init() {
	manualCmd.Flags().StringVar(&flagManualFile, "file", "", "JSON manual entry (- for stdin)")
	manualCmd.Flags().StringVar(&flagManualAccount, "account", "", "Account number")
	manualCmd.Flags().StringVar(&flagManualPeriod, "period", "", "Billing period")
	manualCmd.Flags().StringArrayVar(&flagManualLines, "line", nil, "Line as \"Device,key=value,...\" (repeatable)")
	manualCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the analysis as JSON")
	rootCmd.AddCommand(manualCmd)
}

func runManual(_ *cobra.Command, _ []string) error {
	entry, err := manualEntryFromFlags()
	if err != nil {
		return err
	}

	an, st := newAnalyzer()
	defer closeStore(st)

	analysis, err := an.AnalyzeManual(context.Background(), entry)
	if err != nil {
		if errors.Is(err, pipeline.ErrCarrierRequired) {
			return fmt.Errorf("%w\n  Pass --carrier or set a default with `billcheck setup`", err)
		}
		return err
	}

	carrier := entry.Carrier()
	quote := an.Quote(carrier, analysis)
	if flagJSON {
		return printJSON(report{Analysis: analysis, Quote: &quote})
	}
	printAnalysis(analysis, quote, carrier)
	return nil
}

func manualEntryFromFlags() (pipeline.ManualEntry, error) {
	var entry pipeline.ManualEntry
	if flagManualFile != "" {
		var r io.Reader = os.Stdin
		if flagManualFile != "-" {
			f, err := os.Open(flagManualFile)
			if err != nil {
				return entry, err
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		if err := json.NewDecoder(r).Decode(&entry); err != nil {
			return entry, fmt.Errorf("decoding manual entry: %w", err)
		}
	}

	switch {
	case flagCarrier != "":
		entry.CarrierPreference = flagCarrier
	case entry.CarrierPreference == "":
		entry.CarrierPreference = appConfig.General.DefaultCarrier
	}
	if flagManualAccount != "" {
		entry.AccountNumber = flagManualAccount
	}
	if flagManualPeriod != "" {
		entry.BillingPeriod = flagManualPeriod
	}
	for _, spec := range flagManualLines {
		line, err := parseManualLine(spec)
		if err != nil {
			return entry, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, nil
}

// parseManualLine parses "Device,key=value,..." into a manual line.
func parseManualLine(spec string) (pipeline.ManualLine, error) {
	parts := strings.Split(spec, ",")
	line := pipeline.ManualLine{DeviceName: strings.TrimSpace(parts[0])}
	if line.DeviceName == "" || strings.Contains(line.DeviceName, "=") {
		return line, fmt.Errorf("line %q: must start with a device name", spec)
	}

	for _, kv := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return line, fmt.Errorf("line %q: expected key=value, got %q", spec, kv)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "phone":
			line.PhoneNumber = value
			continue
		case "name":
			line.PlanName = value
			continue
		}

		amount, err := strconv.ParseFloat(strings.TrimPrefix(value, "$"), 64)
		if err != nil {
			return line, fmt.Errorf("line %q: %s: %w", spec, key, err)
		}
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return line, fmt.Errorf("line %q: %s: %q is not a finite amount", spec, key, value)
		}
		switch key {
		case "plan":
			line.PlanCost = amount
		case "discount":
			line.PlanDiscount = amount
		case "device":
			line.DevicePayment = amount
		case "credit":
			line.DeviceCredit = amount
		case "protection":
			line.Protection = amount
		case "perks":
			line.Perks = amount
		case "perks-discount":
			line.PerksDiscount = amount
		case "surcharges":
			line.Surcharges = amount
		case "taxes":
			line.Taxes = amount
		default:
			return line, fmt.Errorf("line %q: unknown key %q", spec, key)
		}
	}
	return line, nil
}
