package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/source"
)

// Manual entry validation errors.
var (
	ErrCarrierRequired = errors.New("carrier preference is required")
	ErrInvalidEntry    = errors.New("invalid manual entry")
)

// ManualEntry is a bill typed in line by line, with the carrier the customer
// wants quoted.
type ManualEntry struct {
	CarrierPreference string       `json:"carrierPreference" validate:"required,carrier"`
	AccountNumber     string       `json:"accountNumber,omitempty"`
	BillingPeriod     string       `json:"billingPeriod,omitempty"`
	Lines             []ManualLine `json:"lines" validate:"required,min=1,max=8,dive"`
}

// ManualLine is one line of a manual entry. Charges are in currency units.
type ManualLine struct {
	DeviceName    string  `json:"deviceName" validate:"required"`
	PhoneNumber   string  `json:"phoneNumber,omitempty"`
	PlanName      string  `json:"planName,omitempty"`
	PlanCost      float64 `json:"planCost" validate:"finite,gte=0"`
	PlanDiscount  float64 `json:"planDiscount" validate:"finite,gte=0"`
	DevicePayment float64 `json:"devicePayment" validate:"finite,gte=0"`
	DeviceCredit  float64 `json:"deviceCredit" validate:"finite,gte=0"`
	Protection    float64 `json:"protection" validate:"finite,gte=0"`
	Perks         float64 `json:"perks" validate:"finite,gte=0"`
	PerksDiscount float64 `json:"perksDiscount" validate:"finite,gte=0"`
	Surcharges    float64 `json:"surcharges" validate:"finite,gte=0"`
	Taxes         float64 `json:"taxes" validate:"finite,gte=0"`
}

var entryValidator = newEntryValidator()

func newEntryValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("carrier", func(fl validator.FieldLevel) bool {
		return config.IsCarrier(fl.Field().String())
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// Validate checks the entry. A missing or unknown carrier preference yields
// ErrCarrierRequired; any other problem yields ErrInvalidEntry.
func (m *ManualEntry) Validate() error {
	err := entryValidator.Struct(m)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.StructField() == "CarrierPreference" {
			return fmt.Errorf("%w: choose one of %s", ErrCarrierRequired, strings.Join(config.Carriers, ", "))
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidEntry, strings.Join(msgs, "; "))
}

// Carrier returns the normalized carrier preference.
func (m *ManualEntry) Carrier() string {
	return config.NormalizeCarrierID(m.CarrierPreference)
}

// ToRaw validates the entry and converts it into a minimal bill record with
// one phone line per entry line.
func (m *ManualEntry) ToRaw() (source.RawBillRecord, error) {
	if err := m.Validate(); err != nil {
		return source.RawBillRecord{}, err
	}

	rec := source.RawBillRecord{Variant: source.VariantMinimal}
	if m.AccountNumber != "" {
		rec.AccountNumber = text(m.AccountNumber)
	}
	if m.BillingPeriod != "" {
		rec.BillingPeriod = text(m.BillingPeriod)
	}

	total := dec(0)
	for _, l := range m.Lines {
		line := source.RawPhoneLine{
			DeviceName: text(l.DeviceName),
			Details: &source.RawLineDetails{
				PlanCost:      amount(l.PlanCost),
				PlanDiscount:  amount(l.PlanDiscount),
				DevicePayment: amount(l.DevicePayment),
				DeviceCredit:  amount(l.DeviceCredit),
				Protection:    amount(l.Protection),
				Perks:         amount(l.Perks),
				PerksDiscount: amount(l.PerksDiscount),
				Surcharges:    amount(l.Surcharges),
				Taxes:         amount(l.Taxes),
			},
		}
		if l.PhoneNumber != "" {
			line.PhoneNumber = text(l.PhoneNumber)
		}
		if l.PlanName != "" {
			line.PlanName = text(l.PlanName)
		}
		rec.PhoneLines = append(rec.PhoneLines, line)
		total = total.Add(dec(manualLineNet(l)))
	}
	rec.TotalAmount = amount(cents(total))
	return rec, nil
}

func manualLineNet(l ManualLine) float64 {
	return l.PlanCost - l.PlanDiscount +
		l.DevicePayment - l.DeviceCredit +
		l.Protection +
		l.Perks - l.PerksDiscount +
		l.Surcharges + l.Taxes
}
