package model

import "github.com/shopspring/decimal"

// FeeMode is how a charge or tax is computed for a range.
type FeeMode string

const (
	FeeFlat       FeeMode = "flat"
	FeePercentage FeeMode = "percentage"
	FeeBoth       FeeMode = "both"
)

var hundred = decimal.NewFromInt(100)

func (m FeeMode) Valid() bool {
	return m == FeeFlat || m == FeePercentage || m == FeeBoth
}

func (m FeeMode) HasFlat() bool {
	return m == FeeFlat || m == FeeBoth
}

func (m FeeMode) HasPercentage() bool {
	return m == FeePercentage || m == FeeBoth
}

// Fee is a single charge or tax rule. Flat is read only when the mode has a
// flat part and Percentage only when it has a percentage part.
type Fee struct {
	Mode       FeeMode
	Flat       decimal.Decimal
	Percentage decimal.Decimal
}

// FeeAmount is the computed breakdown of a Fee for one transaction amount.
type FeeAmount struct {
	Flat       decimal.Decimal
	Percentage decimal.Decimal
	Total      decimal.Decimal
}

// Apply computes the fee for amount. Each component is rounded to 2 places
// before being summed.
func (f Fee) Apply(amount decimal.Decimal) FeeAmount {
	flat := decimal.Zero
	pct := decimal.Zero

	if f.Mode.HasFlat() {
		flat = f.Flat.Round(2)
	}
	if f.Mode.HasPercentage() {
		pct = amount.Mul(f.Percentage).Div(hundred).Round(2)
	}

	return FeeAmount{
		Flat:       flat,
		Percentage: pct,
		Total:      flat.Add(pct).Round(2),
	}
}
