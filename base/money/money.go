package money

import (
	"github.com/shopspring/decimal"

	"github.com/bidmarkt/goapi/domain"
)

// MinorUnitExponent is the scale between stored amounts and display
// amounts. Amounts are persisted as integer minor units (cents) to keep
// comparisons and increments exact.
const MinorUnitExponent = 2

// ToDisplay renders integer minor units as a display amount, e.g.
// 10050 -> "100.50".
func ToDisplay(amount int64) string {
	return decimal.New(amount, -MinorUnitExponent).StringFixed(MinorUnitExponent)
}

// ToDisplayDecimal returns the display amount as a decimal for callers
// who still need to do arithmetic on it.
func ToDisplayDecimal(amount int64) decimal.Decimal {
	return decimal.New(amount, -MinorUnitExponent)
}

// FromDisplay parses a display amount into integer minor units.
// "100.50" -> 10050. Sub-minor precision is rejected rather than
// rounded, a bid of "100.505" is a caller bug.
func FromDisplay(display string) (int64, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return 0, domain.ErrInvalidAmount
	}
	shifted := d.Shift(MinorUnitExponent)
	if !shifted.IsInteger() {
		return 0, domain.ErrInvalidAmount
	}
	return shifted.IntPart(), nil
}
