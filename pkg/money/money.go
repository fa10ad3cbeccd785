// Package money defines the core's single unit of account: signed integer
// cents. Per the settlement core's external contract, no monetary quantity
// may ever be represented as a floating-point number in persisted or
// externally-visible state; decimal.Decimal is used only at the presentation
// boundary (logs, CLI reports), never for accounting.
package money

import "github.com/shopspring/decimal"

// Cents is the core's sole unit of account. Positive values are credits,
// negative values are debits/overdrafts depending on context.
type Cents int64

// Decimal renders cents as a two-decimal-place decimal.Decimal for display,
// e.g. in log fields or CLI reports. It is never used in settlement math.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// BpsOfPerTick applies a basis-points-per-tick rate to an amount, rounding
// toward zero, matching the core's documented integer rounding mode
// (rounding-toward-zero keeps accrual monotone and never over-charges a
// fractional-cent remainder across many ticks).
func BpsOfPerTick(amount Cents, bps int64) Cents {
	if amount == 0 || bps == 0 {
		return 0
	}
	// amount * bps / 10000, truncated toward zero.
	neg := (amount < 0) != (bps < 0)
	a := int64(amount)
	if a < 0 {
		a = -a
	}
	b := bps
	if b < 0 {
		b = -b
	}
	result := (a * b) / 10000
	if neg {
		return -Cents(result)
	}
	return Cents(result)
}

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// Max returns the larger of two Cents values.
func Max(a, b Cents) Cents {
	if a > b {
		return a
	}
	return b
}

// Min returns the smaller of two Cents values.
func Min(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}
