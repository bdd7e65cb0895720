package shared

import "github.com/shopspring/decimal"

// BalanceEpsilon is the largest debit/credit difference still considered
// balanced. Amounts are stored with two decimal places, so anything below one
// minor currency unit is rounding noise.
var BalanceEpsilon = decimal.NewFromFloat(0.01)

// WithinEpsilon reports whether two amounts differ by less than BalanceEpsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(BalanceEpsilon)
}

// RoundMoney normalises an amount to two decimal places.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// SafeDiv divides a by b, resolving a zero denominator to zero instead of
// propagating a division error into report output.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, 6)
}
