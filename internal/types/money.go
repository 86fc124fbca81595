// README: Common money value object used across modules.
package types

import "github.com/shopspring/decimal"

// Money is an amount in the platform currency.
type Money = decimal.Decimal

func Amount(v int64) Money {
    return decimal.NewFromInt(v)
}

func AmountFromFloat(v float64) Money {
    return decimal.NewFromFloat(v)
}

// Percent returns v * pct / 100.
func Percent(v Money, pct int64) Money {
    return v.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100))
}
