package report

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Cashflow is the running balance per month. An invalid entry is a month
// that precedes the anchor and has no balance.
type Cashflow [12]decimal.NullDecimal

// ComputeCashflow walks the year's signed grand totals from the anchor.
//
// The accumulator starts from the anchor balance for every queried year; a
// later year does not inherit the previous December.
func ComputeCashflow(grand core.Months, anchor core.CashflowAnchor, year int) Cashflow {
	var out Cashflow
	balance := anchor.StartingBalance
	for i := range grand {
		month := i + 1
		if anchor.Precedes(year, month) {
			continue
		}
		balance = balance.Add(grand[i])
		out[i] = decimal.NullDecimal{Decimal: balance, Valid: true}
	}
	return out
}

// Closing returns the last defined balance of the year.
func (c Cashflow) Closing() (decimal.Decimal, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Valid {
			return c[i].Decimal, true
		}
	}
	return decimal.Zero, false
}
