package core

import "github.com/shopspring/decimal"

// CashflowAnchor is the single process-wide point from which the running
// balance starts accumulating.
type CashflowAnchor struct {
	StartingBalance decimal.Decimal
	StartingYear    int
	StartingMonth   int
}

// ActualsCutoff marks the month up to which actuals have been reviewed. The
// engine never enforces it.
type ActualsCutoff struct {
	CutoffYear  int
	CutoffMonth int
}

// DefaultCashflowAnchor is used when no anchor has been stored: a zero
// balance that accumulates from the first month of every year.
func DefaultCashflowAnchor() CashflowAnchor {
	return CashflowAnchor{StartingBalance: decimal.Zero, StartingYear: 0, StartingMonth: 1}
}

// DefaultActualsCutoff treats nothing as reviewed.
func DefaultActualsCutoff() ActualsCutoff {
	return ActualsCutoff{CutoffYear: 0, CutoffMonth: 1}
}

func (a CashflowAnchor) Validate() error {
	if !ValidMonth(a.StartingMonth) {
		return ErrInvalidMonth
	}
	if a.StartingYear != 0 {
		return ValidateYear(a.StartingYear)
	}
	return nil
}

// Precedes reports whether month m of year lies strictly before the anchor.
func (a CashflowAnchor) Precedes(year, month int) bool {
	return year < a.StartingYear || (year == a.StartingYear && month < a.StartingMonth)
}

func (c ActualsCutoff) Validate() error {
	if !ValidMonth(c.CutoffMonth) {
		return ErrInvalidMonth
	}
	if c.CutoffYear != 0 {
		return ValidateYear(c.CutoffYear)
	}
	return nil
}

// Reviewed reports whether month m of year is at or before the cutoff.
func (c ActualsCutoff) Reviewed(year, month int) bool {
	return year < c.CutoffYear || (year == c.CutoffYear && month <= c.CutoffMonth)
}
