package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Months holds one value per calendar month. The zero value is twelve zeros,
// so a missing month and an explicit zero are indistinguishable.
type Months [12]decimal.Decimal

// MonthNotes holds one free-text note per calendar month; "" means no note.
type MonthNotes [12]string

// At returns the value for a 1-based month, zero when out of range.
func (m Months) At(month int) decimal.Decimal {
	if !ValidMonth(month) {
		return decimal.Zero
	}
	return m[month-1]
}

// Set stores v at a 1-based month.
func (m *Months) Set(month int, v decimal.Decimal) error {
	if !ValidMonth(month) {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	m[month-1] = v
	return nil
}

// Add accumulates v into a 1-based month; out-of-range months are ignored.
func (m *Months) Add(month int, v decimal.Decimal) {
	if ValidMonth(month) {
		m[month-1] = m[month-1].Add(v)
	}
}

func (m Months) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

func (m Months) Neg() Months {
	var out Months
	for i, v := range m {
		out[i] = v.Neg()
	}
	return out
}

func (m Months) Equal(o Months) bool {
	for i := range m {
		if !m[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Map returns the months as the sparse month→amount payload the
// persistence collaborator expects; all twelve months are included.
func (m Months) Map() map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, 12)
	for i, v := range m {
		out[i+1] = v
	}
	return out
}

// MonthsFromMap builds a total Months from a sparse payload, rejecting
// any key outside [1,12] before anything is copied.
func MonthsFromMap(values map[int]decimal.Decimal) (Months, error) {
	var out Months
	if err := ValidateMonthKeys(values); err != nil {
		return Months{}, err
	}
	for month, v := range values {
		out[month-1] = v
	}
	return out, nil
}

// ValidateMonthKeys rejects a bulk payload that carries a month outside [1,12].
func ValidateMonthKeys[T any](values map[int]T) error {
	for month := range values {
		if !ValidMonth(month) {
			return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
		}
	}
	return nil
}

func (n MonthNotes) At(month int) string {
	if !ValidMonth(month) {
		return ""
	}
	return n[month-1]
}

// Map returns every month's note text, including empty ones, so that an
// upsert can delete notes that were cleared.
func (n MonthNotes) Map() map[int]string {
	out := make(map[int]string, 12)
	for i, v := range n {
		out[i+1] = v
	}
	return out
}

// NormalizeNote trims note text; the empty result means "delete".
func NormalizeNote(text string) string {
	return strings.TrimSpace(text)
}

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthName returns the short English header used in sheets and exports.
func MonthName(month int) string {
	if !ValidMonth(month) {
		return ""
	}
	return monthNames[month-1]
}
