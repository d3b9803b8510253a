package report

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Favorability is the direction of a budget-vs-actual difference after the
// section's sign convention has been applied.
type Favorability string

const (
	Favorable   Favorability = "favorable"
	Unfavorable Favorability = "unfavorable"
	Neutral     Favorability = "neutral"
)

// FavorabilityOf classifies a direction-adjusted difference.
func FavorabilityOf(diff decimal.Decimal) Favorability {
	switch diff.Sign() {
	case 1:
		return Favorable
	case -1:
		return Unfavorable
	default:
		return Neutral
	}
}

// Line compares unsigned budget and actual totals at one level.
type Line struct {
	Budget      Totals
	Actual      Totals
	Diff        Totals
	Monthly     [12]Favorability
	Annual      Favorability
	SectionKind core.SectionKind
}

// Variance holds a Line for every component, group and section. Overall
// sums the direction-adjusted section differences.
type Variance struct {
	Year       int
	Components map[core.ComponentID]Line
	Groups     map[core.GroupID]Line
	Sections   map[core.SectionID]Line
	Overall    Totals
}

// Diff applies the sign convention: under budget is good for expenses,
// over budget is good for income.
func Diff(kind core.SectionKind, budget, actual decimal.Decimal) decimal.Decimal {
	if kind == core.Expense {
		return budget.Sub(actual)
	}
	return actual.Sub(budget)
}

func newLine(kind core.SectionKind, budget, actual core.Months) Line {
	l := Line{
		Budget:      newTotals(budget),
		Actual:      newTotals(actual),
		SectionKind: kind,
	}
	var diff core.Months
	for i := range diff {
		diff[i] = Diff(kind, budget[i], actual[i])
		l.Monthly[i] = FavorabilityOf(diff[i])
	}
	l.Diff = newTotals(diff)
	l.Annual = FavorabilityOf(l.Diff.Annual)
	return l
}

func addInto(dst *core.Months, src core.Months) {
	for i, v := range src {
		dst[i] = dst[i].Add(v)
	}
}

// ComputeVariance compares budget and actual magnitudes without sign
// inversion. Excluded components (disabled, or under a disabled group)
// contribute to neither side and report zero lines.
func ComputeVariance(hierarchy []core.Section, budget, actual map[core.ComponentID]core.Months, year int) Variance {
	v := Variance{
		Year:       year,
		Components: make(map[core.ComponentID]Line),
		Groups:     make(map[core.GroupID]Line),
		Sections:   make(map[core.SectionID]Line),
	}

	var overall core.Months
	for _, s := range hierarchy {
		var sectionBudget, sectionActual core.Months
		for _, g := range s.Groups {
			var groupBudget, groupActual core.Months
			for _, c := range g.Components {
				if g.Disabled || c.Disabled {
					v.Components[c.ID] = newLine(s.Kind, core.Months{}, core.Months{})
					continue
				}
				b, a := budget[c.ID], actual[c.ID]
				v.Components[c.ID] = newLine(s.Kind, b, a)
				addInto(&groupBudget, b)
				addInto(&groupActual, a)
			}
			v.Groups[g.ID] = newLine(s.Kind, groupBudget, groupActual)
			addInto(&sectionBudget, groupBudget)
			addInto(&sectionActual, groupActual)
		}
		line := newLine(s.Kind, sectionBudget, sectionActual)
		v.Sections[s.ID] = line
		addInto(&overall, line.Diff.Monthly)
	}
	v.Overall = newTotals(overall)
	return v
}
