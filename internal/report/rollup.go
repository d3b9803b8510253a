// Package report derives the read-only budget views: signed rollups,
// running cashflow balances and budget-vs-actual variance. Every function is
// a pure function of its inputs.
package report

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Totals is a level's twelve monthly totals plus their annual sum.
type Totals struct {
	Monthly core.Months
	Annual  decimal.Decimal
}

func newTotals(m core.Months) Totals {
	return Totals{Monthly: m, Annual: m.Sum()}
}

// Rollup carries signed group, section and grand totals. Components keeps
// the raw unsigned magnitudes for display.
type Rollup struct {
	Year       int
	Components map[core.ComponentID]core.Months
	Groups     map[core.GroupID]Totals
	Sections   map[core.SectionID]Totals
	Grand      Totals
}

// SignFor returns +1 for income and -1 for expense sections.
func SignFor(kind core.SectionKind) decimal.Decimal {
	if kind == core.Income {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// ComputeRollup aggregates per-component magnitudes bottom-up. Disabled
// groups drop their whole subtree, disabled components drop themselves,
// and expense amounts contribute negatively. Every group and section in
// the hierarchy has an entry, zero when nothing contributed.
func ComputeRollup(hierarchy []core.Section, values map[core.ComponentID]core.Months, year int) Rollup {
	r := Rollup{
		Year:       year,
		Components: make(map[core.ComponentID]core.Months),
		Groups:     make(map[core.GroupID]Totals),
		Sections:   make(map[core.SectionID]Totals),
	}

	var grand core.Months
	for _, s := range hierarchy {
		sign := SignFor(s.Kind)
		var section core.Months
		for _, g := range s.Groups {
			var group core.Months
			for _, c := range g.Components {
				raw := values[c.ID]
				r.Components[c.ID] = raw
				if g.Disabled || c.Disabled {
					continue
				}
				for i, amount := range raw {
					signed := amount.Mul(sign)
					group[i] = group[i].Add(signed)
					section[i] = section[i].Add(signed)
					grand[i] = grand[i].Add(signed)
				}
			}
			r.Groups[g.ID] = newTotals(group)
		}
		r.Sections[s.ID] = newTotals(section)
	}
	r.Grand = newTotals(grand)
	return r
}
