package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// ComponentRow is one line of the mirrored spreadsheet: the component's
// place in the hierarchy, its twelve raw amounts and their total.
type ComponentRow struct {
	ComponentID core.ComponentID
	Section     string
	Group       string
	Component   string
	Months      core.Months
	Total       decimal.Decimal
}

// Ports for outbound adapters.
type (
	// RowWriter replaces rows by component id, appending the ones not yet
	// present in the year's sheet for kind.
	RowWriter interface {
		UpsertRows(ctx context.Context, year int, kind core.ValueKind, rows []ComponentRow) error
	}
)

// Header is the first row of every mirrored sheet.
func Header() []string {
	h := []string{"id", "section", "group", "component"}
	for m := 1; m <= 12; m++ {
		h = append(h, core.MonthName(m))
	}
	return append(h, "total")
}

func BuildRow(path core.ComponentPath, months core.Months) ComponentRow {
	return ComponentRow{
		ComponentID: path.Component.ID,
		Section:     path.Section.Name,
		Group:       path.Group.Name,
		Component:   path.Component.Name,
		Months:      months,
		Total:       months.Sum(),
	}
}

// BuildRows returns a row for every component of the hierarchy in display
// order. Components without stored values get a row of zeros so that a
// cleared component is overwritten too.
func BuildRows(hierarchy []core.Section, values map[core.ComponentID]core.Months) []ComponentRow {
	paths := core.ComponentPaths(hierarchy)
	rows := make([]ComponentRow, 0, len(paths))
	for _, p := range paths {
		rows = append(rows, BuildRow(p, values[p.Component.ID]))
	}
	return rows
}
