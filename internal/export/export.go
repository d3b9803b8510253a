package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bilancio/internal/core"
	"bilancio/internal/report"
	"bilancio/internal/services"
)

const (
	SheetBudget   = "Budget"
	SheetActuals  = "Actuals"
	SheetCashflow = "Cashflow"
	SheetVariance = "Variance"
)

// ContentType is the media type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter renders a year report as an XLSX workbook.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// FileName is the suggested download name for year.
func FileName(year int) string {
	return fmt.Sprintf("bilancio-%d.xlsx", year)
}

// Write renders r and streams the workbook to w.
func (e *Exporter) Write(w io.Writer, r *services.YearReport) error {
	f, err := e.Export(r)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Export builds the workbook: one rollup sheet per keyspace, the running
// balances and the variance lines.
func (e *Exporter) Export(r *services.YearReport) (*excelize.File, error) {
	if r == nil || r.Snapshot == nil {
		return nil, fmt.Errorf("export: %w", core.ErrMissingField)
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetBudget); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetActuals, SheetCashflow, SheetVariance} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	hierarchy := r.Snapshot.Hierarchy
	w := &sheetWriter{f: f, header: headerStyle, total: totalStyle}
	w.rollup(SheetBudget, hierarchy, r.BudgetRollup)
	w.rollup(SheetActuals, hierarchy, r.ActualRollup)
	w.cashflow(SheetCashflow, r.BudgetCashflow, r.ActualCashflow)
	w.variance(SheetVariance, hierarchy, r.Variance)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// sheetWriter keeps the first error so the render code stays linear.
type sheetWriter struct {
	f      *excelize.File
	header int
	total  int
	err    error
}

func (w *sheetWriter) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, _ := excelize.CoordinatesToCellName(1, n)
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) style(sheet string, n, style int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetRowStyle(sheet, n, n, style); err != nil {
		w.err = fmt.Errorf("style %s row %d: %w", sheet, n, err)
	}
}

func monthHeaders(lead ...string) []any {
	out := make([]any, 0, len(lead)+13)
	for _, l := range lead {
		out = append(out, l)
	}
	for m := 1; m <= 12; m++ {
		out = append(out, core.MonthName(m))
	}
	return append(out, "Total")
}

func monthCells(lead []any, months core.Months, annual decimal.Decimal) []any {
	out := append([]any(nil), lead...)
	for m := 1; m <= 12; m++ {
		out = append(out, months.At(m).InexactFloat64())
	}
	return append(out, annual.InexactFloat64())
}

// rollup lists components with their raw amounts under signed group and
// section subtotals. Excluded components are marked, not hidden.
func (w *sheetWriter) rollup(sheet string, hierarchy []core.Section, r report.Rollup) {
	n := 1
	w.row(sheet, n, monthHeaders("Section", "Group", "Component", "Included")...)
	w.style(sheet, n, w.header)
	for _, s := range hierarchy {
		for _, g := range s.Groups {
			for _, c := range g.Components {
				n++
				raw := r.Components[c.ID]
				included := !g.Disabled && !c.Disabled
				w.row(sheet, n, monthCells([]any{s.Name, g.Name, c.Name, included}, raw, raw.Sum())...)
			}
			n++
			gt := r.Groups[g.ID]
			w.row(sheet, n, monthCells([]any{s.Name, g.Name, "", !g.Disabled}, gt.Monthly, gt.Annual)...)
			w.style(sheet, n, w.total)
		}
		n++
		st := r.Sections[s.ID]
		w.row(sheet, n, monthCells([]any{s.Name, "", "", true}, st.Monthly, st.Annual)...)
		w.style(sheet, n, w.total)
	}
	n++
	w.row(sheet, n, monthCells([]any{"Total", "", "", true}, r.Grand.Monthly, r.Grand.Annual)...)
	w.style(sheet, n, w.total)
	if w.err == nil {
		_ = w.f.SetColWidth(sheet, "A", "C", 22)
	}
}

// cashflow writes one row per month; months before the anchor stay blank.
func (w *sheetWriter) cashflow(sheet string, budget, actual report.Cashflow) {
	w.row(sheet, 1, "Month", "Budget balance", "Actual balance")
	w.style(sheet, 1, w.header)
	for m := 1; m <= 12; m++ {
		w.row(sheet, m+1, core.MonthName(m), balanceCell(budget[m-1]), balanceCell(actual[m-1]))
	}
}

func balanceCell(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.InexactFloat64()
}

func (w *sheetWriter) variance(sheet string, hierarchy []core.Section, v report.Variance) {
	n := 1
	w.row(sheet, n, "Level", "Name", "Budget", "Actual", "Difference", "Outcome")
	w.style(sheet, n, w.header)
	line := func(level, name string, l report.Line) {
		n++
		w.row(sheet, n, level, name,
			l.Budget.Annual.InexactFloat64(),
			l.Actual.Annual.InexactFloat64(),
			l.Diff.Annual.InexactFloat64(),
			string(l.Annual))
	}
	for _, s := range hierarchy {
		for _, g := range s.Groups {
			for _, c := range g.Components {
				line("component", c.Name, v.Components[c.ID])
			}
			line("group", g.Name, v.Groups[g.ID])
			w.style(sheet, n, w.total)
		}
		line("section", s.Name, v.Sections[s.ID])
		w.style(sheet, n, w.total)
	}
	n++
	w.row(sheet, n, "overall", "", nil, nil, v.Overall.Annual.InexactFloat64(), string(report.FavorabilityOf(v.Overall.Annual)))
	w.style(sheet, n, w.total)
	if w.err == nil {
		_ = w.f.SetColWidth(sheet, "B", "B", 24)
	}
}
