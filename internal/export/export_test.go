package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bilancio/internal/core"
	"bilancio/internal/seed"
	"bilancio/internal/services"
	"bilancio/internal/store/memory"
)

func yearReport(t *testing.T) *services.YearReport {
	t.Helper()
	svc := services.NewBudgetService(memory.New(seed.Default()), nil, services.Options{})
	ctx := context.Background()
	require.NoError(t, svc.UpsertValues(ctx, core.Budget, 100, 2024, map[int]decimal.Decimal{1: decimal.NewFromInt(2000)}))
	require.NoError(t, svc.UpsertValues(ctx, core.Budget, 200, 2024, map[int]decimal.Decimal{1: decimal.NewFromInt(800)}))
	require.NoError(t, svc.UpsertValues(ctx, core.Actual, 200, 2024, map[int]decimal.Decimal{1: decimal.NewFromInt(900)}))
	r, err := svc.Report(ctx, 2024)
	require.NoError(t, err)
	return r
}

func cell(t *testing.T, f *excelize.File, sheet, axis string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, axis)
	require.NoError(t, err)
	return v
}

func TestExport_Sheets(t *testing.T) {
	f, err := NewExporter().Export(yearReport(t))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetBudget, SheetActuals, SheetCashflow, SheetVariance}, f.GetSheetList())
}

func TestExport_RollupSheet(t *testing.T) {
	f, err := NewExporter().Export(yearReport(t))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "Section", cell(t, f, SheetBudget, "A1"))
	assert.Equal(t, "Jan", cell(t, f, SheetBudget, "E1"))
	assert.Equal(t, "Total", cell(t, f, SheetBudget, "Q1"))

	assert.Equal(t, "Stipendio", cell(t, f, SheetBudget, "C2"))
	assert.Equal(t, "2000", cell(t, f, SheetBudget, "E2"))
	assert.Equal(t, "Affitto", cell(t, f, SheetBudget, "C5"))
	assert.Equal(t, "800", cell(t, f, SheetBudget, "E5"), "components keep raw amounts")
	assert.Equal(t, "-800", cell(t, f, SheetBudget, "E10"), "expense section is signed")
	assert.Equal(t, "Total", cell(t, f, SheetBudget, "A11"))
	assert.Equal(t, "1200", cell(t, f, SheetBudget, "Q11"))

	assert.Equal(t, "-900", cell(t, f, SheetActuals, "E11"))
}

func TestExport_CashflowAndVariance(t *testing.T) {
	f, err := NewExporter().Export(yearReport(t))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "Jan", cell(t, f, SheetCashflow, "A2"))
	assert.Equal(t, "1200", cell(t, f, SheetCashflow, "B2"))
	assert.Equal(t, "-900", cell(t, f, SheetCashflow, "C2"))
	assert.Equal(t, "1200", cell(t, f, SheetCashflow, "B13"), "balance carries through empty months")

	assert.Equal(t, "Affitto", cell(t, f, SheetVariance, "B5"))
	assert.Equal(t, "-100", cell(t, f, SheetVariance, "E5"))
	assert.Equal(t, "unfavorable", cell(t, f, SheetVariance, "F5"))
	assert.Equal(t, "overall", cell(t, f, SheetVariance, "A11"))
}

func TestExport_WriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter().Write(&buf, yearReport(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "2000", cell(t, f, SheetBudget, "E2"))
}

func TestExport_RejectsEmptyReport(t *testing.T) {
	_, err := NewExporter().Export(nil)
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, "bilancio-2024.xlsx", FileName(2024))
}
