package google

import (
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

func TestParseRowIndex(t *testing.T) {
	column := [][]any{
		{"id"},
		{"100"},
		{},
		{float64(200)},
		{"Totale"},
		{"100"},
	}
	index, next := parseRowIndex(column)
	if len(index) != 2 {
		t.Fatalf("expected 2 ids, got %v", index)
	}
	if index[100] != 2 {
		t.Fatalf("id 100 at row %d, want 2 (first occurrence wins)", index[100])
	}
	if index[200] != 4 {
		t.Fatalf("id 200 at row %d, want 4", index[200])
	}
	if next != 7 {
		t.Fatalf("next = %d, want 7", next)
	}
}

func TestPlanRowWrites_EmptySheetGetsHeader(t *testing.T) {
	rows := []sheets.ComponentRow{{ComponentID: 100, Component: "Stipendio"}, {ComponentID: 200}}
	writes := planRowWrites(nil, rows)
	if len(writes) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(writes))
	}
	if writes[0].number != 1 || writes[0].cells[0] != "id" {
		t.Fatalf("unexpected header write %+v", writes[0])
	}
	if writes[1].number != 2 || writes[2].number != 3 {
		t.Fatalf("rows should follow the header: %d, %d", writes[1].number, writes[2].number)
	}
}

func TestPlanRowWrites_UpdatesInPlaceAndAppends(t *testing.T) {
	column := [][]any{{"id"}, {"100"}, {"200"}}
	var m core.Months
	_ = m.Set(3, decimal.RequireFromString("12.5"))
	rows := []sheets.ComponentRow{
		{ComponentID: 200, Months: m, Total: m.Sum()},
		{ComponentID: 300},
		{ComponentID: 301},
	}

	writes := planRowWrites(column, rows)
	want := []int{3, 4, 5}
	if len(writes) != len(want) {
		t.Fatalf("got %d writes, want %d", len(writes), len(want))
	}
	for i, w := range writes {
		if w.number != want[i] {
			t.Errorf("write %d lands on row %d, want %d", i, w.number, want[i])
		}
	}
	cells := writes[0].cells
	if len(cells) != 17 {
		t.Fatalf("row has %d cells, want 17", len(cells))
	}
	if cells[0] != int64(200) || cells[6] != 12.5 || cells[16] != 12.5 {
		t.Fatalf("unexpected cells %v", cells)
	}
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"},
		{17, "Q"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
	}
	for _, tt := range tests {
		if got := columnName(tt.n); got != tt.want {
			t.Errorf("columnName(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRanges(t *testing.T) {
	if got := rowRange("2024 Budget", 5); got != "'2024 Budget'!A5:Q5" {
		t.Fatalf("rowRange = %q", got)
	}
	if got := a1Range("Bob's", "A:A"); got != "'Bob''s'!A:A" {
		t.Fatalf("a1Range = %q", got)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Budget", 2024, "2024 Budget"},
		{" Actuals ", 2025, "2025 Actuals"},
		{"2023 Budget", 2024, "2023 Budget"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
