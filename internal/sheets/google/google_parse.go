package google

import (
	"fmt"
	"strconv"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

// rowWrite is one row of the sheet to overwrite; number is 1-based.
type rowWrite struct {
	number int
	cells  []any
}

// parseRowIndex maps the component ids found in column A to their row
// numbers. Rows whose first cell is not an id (the header, blank lines,
// totals added by hand) are ignored. next is the first row after the
// last non-empty one.
func parseRowIndex(column [][]any) (index map[core.ComponentID]int, next int) {
	index = make(map[core.ComponentID]int, len(column))
	for i, row := range column {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" {
			continue
		}
		id, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, dup := index[core.ComponentID(id)]; !dup {
			index[core.ComponentID(id)] = i + 1
		}
	}
	return index, len(column) + 1
}

// planRowWrites decides where each row lands. Known ids are overwritten in
// place and unknown ones appended after the last used row. An empty sheet
// gets the header on row 1 first.
func planRowWrites(column [][]any, rows []sheets.ComponentRow) []rowWrite {
	index, next := parseRowIndex(column)
	writes := make([]rowWrite, 0, len(rows)+1)
	if len(column) == 0 {
		writes = append(writes, rowWrite{number: 1, cells: headerCells()})
		next = 2
	}
	for _, r := range rows {
		if n, ok := index[r.ComponentID]; ok {
			writes = append(writes, rowWrite{number: n, cells: rowCells(r)})
			continue
		}
		index[r.ComponentID] = next
		writes = append(writes, rowWrite{number: next, cells: rowCells(r)})
		next++
	}
	return writes
}

func headerCells() []any {
	h := sheets.Header()
	out := make([]any, len(h))
	for i, v := range h {
		out[i] = v
	}
	return out
}

// rowCells renders amounts as numbers so the sheet can sum them regardless
// of its locale.
func rowCells(r sheets.ComponentRow) []any {
	cells := []any{int64(r.ComponentID), r.Section, r.Group, r.Component}
	for m := 1; m <= 12; m++ {
		cells = append(cells, r.Months.At(m).InexactFloat64())
	}
	return append(cells, r.Total.InexactFloat64())
}

// columnName converts a 1-based column number to its A1 letters.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

// a1Range quotes the sheet title so names with spaces are accepted.
func a1Range(title, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(title, "'", "''"), cells)
}

func rowRange(title string, number int) string {
	last := columnName(len(sheets.Header()))
	return a1Range(title, fmt.Sprintf("A%d:%s%d", number, last, number))
}
