package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

type sheetKey struct {
	year int
	kind core.ValueKind
}

// sheet keeps rows in insertion order, like a spreadsheet tab.
type sheet struct {
	rows  []sheets.ComponentRow
	index map[core.ComponentID]int
}

// Mirror is an in-memory RowWriter used when no spreadsheet is configured
// and in tests.
type Mirror struct {
	mu     sync.Mutex
	sheets map[sheetKey]*sheet
	writes int
}

var _ sheets.RowWriter = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{sheets: map[sheetKey]*sheet{}}
}

// UpsertRows replaces rows with a known component id and appends the rest.
func (m *Mirror) UpsertRows(_ context.Context, year int, kind core.ValueKind, rows []sheets.ComponentRow) error {
	if err := core.ValidateYear(year); err != nil {
		return err
	}
	if err := kind.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sheetKey{year: year, kind: kind}
	sh, ok := m.sheets[key]
	if !ok {
		sh = &sheet{index: map[core.ComponentID]int{}}
		m.sheets[key] = sh
	}
	for _, r := range rows {
		if i, ok := sh.index[r.ComponentID]; ok {
			sh.rows[i] = r
			continue
		}
		sh.index[r.ComponentID] = len(sh.rows)
		sh.rows = append(sh.rows, r)
	}
	m.writes++
	return nil
}

// Rows returns a copy of the rows mirrored for year and kind.
func (m *Mirror) Rows(year int, kind core.ValueKind) []sheets.ComponentRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	sh, ok := m.sheets[sheetKey{year: year, kind: kind}]
	if !ok {
		return nil
	}
	return append([]sheets.ComponentRow(nil), sh.rows...)
}

// Row looks up a single component's row.
func (m *Mirror) Row(year int, kind core.ValueKind, id core.ComponentID) (sheets.ComponentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sh, ok := m.sheets[sheetKey{year: year, kind: kind}]
	if ok {
		if i, found := sh.index[id]; found {
			return sh.rows[i], nil
		}
	}
	return sheets.ComponentRow{}, fmt.Errorf("row %d in %d %s: %w", id, year, kind, core.ErrNotFound)
}

// Writes counts successful UpsertRows calls.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
