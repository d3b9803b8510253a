package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ports implemented by the persistence collaborators (sqlite, memory).
type (
	HierarchyReader interface {
		Hierarchy(ctx context.Context) ([]Section, error)
	}

	// ValueStore covers both PeriodValue (Budget) and ActualValue (Actual)
	// keyspaces. Upserts are idempotent and return ErrNotFound for an
	// unknown component.
	ValueStore interface {
		Values(ctx context.Context, kind ValueKind, year int) (map[ComponentID]Months, error)
		UpsertValues(ctx context.Context, kind ValueKind, id ComponentID, year int, values map[int]decimal.Decimal) error
	}

	// NoteStore deletes a note when its text trims to empty.
	NoteStore interface {
		Notes(ctx context.Context, year int) (map[ComponentID]MonthNotes, error)
		UpsertNotes(ctx context.Context, id ComponentID, year int, notes map[int]string) error
	}

	// SettingsStore replaces each setting wholesale on update.
	SettingsStore interface {
		CashflowAnchor(ctx context.Context) (CashflowAnchor, error)
		SetCashflowAnchor(ctx context.Context, a CashflowAnchor) error
		ActualsCutoff(ctx context.Context) (ActualsCutoff, error)
		SetActualsCutoff(ctx context.Context, c ActualsCutoff) error
	}

	Persistence interface {
		HierarchyReader
		ValueStore
		NoteStore
		SettingsStore
	}
)
