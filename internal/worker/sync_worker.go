package worker

import (
	"context"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/sheets"
)

// Source is the read side of the persistence collaborator the worker
// mirrors from.
type Source interface {
	core.HierarchyReader
	core.ValueStore
}

// SyncWorker mirrors stored component rows to the spreadsheet.
type SyncWorker struct {
	source Source
	sheets sheets.RowWriter
	logger *applog.Logger
}

func NewSyncWorker(source Source, writer sheets.RowWriter, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		source: source,
		sheets: writer,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleValuesChanged re-reads the component named by msg and rewrites its
// row. The message only says what changed; the row always reflects the
// latest stored state, so redelivered or reordered messages are harmless.
func (w *SyncWorker) HandleValuesChanged(ctx context.Context, msg *amqp.ValuesChangedMessage) error {
	kind := core.ValueKind(msg.Kind)
	id := core.ComponentID(msg.ComponentID)

	w.logger.InfoContext(ctx, "Processing values changed message",
		applog.FieldMessageID, msg.ID,
		applog.FieldComponentID, msg.ComponentID,
		applog.FieldYear, msg.Year,
		applog.FieldKind, msg.Kind)

	hierarchy, err := w.source.Hierarchy(ctx)
	if err != nil {
		return fmt.Errorf("load hierarchy: %w", err)
	}
	path, ok := core.FindComponent(hierarchy, id)
	if !ok {
		// Redelivery cannot fix a component that no longer exists.
		return fmt.Errorf("component %d: %w: %w", id, core.ErrNotFound, amqp.ErrPermanent)
	}

	values, err := w.source.Values(ctx, kind, msg.Year)
	if err != nil {
		return fmt.Errorf("load %s values: %w", kind, err)
	}

	row := sheets.BuildRow(path, values[id])
	if err := w.sheets.UpsertRows(ctx, msg.Year, kind, []sheets.ComponentRow{row}); err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully mirrored component row",
		applog.FieldMessageID, msg.ID,
		applog.FieldComponentID, msg.ComponentID,
		"total", row.Total.String())
	return nil
}

// SyncYear rewrites every component row of year for kind. It repairs any
// drift left by messages that were never published or were dropped.
func (w *SyncWorker) SyncYear(ctx context.Context, year int, kind core.ValueKind) error {
	if err := core.ValidateYear(year); err != nil {
		return err
	}
	hierarchy, err := w.source.Hierarchy(ctx)
	if err != nil {
		return fmt.Errorf("load hierarchy: %w", err)
	}
	values, err := w.source.Values(ctx, kind, year)
	if err != nil {
		return fmt.Errorf("load %s values: %w", kind, err)
	}
	rows := sheets.BuildRows(hierarchy, values)
	if err := w.sheets.UpsertRows(ctx, year, kind, rows); err != nil {
		return fmt.Errorf("upsert %d %s rows: %w", year, kind, err)
	}
	w.logger.DebugContext(ctx, "Reconciled sheet",
		applog.FieldYear, year,
		applog.FieldKind, string(kind),
		"rows", len(rows))
	return nil
}
