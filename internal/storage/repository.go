package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements core.Persistence on a single SQLite file.
type SQLiteRepository struct {
	db            *sql.DB
	queries       *Queries
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Flushes from several edit sessions may arrive at once; serialize them
	// on one connection instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:            db,
		queries:       New(db),
		schemaVersion: version,
	}, nil
}

// SchemaVersion is the migration version the database was left at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Hierarchy implements core.HierarchyReader
func (r *SQLiteRepository) Hierarchy(ctx context.Context) ([]core.Section, error) {
	sections, err := r.queries.ListSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	groups, err := r.queries.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	components, err := r.queries.ListComponents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}

	byGroup := make(map[int64][]core.Component)
	for _, c := range components {
		byGroup[c.GroupID] = append(byGroup[c.GroupID], core.Component{
			ID:       core.ComponentID(c.ID),
			Name:     c.Name,
			Disabled: c.Disabled,
		})
	}
	bySection := make(map[int64][]core.Group)
	for _, g := range groups {
		bySection[g.SectionID] = append(bySection[g.SectionID], core.Group{
			ID:         core.GroupID(g.ID),
			Name:       g.Name,
			Disabled:   g.Disabled,
			Components: byGroup[g.ID],
		})
	}

	out := make([]core.Section, 0, len(sections))
	for _, s := range sections {
		out = append(out, core.Section{
			ID:     core.SectionID(s.ID),
			Name:   s.Name,
			Kind:   core.SectionKind(s.Kind),
			Groups: bySection[s.ID],
		})
	}
	return out, nil
}

// SeedHierarchy writes sections, groups and components by id. Existing
// nodes are renamed or re-flagged in place; values are never touched.
func (r *SQLiteRepository) SeedHierarchy(ctx context.Context, sections []core.Section) error {
	if err := core.ValidateHierarchy(sections); err != nil {
		return err
	}
	err := r.withTx(ctx, func(q *Queries) error {
		for si, s := range sections {
			if err := q.UpsertSection(ctx, BudgetSection{
				ID: int64(s.ID), Name: s.Name, Kind: string(s.Kind), Position: int64(si),
			}); err != nil {
				return fmt.Errorf("seed section %d: %w", s.ID, err)
			}
			for gi, g := range s.Groups {
				if err := q.UpsertGroup(ctx, BudgetGroup{
					ID: int64(g.ID), SectionID: int64(s.ID), Name: g.Name, Disabled: g.Disabled, Position: int64(gi),
				}); err != nil {
					return fmt.Errorf("seed group %d: %w", g.ID, err)
				}
				for ci, c := range g.Components {
					if err := q.UpsertComponent(ctx, BudgetComponent{
						ID: int64(c.ID), GroupID: int64(g.ID), Name: c.Name, Disabled: c.Disabled, Position: int64(ci),
					}); err != nil {
						return fmt.Errorf("seed component %d: %w", c.ID, err)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Hierarchy seeded", "sections", len(sections))
	return nil
}

// Values implements core.ValueStore
func (r *SQLiteRepository) Values(ctx context.Context, kind core.ValueKind, year int) (map[core.ComponentID]core.Months, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}

	var (
		rows []MonthAmount
		err  error
	)
	if kind == core.Actual {
		rows, err = r.queries.ListActualValues(ctx, int64(year))
	} else {
		rows, err = r.queries.ListPeriodValues(ctx, int64(year))
	}
	if err != nil {
		return nil, fmt.Errorf("list %s values: %w", kind, err)
	}

	out := make(map[core.ComponentID]core.Months)
	for _, row := range rows {
		m := out[core.ComponentID(row.ComponentID)]
		if err := m.Set(int(row.Month), row.Amount); err != nil {
			return nil, err
		}
		out[core.ComponentID(row.ComponentID)] = m
	}
	return out, nil
}

// UpsertValues implements core.ValueStore. The payload is validated as a
// whole before anything is written.
func (r *SQLiteRepository) UpsertValues(ctx context.Context, kind core.ValueKind, id core.ComponentID, year int, values map[int]decimal.Decimal) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if err := core.ValidateYear(year); err != nil {
		return err
	}
	if err := core.ValidateMonthKeys(values); err != nil {
		return err
	}

	err := r.withTx(ctx, func(q *Queries) error {
		if err := r.requireComponent(ctx, q, id); err != nil {
			return err
		}
		upsert := q.UpsertPeriodValue
		if kind == core.Actual {
			upsert = q.UpsertActualValue
		}
		for month, amount := range values {
			if err := upsert(ctx, UpsertAmountParams{
				ComponentID: int64(id), Year: int64(year), Month: int64(month), Amount: amount,
			}); err != nil {
				return fmt.Errorf("upsert %s value for month %d: %w", kind, month, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Values saved to SQLite",
		"component_id", id, "year", year, "kind", kind, "months", len(values))
	return nil
}

// Notes implements core.NoteStore
func (r *SQLiteRepository) Notes(ctx context.Context, year int) (map[core.ComponentID]core.MonthNotes, error) {
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListNotes(ctx, int64(year))
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	out := make(map[core.ComponentID]core.MonthNotes)
	for _, row := range rows {
		if !core.ValidMonth(int(row.Month)) {
			continue
		}
		n := out[core.ComponentID(row.ComponentID)]
		n[row.Month-1] = row.Body
		out[core.ComponentID(row.ComponentID)] = n
	}
	return out, nil
}

// UpsertNotes implements core.NoteStore; a note that trims to empty is
// deleted.
func (r *SQLiteRepository) UpsertNotes(ctx context.Context, id core.ComponentID, year int, notes map[int]string) error {
	if err := core.ValidateYear(year); err != nil {
		return err
	}
	if err := core.ValidateMonthKeys(notes); err != nil {
		return err
	}

	return r.withTx(ctx, func(q *Queries) error {
		if err := r.requireComponent(ctx, q, id); err != nil {
			return err
		}
		for month, text := range notes {
			body := core.NormalizeNote(text)
			var err error
			if body == "" {
				err = q.DeleteNote(ctx, int64(id), int64(year), int64(month))
			} else {
				err = q.UpsertNote(ctx, UpsertNoteParams{
					ComponentID: int64(id), Year: int64(year), Month: int64(month), Body: body,
				})
			}
			if err != nil {
				return fmt.Errorf("write note for month %d: %w", month, err)
			}
		}
		return nil
	})
}

// CashflowAnchor implements core.SettingsStore
func (r *SQLiteRepository) CashflowAnchor(ctx context.Context) (core.CashflowAnchor, error) {
	row, err := r.queries.GetCashflowAnchor(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultCashflowAnchor(), nil
	}
	if err != nil {
		return core.CashflowAnchor{}, fmt.Errorf("get cashflow anchor: %w", err)
	}
	return core.CashflowAnchor{
		StartingBalance: row.StartingBalance,
		StartingYear:    int(row.StartingYear),
		StartingMonth:   int(row.StartingMonth),
	}, nil
}

func (r *SQLiteRepository) SetCashflowAnchor(ctx context.Context, a core.CashflowAnchor) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return r.withTx(ctx, func(q *Queries) error {
		if err := q.DeleteCashflowAnchor(ctx); err != nil {
			return fmt.Errorf("delete cashflow anchor: %w", err)
		}
		if err := q.InsertCashflowAnchor(ctx, CashflowAnchorRow{
			StartingBalance: a.StartingBalance,
			StartingYear:    int64(a.StartingYear),
			StartingMonth:   int64(a.StartingMonth),
		}); err != nil {
			return fmt.Errorf("insert cashflow anchor: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) ActualsCutoff(ctx context.Context) (core.ActualsCutoff, error) {
	row, err := r.queries.GetActualsCutoff(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultActualsCutoff(), nil
	}
	if err != nil {
		return core.ActualsCutoff{}, fmt.Errorf("get actuals cutoff: %w", err)
	}
	return core.ActualsCutoff{CutoffYear: int(row.CutoffYear), CutoffMonth: int(row.CutoffMonth)}, nil
}

func (r *SQLiteRepository) SetActualsCutoff(ctx context.Context, c core.ActualsCutoff) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.withTx(ctx, func(q *Queries) error {
		if err := q.DeleteActualsCutoff(ctx); err != nil {
			return fmt.Errorf("delete actuals cutoff: %w", err)
		}
		if err := q.InsertActualsCutoff(ctx, ActualsCutoffRow{
			CutoffYear:  int64(c.CutoffYear),
			CutoffMonth: int64(c.CutoffMonth),
		}); err != nil {
			return fmt.Errorf("insert actuals cutoff: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) requireComponent(ctx context.Context, q *Queries, id core.ComponentID) error {
	ok, err := q.ComponentExists(ctx, int64(id))
	if err != nil {
		return fmt.Errorf("check component %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("component %d: %w", id, core.ErrNotFound)
	}
	return nil
}
