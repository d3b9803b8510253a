package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type BudgetSection struct {
	ID       int64
	Name     string
	Kind     string
	Position int64
}

type BudgetGroup struct {
	ID        int64
	SectionID int64
	Name      string
	Disabled  bool
	Position  int64
}

type BudgetComponent struct {
	ID       int64
	GroupID  int64
	Name     string
	Disabled bool
	Position int64
}

type MonthAmount struct {
	ComponentID int64
	Month       int64
	Amount      decimal.Decimal
}

type MonthNote struct {
	ComponentID int64
	Month       int64
	Body        string
}

type CashflowAnchorRow struct {
	StartingBalance decimal.Decimal
	StartingYear    int64
	StartingMonth   int64
}

type ActualsCutoffRow struct {
	CutoffYear  int64
	CutoffMonth int64
}

const listSections = `SELECT id, name, kind, position FROM budget_sections ORDER BY position, id`

func (q *Queries) ListSections(ctx context.Context) ([]BudgetSection, error) {
	rows, err := q.db.QueryContext(ctx, listSections)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetSection
	for rows.Next() {
		var i BudgetSection
		if err := rows.Scan(&i.ID, &i.Name, &i.Kind, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listGroups = `SELECT id, section_id, name, disabled, position FROM budget_groups ORDER BY section_id, position, id`

func (q *Queries) ListGroups(ctx context.Context) ([]BudgetGroup, error) {
	rows, err := q.db.QueryContext(ctx, listGroups)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetGroup
	for rows.Next() {
		var i BudgetGroup
		if err := rows.Scan(&i.ID, &i.SectionID, &i.Name, &i.Disabled, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listComponents = `SELECT id, group_id, name, disabled, position FROM budget_components ORDER BY group_id, position, id`

func (q *Queries) ListComponents(ctx context.Context) ([]BudgetComponent, error) {
	rows, err := q.db.QueryContext(ctx, listComponents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetComponent
	for rows.Next() {
		var i BudgetComponent
		if err := rows.Scan(&i.ID, &i.GroupID, &i.Name, &i.Disabled, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const componentExists = `SELECT EXISTS(SELECT 1 FROM budget_components WHERE id = ?)`

func (q *Queries) ComponentExists(ctx context.Context, id int64) (bool, error) {
	row := q.db.QueryRowContext(ctx, componentExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const upsertSection = `INSERT INTO budget_sections (id, name, kind, position) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, kind = excluded.kind, position = excluded.position`

func (q *Queries) UpsertSection(ctx context.Context, arg BudgetSection) error {
	_, err := q.db.ExecContext(ctx, upsertSection, arg.ID, arg.Name, arg.Kind, arg.Position)
	return err
}

const upsertGroup = `INSERT INTO budget_groups (id, section_id, name, disabled, position) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET section_id = excluded.section_id, name = excluded.name,
    disabled = excluded.disabled, position = excluded.position`

func (q *Queries) UpsertGroup(ctx context.Context, arg BudgetGroup) error {
	_, err := q.db.ExecContext(ctx, upsertGroup, arg.ID, arg.SectionID, arg.Name, arg.Disabled, arg.Position)
	return err
}

const upsertComponent = `INSERT INTO budget_components (id, group_id, name, disabled, position) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET group_id = excluded.group_id, name = excluded.name,
    disabled = excluded.disabled, position = excluded.position`

func (q *Queries) UpsertComponent(ctx context.Context, arg BudgetComponent) error {
	_, err := q.db.ExecContext(ctx, upsertComponent, arg.ID, arg.GroupID, arg.Name, arg.Disabled, arg.Position)
	return err
}

const listPeriodValues = `SELECT component_id, month, amount FROM period_values WHERE year = ?`

const listActualValues = `SELECT component_id, month, amount FROM actual_values WHERE year = ?`

func (q *Queries) ListPeriodValues(ctx context.Context, year int64) ([]MonthAmount, error) {
	return q.listAmounts(ctx, listPeriodValues, year)
}

func (q *Queries) ListActualValues(ctx context.Context, year int64) ([]MonthAmount, error) {
	return q.listAmounts(ctx, listActualValues, year)
}

func (q *Queries) listAmounts(ctx context.Context, query string, year int64) ([]MonthAmount, error) {
	rows, err := q.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthAmount
	for rows.Next() {
		var i MonthAmount
		if err := rows.Scan(&i.ComponentID, &i.Month, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpsertAmountParams struct {
	ComponentID int64
	Year        int64
	Month       int64
	Amount      decimal.Decimal
}

const upsertPeriodValue = `INSERT INTO period_values (component_id, year, month, amount) VALUES (?, ?, ?, ?)
ON CONFLICT(component_id, year, month) DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`

const upsertActualValue = `INSERT INTO actual_values (component_id, year, month, amount) VALUES (?, ?, ?, ?)
ON CONFLICT(component_id, year, month) DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertPeriodValue(ctx context.Context, arg UpsertAmountParams) error {
	_, err := q.db.ExecContext(ctx, upsertPeriodValue, arg.ComponentID, arg.Year, arg.Month, arg.Amount.String())
	return err
}

func (q *Queries) UpsertActualValue(ctx context.Context, arg UpsertAmountParams) error {
	_, err := q.db.ExecContext(ctx, upsertActualValue, arg.ComponentID, arg.Year, arg.Month, arg.Amount.String())
	return err
}

const listNotes = `SELECT component_id, month, body FROM notes WHERE year = ?`

func (q *Queries) ListNotes(ctx context.Context, year int64) ([]MonthNote, error) {
	rows, err := q.db.QueryContext(ctx, listNotes, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthNote
	for rows.Next() {
		var i MonthNote
		if err := rows.Scan(&i.ComponentID, &i.Month, &i.Body); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpsertNoteParams struct {
	ComponentID int64
	Year        int64
	Month       int64
	Body        string
}

const upsertNote = `INSERT INTO notes (component_id, year, month, body) VALUES (?, ?, ?, ?)
ON CONFLICT(component_id, year, month) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertNote(ctx context.Context, arg UpsertNoteParams) error {
	_, err := q.db.ExecContext(ctx, upsertNote, arg.ComponentID, arg.Year, arg.Month, arg.Body)
	return err
}

const deleteNote = `DELETE FROM notes WHERE component_id = ? AND year = ? AND month = ?`

func (q *Queries) DeleteNote(ctx context.Context, componentID, year, month int64) error {
	_, err := q.db.ExecContext(ctx, deleteNote, componentID, year, month)
	return err
}

const getCashflowAnchor = `SELECT starting_balance, starting_year, starting_month FROM cashflow_anchor ORDER BY id DESC LIMIT 1`

func (q *Queries) GetCashflowAnchor(ctx context.Context) (CashflowAnchorRow, error) {
	row := q.db.QueryRowContext(ctx, getCashflowAnchor)
	var i CashflowAnchorRow
	err := row.Scan(&i.StartingBalance, &i.StartingYear, &i.StartingMonth)
	return i, err
}

const deleteCashflowAnchor = `DELETE FROM cashflow_anchor`

func (q *Queries) DeleteCashflowAnchor(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteCashflowAnchor)
	return err
}

const insertCashflowAnchor = `INSERT INTO cashflow_anchor (starting_balance, starting_year, starting_month) VALUES (?, ?, ?)`

func (q *Queries) InsertCashflowAnchor(ctx context.Context, arg CashflowAnchorRow) error {
	_, err := q.db.ExecContext(ctx, insertCashflowAnchor, arg.StartingBalance.String(), arg.StartingYear, arg.StartingMonth)
	return err
}

const getActualsCutoff = `SELECT cutoff_year, cutoff_month FROM actuals_cutoff ORDER BY id DESC LIMIT 1`

func (q *Queries) GetActualsCutoff(ctx context.Context) (ActualsCutoffRow, error) {
	row := q.db.QueryRowContext(ctx, getActualsCutoff)
	var i ActualsCutoffRow
	err := row.Scan(&i.CutoffYear, &i.CutoffMonth)
	return i, err
}

const deleteActualsCutoff = `DELETE FROM actuals_cutoff`

func (q *Queries) DeleteActualsCutoff(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteActualsCutoff)
	return err
}

const insertActualsCutoff = `INSERT INTO actuals_cutoff (cutoff_year, cutoff_month) VALUES (?, ?)`

func (q *Queries) InsertActualsCutoff(ctx context.Context, arg ActualsCutoffRow) error {
	_, err := q.db.ExecContext(ctx, insertActualsCutoff, arg.CutoffYear, arg.CutoffMonth)
	return err
}
