package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/report"
)

// Store is a persistence backend the service can own.
type Store interface {
	core.Persistence
	SeedHierarchy(ctx context.Context, sections []core.Section) error
	Ping(ctx context.Context) error
	Close() error
}

// Publisher announces flushed values to the Sheets mirror.
type Publisher interface {
	PublishValuesChanged(ctx context.Context, msg *amqp.ValuesChangedMessage) error
	Close() error
}

// YearSnapshot is everything the reports need for one year, loaded as one
// consistent read.
type YearSnapshot struct {
	Year      int
	Hierarchy []core.Section
	Budget    map[core.ComponentID]core.Months
	Actual    map[core.ComponentID]core.Months
	Notes     map[core.ComponentID]core.MonthNotes
	Anchor    core.CashflowAnchor
	Cutoff    core.ActualsCutoff
}

// YearReport holds the computed views of a snapshot. Cached values are
// shared between callers and must be treated as read-only.
type YearReport struct {
	Snapshot       *YearSnapshot
	BudgetRollup   report.Rollup
	ActualRollup   report.Rollup
	BudgetCashflow report.Cashflow
	ActualCashflow report.Cashflow
	Variance       report.Variance
}

func (r *YearReport) Rollup(kind core.ValueKind) report.Rollup {
	if kind == core.Actual {
		return r.ActualRollup
	}
	return r.BudgetRollup
}

func (r *YearReport) Cashflow(kind core.ValueKind) report.Cashflow {
	if kind == core.Actual {
		return r.ActualCashflow
	}
	return r.BudgetCashflow
}

// BudgetService is the persistence collaborator seen by the API and by
// edit sessions. Writes go to the store first; the report cache is then
// invalidated and a change message is published on a best-effort basis.
type BudgetService struct {
	store     Store
	publisher Publisher
	reports   *cache.LRUCache[int, *YearReport]
	logger    *applog.Logger

	// generation is bumped on every write so that a report computed from a
	// read that raced with a write is not cached.
	generation atomic.Uint64
}

type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Logger    *applog.Logger
}

func NewBudgetService(store Store, publisher Publisher, opts Options) *BudgetService {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	return &BudgetService{
		store:     store,
		publisher: publisher,
		reports:   cache.NewLRUCache[int, *YearReport](opts.CacheSize, opts.CacheTTL),
		logger:    opts.Logger.WithComponent(applog.ComponentService),
	}
}

// Cache exposes the report cache for registration with a cache.Manager.
func (s *BudgetService) Cache() *cache.LRUCache[int, *YearReport] {
	return s.reports
}

func (s *BudgetService) Hierarchy(ctx context.Context) ([]core.Section, error) {
	return s.store.Hierarchy(ctx)
}

func (s *BudgetService) SeedHierarchy(ctx context.Context, sections []core.Section) error {
	if err := s.store.SeedHierarchy(ctx, sections); err != nil {
		return fmt.Errorf("seed hierarchy: %w", err)
	}
	s.invalidateAll()
	return nil
}

func (s *BudgetService) Values(ctx context.Context, kind core.ValueKind, year int) (map[core.ComponentID]core.Months, error) {
	return s.store.Values(ctx, kind, year)
}

// UpsertValues persists, invalidates the year's reports and publishes a
// values changed message. Publish failures are logged, never returned.
func (s *BudgetService) UpsertValues(ctx context.Context, kind core.ValueKind, id core.ComponentID, year int, values map[int]decimal.Decimal) error {
	if err := s.store.UpsertValues(ctx, kind, id, year, values); err != nil {
		return fmt.Errorf("save %s values: %w", kind, err)
	}
	s.invalidate(year)
	s.publish(ctx, id, year, kind)
	return nil
}

func (s *BudgetService) Notes(ctx context.Context, year int) (map[core.ComponentID]core.MonthNotes, error) {
	return s.store.Notes(ctx, year)
}

func (s *BudgetService) UpsertNotes(ctx context.Context, id core.ComponentID, year int, notes map[int]string) error {
	if err := s.store.UpsertNotes(ctx, id, year, notes); err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	s.invalidate(year)
	return nil
}

func (s *BudgetService) CashflowAnchor(ctx context.Context) (core.CashflowAnchor, error) {
	return s.store.CashflowAnchor(ctx)
}

func (s *BudgetService) SetCashflowAnchor(ctx context.Context, a core.CashflowAnchor) error {
	if err := s.store.SetCashflowAnchor(ctx, a); err != nil {
		return fmt.Errorf("save cashflow anchor: %w", err)
	}
	s.invalidateAll()
	return nil
}

func (s *BudgetService) ActualsCutoff(ctx context.Context) (core.ActualsCutoff, error) {
	return s.store.ActualsCutoff(ctx)
}

func (s *BudgetService) SetActualsCutoff(ctx context.Context, c core.ActualsCutoff) error {
	if err := s.store.SetActualsCutoff(ctx, c); err != nil {
		return fmt.Errorf("save actuals cutoff: %w", err)
	}
	s.invalidateAll()
	return nil
}

// Snapshot reads every input of a year's reports concurrently.
func (s *BudgetService) Snapshot(ctx context.Context, year int) (*YearSnapshot, error) {
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}
	snap := &YearSnapshot{Year: year}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Hierarchy, err = s.store.Hierarchy(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Budget, err = s.store.Values(gctx, core.Budget, year)
		return err
	})
	g.Go(func() (err error) {
		snap.Actual, err = s.store.Values(gctx, core.Actual, year)
		return err
	})
	g.Go(func() (err error) {
		snap.Notes, err = s.store.Notes(gctx, year)
		return err
	})
	g.Go(func() (err error) {
		snap.Anchor, err = s.store.CashflowAnchor(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Cutoff, err = s.store.ActualsCutoff(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load %d snapshot: %w", year, err)
	}
	return snap, nil
}

// Report returns the computed views for year, from cache when possible.
func (s *BudgetService) Report(ctx context.Context, year int) (*YearReport, error) {
	if r, ok := s.reports.Get(year); ok {
		return r, nil
	}

	gen := s.generation.Load()
	snap, err := s.Snapshot(ctx, year)
	if err != nil {
		return nil, err
	}
	r := buildReport(snap)
	if s.generation.Load() == gen {
		s.reports.Set(year, r)
	}
	return r, nil
}

func buildReport(snap *YearSnapshot) *YearReport {
	budget := report.ComputeRollup(snap.Hierarchy, snap.Budget, snap.Year)
	actual := report.ComputeRollup(snap.Hierarchy, snap.Actual, snap.Year)
	return &YearReport{
		Snapshot:       snap,
		BudgetRollup:   budget,
		ActualRollup:   actual,
		BudgetCashflow: report.ComputeCashflow(budget.Grand.Monthly, snap.Anchor, snap.Year),
		ActualCashflow: report.ComputeCashflow(actual.Grand.Monthly, snap.Anchor, snap.Year),
		Variance:       report.ComputeVariance(snap.Hierarchy, snap.Budget, snap.Actual, snap.Year),
	}
}

func (s *BudgetService) invalidate(year int) {
	s.generation.Add(1)
	s.reports.Delete(year)
}

func (s *BudgetService) invalidateAll() {
	s.generation.Add(1)
	s.reports.Purge()
}

func (s *BudgetService) publish(ctx context.Context, id core.ComponentID, year int, kind core.ValueKind) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping values changed message")
		return
	}
	msg := amqp.NewValuesChangedMessage(int64(id), year, string(kind))
	if err := s.publisher.PublishValuesChanged(ctx, msg); err != nil {
		// The values are saved; the mirror catches up on its next reconciliation.
		s.logger.ErrorContext(ctx, "Failed to publish values changed message",
			applog.NewFields().
				WithEntity(int64(id), year, string(kind)).
				WithOperation(applog.OpPublish).
				WithError(err).ToSlice()...)
	}
}

// Ready reports whether the store is reachable.
func (s *BudgetService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes both storage and AMQP connections
func (s *BudgetService) Close() error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
