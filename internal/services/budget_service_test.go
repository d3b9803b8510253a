package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/seed"
	"bilancio/internal/store/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	msgs   []*amqp.ValuesChangedMessage
	err    error
	closed bool
}

func (p *fakePublisher) PublishValuesChanged(_ context.Context, msg *amqp.ValuesChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func newService(t *testing.T, pub Publisher) *BudgetService {
	t.Helper()
	return NewBudgetService(memory.New(seed.Default()), pub, Options{})
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestBudgetService_UpsertPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	ctx := context.Background()

	require.NoError(t, svc.UpsertValues(ctx, core.Actual, 200, 2024, map[int]decimal.Decimal{1: dec(900)}))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, int64(200), msg.ComponentID)
	assert.Equal(t, 2024, msg.Year)
	assert.Equal(t, "actual", msg.Kind)
	assert.NoError(t, msg.Validate())
}

func TestBudgetService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newService(t, pub)
	ctx := context.Background()

	require.NoError(t, svc.UpsertValues(ctx, core.Budget, 200, 2024, map[int]decimal.Decimal{1: dec(900)}))

	values, err := svc.Values(ctx, core.Budget, 2024)
	require.NoError(t, err)
	assert.True(t, values[200].At(1).Equal(dec(900)))
}

func TestBudgetService_NilPublisher(t *testing.T) {
	svc := newService(t, nil)
	assert.NoError(t, svc.UpsertValues(context.Background(), core.Budget, 200, 2024, map[int]decimal.Decimal{1: dec(1)}))
}

func TestBudgetService_UpsertErrorsAreWrapped(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)

	err := svc.UpsertValues(context.Background(), core.Budget, 9999, 2024, map[int]decimal.Decimal{1: dec(1)})
	assert.True(t, core.IsNotFound(err))
	assert.Empty(t, pub.msgs, "nothing is published when the write fails")
}

func TestBudgetService_ReportIsCachedAndInvalidated(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.UpsertValues(ctx, core.Budget, 100, 2024, map[int]decimal.Decimal{1: dec(2000)}))
	require.NoError(t, svc.UpsertValues(ctx, core.Budget, 200, 2024, map[int]decimal.Decimal{1: dec(800)}))

	r1, err := svc.Report(ctx, 2024)
	require.NoError(t, err)
	assert.True(t, r1.BudgetRollup.Grand.Monthly.At(1).Equal(dec(1200)))

	r2, err := svc.Report(ctx, 2024)
	require.NoError(t, err)
	assert.Same(t, r1, r2)

	require.NoError(t, svc.UpsertValues(ctx, core.Budget, 200, 2024, map[int]decimal.Decimal{1: dec(500)}))
	r3, err := svc.Report(ctx, 2024)
	require.NoError(t, err)
	assert.NotSame(t, r1, r3)
	assert.True(t, r3.BudgetRollup.Grand.Monthly.At(1).Equal(dec(1500)))
}

func TestBudgetService_SettingsInvalidateEveryYear(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Report(ctx, 2024)
	require.NoError(t, err)
	_, err = svc.Report(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Cache().Size())

	require.NoError(t, svc.SetCashflowAnchor(ctx, core.CashflowAnchor{StartingBalance: dec(1000), StartingYear: 2024, StartingMonth: 3}))
	assert.Equal(t, 0, svc.Cache().Size())

	r, err := svc.Report(ctx, 2024)
	require.NoError(t, err)
	cf := r.Cashflow(core.Budget)
	assert.False(t, cf[1].Valid)
	require.True(t, cf[2].Valid)
	assert.True(t, cf[2].Decimal.Equal(dec(1000)))
}

func TestBudgetService_Snapshot(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.UpsertValues(ctx, core.Actual, 210, 2024, map[int]decimal.Decimal{6: dec(42)}))
	require.NoError(t, svc.UpsertNotes(ctx, 210, 2024, map[int]string{6: "offerta"}))
	require.NoError(t, svc.SetActualsCutoff(ctx, core.ActualsCutoff{CutoffYear: 2024, CutoffMonth: 5}))

	snap, err := svc.Snapshot(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, snap.Year)
	assert.NotEmpty(t, snap.Hierarchy)
	assert.Empty(t, snap.Budget)
	assert.True(t, snap.Actual[210].At(6).Equal(dec(42)))
	assert.Equal(t, "offerta", snap.Notes[210].At(6))
	assert.Equal(t, 5, snap.Cutoff.CutoffMonth)

	_, err = svc.Snapshot(ctx, 12)
	assert.ErrorIs(t, err, core.ErrInvalidYear)
}

func TestBudgetService_VarianceReport(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.UpsertValues(ctx, core.Budget, 200, 2024, map[int]decimal.Decimal{1: dec(500)}))
	require.NoError(t, svc.UpsertValues(ctx, core.Actual, 200, 2024, map[int]decimal.Decimal{1: dec(450)}))

	r, err := svc.Report(ctx, 2024)
	require.NoError(t, err)
	line := r.Variance.Components[200]
	assert.True(t, line.Diff.Annual.Equal(dec(50)))
}

func TestBudgetService_Close(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	assert.NoError(t, svc.Close())
	assert.True(t, pub.closed)

	empty := &BudgetService{}
	assert.NoError(t, empty.Close())
}
