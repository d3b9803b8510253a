package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/seed"
	"bilancio/internal/sheets"
	sheetsmem "bilancio/internal/sheets/memory"
	"bilancio/internal/store/memory"
)

type failingWriter struct{ err error }

func (f failingWriter) UpsertRows(context.Context, int, core.ValueKind, []sheets.ComponentRow) error {
	return f.err
}

func setup(t *testing.T) (*memory.Store, *sheetsmem.Mirror, *SyncWorker) {
	t.Helper()
	store := memory.New(seed.Default())
	mirror := sheetsmem.New()
	return store, mirror, NewSyncWorker(store, mirror, nil)
}

func TestHandleValuesChanged_WritesLatestRow(t *testing.T) {
	store, mirror, w := setup(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertValues(ctx, core.Actual, 200, 2024, map[int]decimal.Decimal{
		1: decimal.NewFromInt(800),
		2: decimal.NewFromInt(820),
	}))

	msg := amqp.NewValuesChangedMessage(200, 2024, "actual")
	require.NoError(t, w.HandleValuesChanged(ctx, msg))

	row, err := mirror.Row(2024, core.Actual, 200)
	require.NoError(t, err)
	assert.True(t, row.Total.Equal(decimal.NewFromInt(1620)))
	assert.NotEmpty(t, row.Component)

	_, err = mirror.Row(2024, core.Budget, 200)
	assert.True(t, core.IsNotFound(err), "only the changed keyspace is mirrored")

	// Redelivery rewrites the same row.
	require.NoError(t, w.HandleValuesChanged(ctx, msg))
	assert.Len(t, mirror.Rows(2024, core.Actual), 1)
}

func TestHandleValuesChanged_UnknownComponentIsPermanent(t *testing.T) {
	_, mirror, w := setup(t)

	err := w.HandleValuesChanged(context.Background(), amqp.NewValuesChangedMessage(9999, 2024, "budget"))
	require.Error(t, err)
	assert.ErrorIs(t, err, amqp.ErrPermanent)
	assert.True(t, core.IsNotFound(err))
	assert.Zero(t, mirror.Writes())
}

func TestHandleValuesChanged_WriterFailureIsTransient(t *testing.T) {
	store := memory.New(seed.Default())
	w := NewSyncWorker(store, failingWriter{err: errors.New("quota exceeded")}, nil)

	err := w.HandleValuesChanged(context.Background(), amqp.NewValuesChangedMessage(200, 2024, "budget"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, amqp.ErrPermanent)
}

func TestSyncYear_WritesEveryComponent(t *testing.T) {
	store, mirror, w := setup(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertValues(ctx, core.Budget, 100, 2025, map[int]decimal.Decimal{12: decimal.NewFromInt(3000)}))
	require.NoError(t, w.SyncYear(ctx, 2025, core.Budget))

	h, _ := store.Hierarchy(ctx)
	rows := mirror.Rows(2025, core.Budget)
	assert.Len(t, rows, len(core.ComponentPaths(h)))

	row, err := mirror.Row(2025, core.Budget, 100)
	require.NoError(t, err)
	assert.True(t, row.Months.At(12).Equal(decimal.NewFromInt(3000)))

	assert.ErrorIs(t, w.SyncYear(ctx, 12, core.Budget), core.ErrInvalidYear)
}

