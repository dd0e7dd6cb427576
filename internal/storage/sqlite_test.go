package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Julian6262/BingX/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMirror(t *testing.T) *SQLiteMirror {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "mirror.db")
	m, err := NewSQLiteMirror(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func testOrder(price, qty float64) core.Order {
	cost := price * qty
	return core.Order{
		Price:       decimal.NewFromFloat(price),
		ExecutedQty: decimal.NewFromFloat(qty),
		Cost:        decimal.NewFromFloat(cost),
		CostWithFee: decimal.NewFromFloat(cost * 1.004),
		OpenTime:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteMirror_AddAndLoadSymbol(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t)

	require.NoError(t, m.AddSymbol(ctx, "ADA", decimal.NewFromFloat(0.1)))

	records, err := m.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "ADA", r.Name)
	assert.Equal(t, core.StateStop, r.State)
	assert.True(t, r.StepSize.Equal(decimal.NewFromFloat(0.1)))
	assert.True(t, r.Profit.IsZero())
	// Config row defaults.
	assert.True(t, r.Lot.Equal(decimal.NewFromInt(10)))
	assert.True(t, r.GridSize.Equal(decimal.NewFromFloat(0.01)))
	assert.Empty(t, r.Orders)
}

func TestSQLiteMirror_AddSymbolTwiceFails(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t)

	require.NoError(t, m.AddSymbol(ctx, "ADA", decimal.NewFromFloat(0.1)))
	assert.Error(t, m.AddSymbol(ctx, "ADA", decimal.NewFromFloat(0.1)))
}

func TestSQLiteMirror_OrderRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t)
	require.NoError(t, m.AddSymbol(ctx, "ADA", decimal.NewFromFloat(0.1)))

	id1, err := m.InsertOrder(ctx, "ADA", testOrder(1.00, 10))
	require.NoError(t, err)
	id2, err := m.InsertOrder(ctx, "ADA", testOrder(0.99, 10))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	records, err := m.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Orders, 2)

	// Chronological order preserved.
	assert.Equal(t, id1, records[0].Orders[0].ID)
	assert.Equal(t, id2, records[0].Orders[1].ID)
	assert.InDelta(t, 10.04, records[0].Orders[0].CostWithFee.InexactFloat64(), 1e-9)
}

func TestSQLiteMirror_DeleteOrdersWithProfit(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t)
	require.NoError(t, m.AddSymbol(ctx, "ADA", decimal.NewFromFloat(0.1)))

	id1, err := m.InsertOrder(ctx, "ADA", testOrder(1.00, 10))
	require.NoError(t, err)
	id2, err := m.InsertOrder(ctx, "ADA", testOrder(0.99, 10))
	require.NoError(t, err)
	id3, err := m.InsertOrder(ctx, "ADA", testOrder(0.98, 10))
	require.NoError(t, err)

	// Partial sell consumes the two newest in one transaction with profit.
	require.NoError(t, m.DeleteOrders(ctx, "ADA", []int64{id2, id3}, decimal.NewFromFloat(0.18)))

	ids, err := m.OrderIDs(ctx, "ADA")
	require.NoError(t, err)
	assert.Equal(t, []int64{id1}, ids)

	records, err := m.LoadAll(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.18, records[0].Profit.InexactFloat64(), 1e-9)
}

func TestSQLiteMirror_DeleteOrdersNilClearsAll(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t)
	require.NoError(t, m.AddSymbol(ctx, "ADA", decimal.NewFromFloat(0.1)))

	_, err := m.InsertOrder(ctx, "ADA", testOrder(1.00, 10))
	require.NoError(t, err)
	_, err = m.InsertOrder(ctx, "ADA", testOrder(0.99, 10))
	require.NoError(t, err)

	require.NoError(t, m.DeleteOrders(ctx, "ADA", nil, decimal.Zero))

	ids, err := m.OrderIDs(ctx, "ADA")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLiteMirror_UpdateStateAndConfig(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t)
	require.NoError(t, m.AddSymbol(ctx, "ADA", decimal.NewFromFloat(0.1)))

	require.NoError(t, m.UpdateState(ctx, "ADA", core.StateTrack))
	require.NoError(t, m.UpdateSymbolConfig(ctx, "ADA",
		decimal.NewFromInt(30), decimal.NewFromFloat(0.038)))

	records, err := m.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StateTrack, records[0].State)
	assert.True(t, records[0].Lot.Equal(decimal.NewFromInt(30)))
	assert.InDelta(t, 0.038, records[0].GridSize.InexactFloat64(), 1e-9)
}

func TestSQLiteMirror_DeleteSymbolCascades(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t)
	require.NoError(t, m.AddSymbol(ctx, "ADA", decimal.NewFromFloat(0.1)))
	_, err := m.InsertOrder(ctx, "ADA", testOrder(1.00, 10))
	require.NoError(t, err)

	require.NoError(t, m.DeleteSymbol(ctx, "ADA"))

	records, err := m.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteMirror_UnknownSymbol(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t)

	_, err := m.InsertOrder(ctx, "GHOST", testOrder(1.00, 10))
	assert.Error(t, err)

	err = m.DeleteOrders(ctx, "GHOST", nil, decimal.Zero)
	assert.Error(t, err)
}
