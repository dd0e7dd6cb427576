package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Julian6262/BingX/internal/config"
	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/internal/mock"
	"github.com/Julian6262/BingX/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, fields ...interface{})          {}
func (m *mockLogger) Info(msg string, fields ...interface{})           {}
func (m *mockLogger) Warn(msg string, fields ...interface{})           {}
func (m *mockLogger) Error(msg string, fields ...interface{})          {}
func (m *mockLogger) Fatal(msg string, fields ...interface{})          {}
func (m *mockLogger) WithField(k string, v interface{}) core.ILogger   { return m }
func (m *mockLogger) WithFields(f map[string]interface{}) core.ILogger { return m }

type fixture struct {
	engine   *Engine
	exchange *mock.Exchange
	mirror   *mock.Mirror
	ledger   *store.Ledger
	account  *store.AccountStore
	prices   *store.PriceStore
	configs  *store.ConfigStore
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.TestConfig()
	cfg.Timing.PauseAfterSellSeconds = 0
	for _, m := range mutate {
		m(cfg)
	}

	exchange := mock.NewExchange(decimal.NewFromInt(1))
	mirror := mock.NewMirror()

	ledger := store.NewLedger()
	ledger.AddSymbol("ADA", decimal.NewFromFloat(0.1), core.StateTrack, decimal.Zero)
	ledger.SetTrigger("ADA", core.TriggerBuy)

	account := store.NewAccountStore(decimal.NewFromInt(2))
	account.ApplyBalances([]core.BalanceUpdate{
		{Asset: "USDT", WalletBalance: decimal.NewFromInt(100)},
	})

	prices := store.NewPriceStore()
	prices.Update("ADA", core.Tick{Ts: 1, Price: decimal.NewFromInt(1)})

	configs := store.NewConfigStore()
	configs.Set("ADA", decimal.NewFromInt(10), decimal.NewFromFloat(0.01))
	configs.MarkReady("ADA")

	eng := New(exchange, prices, account, ledger, configs, mirror,
		cfg.Trading, cfg.Timing, &mockLogger{})

	return &fixture{
		engine:   eng,
		exchange: exchange,
		mirror:   mirror,
		ledger:   ledger,
		account:  account,
		prices:   prices,
		configs:  configs,
	}
}

func (f *fixture) setPrice(price decimal.Decimal) {
	f.prices.Update("ADA", core.Tick{Ts: time.Now().UnixMilli(), Price: price})
	f.exchange.SetFillPrice(price)
}

// seedOrder books one filled buy through the mirror so ids stay aligned.
func (f *fixture) seedOrder(t *testing.T, price, qty, costWithFee decimal.Decimal) core.Order {
	t.Helper()
	o := core.Order{
		Price:       price,
		ExecutedQty: qty,
		Cost:        costWithFee.Div(decimal.NewFromFloat(1.004)),
		CostWithFee: costWithFee,
		OpenTime:    time.Now(),
	}
	id, err := f.mirror.InsertOrder(context.Background(), "ADA", o)
	require.NoError(t, err)
	o.ID = id
	f.ledger.Append("ADA", o)
	return o
}

func ledgerIDs(l *store.Ledger, symbol string) []int64 {
	var out []int64
	for _, o := range l.Orders(symbol) {
		out = append(out, o.ID)
	}
	return out
}

func assertMirrorInSync(t *testing.T, f *fixture) {
	t.Helper()
	assert.ElementsMatch(t, ledgerIDs(f.ledger, "ADA"), f.mirror.OrderIDs("ADA"))
}

func TestTick_SkipsUnlessTracking(t *testing.T) {
	f := newFixture(t)

	for _, state := range []core.SymbolState{core.StatePause, core.StateStop} {
		f.ledger.SetState("ADA", state)
		report := f.engine.tick(context.Background(), "ADA")
		assert.Empty(t, report)
		assert.Empty(t, f.exchange.PlacedOrders())
	}
}

func TestTick_SkipsWithoutPrice(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddSymbol("BTC", decimal.NewFromFloat(0.001), core.StateTrack, decimal.Zero)

	report := f.engine.tick(context.Background(), "BTC")
	assert.Empty(t, report)
	assert.Empty(t, f.exchange.PlacedOrders())
}

func TestLedgerAndMirrorIDSetsStayEqual(t *testing.T) {
	f := newFixture(t)

	// Build a ladder through the real buy path.
	f.setPrice(decimal.NewFromFloat(1.00))
	f.engine.Buy(context.Background(), "ADA")
	assertMirrorInSync(t, f)

	f.setPrice(decimal.NewFromFloat(0.98))
	f.engine.Buy(context.Background(), "ADA")
	assertMirrorInSync(t, f)

	f.setPrice(decimal.NewFromFloat(0.96))
	f.engine.Buy(context.Background(), "ADA")
	assertMirrorInSync(t, f)
	require.Equal(t, 3, f.ledger.OrderCount("ADA"))

	// A partial sell removes the same ids from both sides.
	f.ledger.SetTrigger("ADA", core.TriggerSell)
	f.setPrice(decimal.NewFromFloat(1.05))
	report := f.engine.PartialSell(context.Background(), "ADA")
	require.NotEmpty(t, report)
	assertMirrorInSync(t, f)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.NewFromFloat(10.04))
	f.seedOrder(t, decimal.NewFromFloat(0.99), decimal.NewFromInt(10), decimal.NewFromFloat(9.94))

	snap, err := f.engine.Snapshot("ADA")
	require.NoError(t, err)

	assert.Equal(t, "ADA", snap.Symbol)
	assert.Equal(t, 2, snap.Orders)
	assert.True(t, snap.SummaryExecutedQty.Equal(decimal.NewFromInt(20)))
	assert.True(t, snap.TotalCostWithFee.Equal(decimal.NewFromFloat(19.98)))
	assert.True(t, snap.BeLevelWithFee.Equal(decimal.NewFromFloat(0.999)))
	// 20 x 1.00 - 19.98 x 1.01
	assert.True(t, snap.ProfitToTarget.Equal(decimal.NewFromFloat(-0.1798)),
		"got %s", snap.ProfitToTarget)
}

func TestSnapshot_UnknownSymbol(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Snapshot("XRP")
	assert.Error(t, err)
}

func TestRunTrading_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.configs.Delete("ADA") // never becomes ready

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.engine.RunTrading(ctx, "ADA") }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("trading loop did not stop")
	}
}
