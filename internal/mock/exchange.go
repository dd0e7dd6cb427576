// Package mock provides test doubles shared across packages.
package mock

import (
	"context"
	"sync"

	"github.com/Julian6262/BingX/internal/core"

	"github.com/shopspring/decimal"
)

// PlacedOrder captures one PlaceMarketOrder call.
type PlacedOrder struct {
	Symbol string
	Side   core.Side
	Qty    decimal.Decimal
}

// Exchange is a scripted core.Exchange. Fills execute at FillPrice with
// the full requested quantity unless NextErr is set, in which case the
// next order fails with it. All methods are safe for concurrent use.
type Exchange struct {
	mu sync.Mutex

	FillPrice decimal.Decimal
	StepSize  decimal.Decimal
	Candles   map[string][]core.Candle // keyed by interval
	ListenKey string

	NextErr error

	Placed   []PlacedOrder
	nextID   int64
	Extended int
}

func NewExchange(fillPrice decimal.Decimal) *Exchange {
	return &Exchange{
		FillPrice: fillPrice,
		StepSize:  decimal.NewFromFloat(0.1),
		ListenKey: "test-listen-key",
	}
}

// SetFillPrice changes the price later orders fill at.
func (e *Exchange) SetFillPrice(p decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.FillPrice = p
}

// FailNext makes the next PlaceMarketOrder return err.
func (e *Exchange) FailNext(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NextErr = err
}

// PlacedOrders returns a snapshot of all captured orders.
func (e *Exchange) PlacedOrders() []PlacedOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]PlacedOrder, len(e.Placed))
	copy(out, e.Placed)
	return out
}

func (e *Exchange) PlaceMarketOrder(ctx context.Context, symbol string, side core.Side, qty decimal.Decimal) (*core.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.NextErr != nil {
		err := e.NextErr
		e.NextErr = nil
		return nil, err
	}

	e.Placed = append(e.Placed, PlacedOrder{Symbol: symbol, Side: side, Qty: qty})
	e.nextID++
	return &core.OrderResult{
		OrderID:      e.nextID,
		Symbol:       symbol,
		Price:        e.FillPrice,
		OrigQty:      qty,
		ExecutedQty:  qty,
		CumQuoteQty:  e.FillPrice.Mul(qty),
		TransactTime: 1700000000000 + e.nextID,
	}, nil
}

func (e *Exchange) SymbolStepSize(ctx context.Context, symbol string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.StepSize, nil
}

func (e *Exchange) Klines(ctx context.Context, symbol, interval string, limit int) ([]core.Candle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Candles[interval], nil
}

func (e *Exchange) CreateListenKey(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ListenKey, nil
}

func (e *Exchange) ExtendListenKey(ctx context.Context, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Extended++
	return nil
}

func (e *Exchange) RunPriceStream(ctx context.Context, symbol string, onTick func(core.Tick)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (e *Exchange) RunAccountStream(ctx context.Context, listenKey string, onBalances func([]core.BalanceUpdate)) error {
	<-ctx.Done()
	return ctx.Err()
}
