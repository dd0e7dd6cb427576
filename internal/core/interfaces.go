// Package core defines the shared domain types and interfaces of the grid bot.
package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange is the venue surface the trading engine and indicators consume.
type Exchange interface {
	// PlaceMarketOrder submits a market order and returns the fill
	// acknowledgement. An insufficient-funds rejection is reported as
	// apperrors.ErrInsufficientFunds.
	PlaceMarketOrder(ctx context.Context, symbol string, side Side, qty decimal.Decimal) (*OrderResult, error)

	// SymbolStepSize fetches the base-asset quantity step of a symbol.
	SymbolStepSize(ctx context.Context, symbol string) (decimal.Decimal, error)

	// Klines returns closed candles in chronological order.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	// Listen-key lifecycle for the account stream.
	CreateListenKey(ctx context.Context) (string, error)
	ExtendListenKey(ctx context.Context, key string) error

	// RunPriceStream subscribes to the last-price topic of one symbol and
	// invokes onTick for every price frame. It blocks until ctx is done,
	// reconnecting forever on failures.
	RunPriceStream(ctx context.Context, symbol string, onTick func(Tick)) error

	// RunAccountStream subscribes to account updates under the listen key
	// and invokes onBalances for every balance batch. It blocks until ctx
	// is done, reconnecting forever on failures.
	RunAccountStream(ctx context.Context, listenKey string, onBalances func([]BalanceUpdate)) error
}

// LedgerMirror persists ledger mutations so the in-memory state survives
// restarts. Implementations must apply each call atomically.
type LedgerMirror interface {
	AddSymbol(ctx context.Context, name string, stepSize decimal.Decimal) error
	DeleteSymbol(ctx context.Context, name string) error
	InsertOrder(ctx context.Context, symbol string, o Order) (int64, error)
	// DeleteOrders removes orders by id (nil means all) and writes newProfit
	// for the symbol in the same transaction.
	DeleteOrders(ctx context.Context, symbol string, ids []int64, newProfit decimal.Decimal) error
	UpdateState(ctx context.Context, symbol string, state SymbolState) error
	UpdateSymbolConfig(ctx context.Context, symbol string, lot, gridSize decimal.Decimal) error
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
