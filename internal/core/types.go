package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order side on the spot market.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SymbolState is the operator-controlled lifecycle state of a symbol.
type SymbolState string

const (
	StateStop  SymbolState = "stop"
	StatePause SymbolState = "pause"
	StateTrack SymbolState = "track"
)

// Trigger is the indicator-driven trade direction gate. It changes only
// when a one-minute candle closes.
type Trigger string

const (
	TriggerNew  Trigger = "new"
	TriggerBuy  Trigger = "buy"
	TriggerSell Trigger = "sell"
)

// UsdtLatch is the tri-state insufficient-funds latch shared by all symbols.
type UsdtLatch int

const (
	LatchUnblock UsdtLatch = iota
	LatchBlock
	LatchContinueBlock
)

func (l UsdtLatch) String() string {
	switch l {
	case LatchBlock:
		return "block"
	case LatchContinueBlock:
		return "continue_block"
	default:
		return "unblock"
	}
}

// Order is one filled market buy held in the per-symbol ledger.
// Cost is the quote amount the venue reported spending; CostWithFee adds
// the round-trip fee allowance on top.
type Order struct {
	ID          int64
	Price       decimal.Decimal
	ExecutedQty decimal.Decimal
	Cost        decimal.Decimal
	CostWithFee decimal.Decimal
	OpenTime    time.Time
}

// Tick is the latest trade price of a symbol with its receive timestamp
// in unix milliseconds.
type Tick struct {
	Ts    int64
	Price decimal.Decimal
}

// BalanceUpdate is a single asset entry from an account-update frame.
type BalanceUpdate struct {
	Asset         string
	WalletBalance decimal.Decimal
}

// OrderResult is the venue acknowledgement of a market order.
type OrderResult struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Price         decimal.Decimal
	OrigQty       decimal.Decimal
	ExecutedQty   decimal.Decimal
	CumQuoteQty   decimal.Decimal
	TransactTime  int64
}

// Candle is a closed kline row reduced to what the indicators consume.
type Candle struct {
	OpenTime int64
	Close    float64
}

// ProfitSnapshot is the operator-facing view of a symbol's ledger.
type ProfitSnapshot struct {
	Symbol             string
	Price              decimal.Decimal
	Orders             int
	SummaryExecutedQty decimal.Decimal
	TotalCostWithFee   decimal.Decimal
	BeLevelWithFee     decimal.Decimal
	ProfitToTarget     decimal.Decimal
	Profit             decimal.Decimal
}

func (s ProfitSnapshot) String() string {
	return fmt.Sprintf(
		"%s: orders=%d qty=%s cost_with_fee=%s be_level=%s to_target=%s profit=%s",
		s.Symbol, s.Orders, s.SummaryExecutedQty, s.TotalCostWithFee,
		s.BeLevelWithFee, s.ProfitToTarget, s.Profit,
	)
}
