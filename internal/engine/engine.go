// Package engine implements the per-symbol trading loop: it watches the
// price against the ledger ladder, buys on grid crossings while the
// indicator gate says buy, and sells opportunistically once accumulated
// inventory clears the profit threshold.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Julian6262/BingX/internal/alert"
	"github.com/Julian6262/BingX/internal/config"
	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/internal/store"
	"github.com/Julian6262/BingX/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

// Engine owns the trading decisions for all symbols. Per-symbol loops
// run as separate tasks but share this one instance and its stores.
type Engine struct {
	exchange core.Exchange
	prices   *store.PriceStore
	account  *store.AccountStore
	ledger   *store.Ledger
	configs  *store.ConfigStore
	mirror   core.LedgerMirror
	logger   core.ILogger
	alerts   *alert.AlertManager

	takerMaker     decimal.Decimal
	targetProfit   decimal.Decimal
	partlyTarget   decimal.Decimal
	feeReserve     decimal.Decimal
	feeReserveMode bool

	tradeTick      time.Duration
	pauseAfterSell time.Duration
}

func New(
	exchange core.Exchange,
	prices *store.PriceStore,
	account *store.AccountStore,
	ledger *store.Ledger,
	configs *store.ConfigStore,
	mirror core.LedgerMirror,
	trading config.TradingConfig,
	timing config.TimingConfig,
	logger core.ILogger,
) *Engine {
	return &Engine{
		exchange:       exchange,
		prices:         prices,
		account:        account,
		ledger:         ledger,
		configs:        configs,
		mirror:         mirror,
		logger:         logger.WithField("component", "engine"),
		takerMaker:     decimal.NewFromFloat(trading.TakerFee + trading.MakerFee),
		targetProfit:   decimal.NewFromFloat(trading.TargetProfit),
		partlyTarget:   decimal.NewFromFloat(trading.PartlyTargetProfit),
		feeReserve:     decimal.NewFromFloat(trading.FeeReserve),
		feeReserveMode: trading.FeeReserveMode,
		tradeTick:      timing.TradeTick(),
		pauseAfterSell: timing.PauseAfterSell(),
	}
}

// WithAlerts attaches the notification fan-out.
func (e *Engine) WithAlerts(am *alert.AlertManager) *Engine {
	e.alerts = am
	return e
}

// RunTrading drives the trading loop for one symbol until ctx is
// cancelled. It does nothing until the indicator has sized the symbol.
func (e *Engine) RunTrading(ctx context.Context, symbol string) error {
	logger := e.logger.WithField("symbol", symbol)

	for !e.configs.Ready(symbol) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	logger.Info("trading loop started")

	ticker := time.NewTicker(e.tradeTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if report := e.tick(ctx, symbol); report != "" {
				logger.Info(report)
			}
		}
	}
}

// tick runs one decision cycle and returns a report when it acted.
func (e *Engine) tick(ctx context.Context, symbol string) string {
	if e.ledger.State(symbol) != core.StateTrack {
		return ""
	}
	tick, ok := e.prices.Get(symbol)
	if !ok {
		return ""
	}

	trigger := e.ledger.Trigger(symbol)

	if last, hasLast := e.ledger.LastOrder(symbol); hasLast &&
		trigger == core.TriggerSell && tick.Price.GreaterThan(last.Price) {
		if report := e.PartialSell(ctx, symbol); report != "" {
			return report
		}
	}

	if trigger != core.TriggerBuy {
		return ""
	}

	if e.ledger.PauseAfterSell(symbol) {
		// One full pause separates a sell from the next buy.
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(e.pauseAfterSell):
		}
		e.ledger.SetPauseAfterSell(symbol, false)
		return ""
	}

	last, hasLast := e.ledger.LastOrder(symbol)
	_, gridSize := e.configs.Get(symbol)

	if !hasLast {
		return e.Buy(ctx, symbol)
	}
	gate := last.Price.Mul(decimal.NewFromInt(1).Sub(gridSize))
	if tick.Price.LessThan(gate) {
		return e.Buy(ctx, symbol)
	}
	return ""
}

// Snapshot assembles the operator-facing profit view of a symbol.
func (e *Engine) Snapshot(symbol string) (core.ProfitSnapshot, error) {
	if !e.ledger.Has(symbol) {
		return core.ProfitSnapshot{}, fmt.Errorf("symbol %s not registered", symbol)
	}
	tick, ok := e.prices.Get(symbol)
	if !ok {
		return core.ProfitSnapshot{}, fmt.Errorf("no price for %s yet", symbol)
	}

	qty := e.ledger.SummaryExecutedQty(symbol)
	cost := e.ledger.TotalCostWithFee(symbol)

	return core.ProfitSnapshot{
		Symbol:             symbol,
		Price:              tick.Price,
		Orders:             e.ledger.OrderCount(symbol),
		SummaryExecutedQty: qty,
		TotalCostWithFee:   cost,
		BeLevelWithFee:     tradingutils.BreakEvenLevel(cost, qty),
		ProfitToTarget:     tradingutils.ProfitToTarget(tick.Price, qty, cost, e.targetProfit),
		Profit:             e.ledger.Profit(symbol),
	}, nil
}
