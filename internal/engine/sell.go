package engine

import (
	"context"
	"fmt"

	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/pkg/telemetry"
	"github.com/Julian6262/BingX/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

// PartialSell scans the ladder newest-to-oldest and sells every order
// whose running contribution clears the partial profit threshold at the
// current price. Returns "" when nothing qualifies so the 1 Hz loop
// stays quiet between opportunities.
func (e *Engine) PartialSell(ctx context.Context, symbol string) string {
	tick, ok := e.prices.Get(symbol)
	if !ok {
		return ""
	}
	orders := e.ledger.Orders(symbol)
	if len(orders) == 0 {
		return ""
	}

	threshold := one.Add(e.partlyTarget)
	partlyProfit := decimal.Zero
	partlyCost := decimal.Zero
	qty := decimal.Zero
	var ids []int64

	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		tryProfit := partlyProfit.Add(tick.Price.Mul(o.ExecutedQty))
		tryCost := partlyCost.Add(o.CostWithFee)
		// A candidate that drags the batch below target is rolled back,
		// but older, cheaper orders may still qualify on their own.
		if tryProfit.GreaterThanOrEqual(tryCost.Mul(threshold)) {
			partlyProfit, partlyCost = tryProfit, tryCost
			qty = qty.Add(o.ExecutedQty)
			ids = append(ids, o.ID)
		}
	}
	if !qty.IsPositive() {
		return ""
	}

	sellQty := tradingutils.FloorToStep(qty, e.ledger.StepSize(symbol))
	if !sellQty.IsPositive() {
		return ""
	}

	return e.sell(ctx, symbol, sellQty, partlyCost, ids)
}

// FullSell liquidates the entire ladder regardless of profit. Operator
// command only; the automatic loop sells partially.
func (e *Engine) FullSell(ctx context.Context, symbol string) string {
	qty := e.ledger.SummaryExecutedQty(symbol)
	if !qty.IsPositive() {
		return fmt.Sprintf("%s: no open orders", symbol)
	}
	sellQty := tradingutils.FloorToStep(qty, e.ledger.StepSize(symbol))
	if !sellQty.IsPositive() {
		return fmt.Sprintf("%s: inventory %s below one step", symbol, qty)
	}
	return e.sell(ctx, symbol, sellQty, e.ledger.TotalCostWithFee(symbol), nil)
}

// sell executes the market sell and commits both halves of the ledger:
// mirror delete + profit update in one transaction, then the in-memory
// removal, before the report is returned. ids nil clears the ladder.
func (e *Engine) sell(ctx context.Context, symbol string, sellQty, costWithFee decimal.Decimal, ids []int64) string {
	res, err := e.exchange.PlaceMarketOrder(ctx, symbol, core.SideSell, sellQty)
	if err != nil {
		telemetry.GetGlobalMetrics().IncOrdersRejected(ctx, symbol, "error")
		return fmt.Sprintf("sell %s failed: %v", symbol, err)
	}

	realProfit := res.CumQuoteQty.Sub(costWithFee)
	newProfit := e.ledger.Profit(symbol).Add(realProfit)

	if err := e.mirror.DeleteOrders(ctx, symbol, ids, newProfit); err != nil {
		e.logger.Error("mirror delete failed after fill",
			"symbol", symbol, "error", err)
	}
	e.ledger.RemoveOrders(symbol, ids)
	e.ledger.AddProfit(symbol, realProfit)
	e.ledger.SetPauseAfterSell(symbol, true)

	metrics := telemetry.GetGlobalMetrics()
	metrics.IncOrdersPlaced(ctx, symbol, string(core.SideSell))
	metrics.AddProfitRealized(ctx, symbol, realProfit.InexactFloat64())
	e.updateGauges(symbol)

	return fmt.Sprintf("sold %s: qty=%s real_profit=%s total_profit=%s",
		symbol, sellQty, realProfit, newProfit)
}

// Purge drops every order of a symbol from mirror and memory without
// selling. The running profit is kept.
func (e *Engine) Purge(ctx context.Context, symbol string) string {
	if !e.ledger.Has(symbol) {
		return fmt.Sprintf("symbol %s not registered", symbol)
	}
	if err := e.mirror.DeleteOrders(ctx, symbol, nil, e.ledger.Profit(symbol)); err != nil {
		return fmt.Sprintf("purge %s failed: %v", symbol, err)
	}
	e.ledger.RemoveOrders(symbol, nil)
	e.updateGauges(symbol)
	return fmt.Sprintf("purged all orders for %s", symbol)
}
