package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Julian6262/BingX/internal/alert"
	"github.com/Julian6262/BingX/internal/core"
	apperrors "github.com/Julian6262/BingX/pkg/errors"
	"github.com/Julian6262/BingX/pkg/telemetry"
	"github.com/Julian6262/BingX/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Buy places one market buy of the configured lot at the current price
// and books the fill in the ledger and its mirror. Returns the report
// of what happened; the caller decides whether to log or reply with it.
func (e *Engine) Buy(ctx context.Context, symbol string) string {
	lot, _ := e.configs.Get(symbol)
	if lot.IsZero() {
		return fmt.Sprintf("%s: lot is not sized yet", symbol)
	}

	if ok, report := e.account.CheckUSDT(lot); !ok {
		if report != "" {
			telemetry.GetGlobalMetrics().IncOrdersRejected(ctx, symbol, "balance")
		}
		return report
	}

	tick, ok := e.prices.Get(symbol)
	if !ok {
		return fmt.Sprintf("%s: no price yet", symbol)
	}

	step := e.ledger.StepSize(symbol)
	qty := tradingutils.RoundToStep(lot.Div(tick.Price), step)
	if !qty.IsPositive() {
		return fmt.Sprintf("%s: lot %s rounds to zero at step %s", symbol, lot, step)
	}

	requestQty := qty
	if e.feeReserveMode {
		// Keep enough loose base asset to cover sell-side fees; otherwise
		// a later sell of the full inventory would be short.
		forFee := qty.Mul(e.feeReserve)
		free := e.account.Balance(symbol).Sub(e.ledger.SummaryExecutedQty(symbol))
		if free.LessThanOrEqual(forFee) {
			requestQty = tradingutils.RoundToStep(qty.Add(decimal.Max(forFee, step)), step)
		}
	}

	res, err := e.exchange.PlaceMarketOrder(ctx, symbol, core.SideBuy, requestQty)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			e.account.BlockUSDT()
			telemetry.GetGlobalMetrics().IncOrdersRejected(ctx, symbol, "insufficient_funds")
			if e.alerts != nil {
				e.alerts.Alert(ctx, "USDT blocked",
					"buy rejected for insufficient funds, buying is latched off",
					alert.Warning, map[string]string{"symbol": symbol})
			}
			return fmt.Sprintf("buy %s rejected: insufficient USDT", symbol)
		}
		telemetry.GetGlobalMetrics().IncOrdersRejected(ctx, symbol, "error")
		return fmt.Sprintf("buy %s failed: %v", symbol, err)
	}

	ledgerQty := res.ExecutedQty
	if e.feeReserveMode && requestQty.GreaterThan(qty) {
		if res.ExecutedQty.LessThan(res.OrigQty) {
			ledgerQty = res.ExecutedQty.Sub(step)
		} else {
			ledgerQty = qty
		}
	}

	order := core.Order{
		Price:       res.Price,
		ExecutedQty: ledgerQty,
		Cost:        res.CumQuoteQty,
		CostWithFee: tradingutils.CostWithFee(res.CumQuoteQty, e.takerMaker),
		OpenTime:    time.UnixMilli(res.TransactTime),
	}

	id, err := e.mirror.InsertOrder(ctx, symbol, order)
	if err != nil {
		// The fill is real either way; book it in memory and surface the
		// mirror divergence loudly so the operator can reconcile.
		e.logger.Error("mirror insert failed after fill",
			"symbol", symbol, "error", err)
	}
	order.ID = id
	e.ledger.Append(symbol, order)

	metrics := telemetry.GetGlobalMetrics()
	metrics.IncOrdersPlaced(ctx, symbol, string(core.SideBuy))
	e.updateGauges(symbol)

	return fmt.Sprintf("bought %s: qty=%s price=%s cost=%s orders=%d",
		symbol, order.ExecutedQty, order.Price, order.Cost, e.ledger.OrderCount(symbol))
}

func (e *Engine) updateGauges(symbol string) {
	metrics := telemetry.GetGlobalMetrics()
	metrics.SetOpenOrders(symbol, int64(e.ledger.OrderCount(symbol)))
	metrics.SetInventoryQty(symbol, e.ledger.SummaryExecutedQty(symbol).InexactFloat64())
}
