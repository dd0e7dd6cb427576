package console

import (
	"context"
	"fmt"

	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/internal/engine"
	"github.com/Julian6262/BingX/internal/orchestrator"
	"github.com/Julian6262/BingX/internal/store"
	"github.com/Julian6262/BingX/pkg/telemetry"

	"github.com/shopspring/decimal"
)

// Commander implements Operator over the live stores and task registry.
// runCtx is the application root context: symbols started from a command
// must outlive the command itself.
type Commander struct {
	runCtx   context.Context
	exchange core.Exchange
	prices   *store.PriceStore
	ledger   *store.Ledger
	configs  *store.ConfigStore
	mirror   core.LedgerMirror
	engine   *engine.Engine
	orch     *orchestrator.Orchestrator
	logger   core.ILogger
}

func NewCommander(
	runCtx context.Context,
	exchange core.Exchange,
	prices *store.PriceStore,
	ledger *store.Ledger,
	configs *store.ConfigStore,
	mirror core.LedgerMirror,
	eng *engine.Engine,
	orch *orchestrator.Orchestrator,
	logger core.ILogger,
) *Commander {
	return &Commander{
		runCtx:   runCtx,
		exchange: exchange,
		prices:   prices,
		ledger:   ledger,
		configs:  configs,
		mirror:   mirror,
		engine:   eng,
		orch:     orch,
		logger:   logger.WithField("component", "commander"),
	}
}

func (c *Commander) AddSymbol(ctx context.Context, symbol string) string {
	if c.ledger.Has(symbol) {
		return fmt.Sprintf("%s is already registered", symbol)
	}
	step, err := c.exchange.SymbolStepSize(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("failed to fetch step size for %s: %v", symbol, err)
	}
	if err := c.mirror.AddSymbol(ctx, symbol, step); err != nil {
		return fmt.Sprintf("failed to persist %s: %v", symbol, err)
	}
	c.ledger.AddSymbol(symbol, step, core.StateStop, decimal.Zero)
	return fmt.Sprintf("added %s (step %s), state=stop", symbol, step)
}

func (c *Commander) DeleteSymbol(ctx context.Context, symbol string) string {
	if !c.ledger.Has(symbol) {
		return fmt.Sprintf("%s is not registered", symbol)
	}
	if c.ledger.State(symbol) != core.StateStop {
		return fmt.Sprintf("%s: state must be stop", symbol)
	}
	if c.ledger.OrderCount(symbol) > 0 {
		return fmt.Sprintf("%s: has open orders", symbol)
	}
	if !c.ledger.Profit(symbol).IsZero() {
		return fmt.Sprintf("%s: profit is not zero", symbol)
	}
	if err := c.mirror.DeleteSymbol(ctx, symbol); err != nil {
		return fmt.Sprintf("failed to delete %s: %v", symbol, err)
	}
	c.ledger.DeleteSymbol(symbol)
	c.configs.Delete(symbol)
	telemetry.GetGlobalMetrics().ForgetSymbol(symbol)
	return fmt.Sprintf("deleted %s", symbol)
}

func (c *Commander) Track(ctx context.Context, symbol string) string {
	if !c.ledger.Has(symbol) {
		return fmt.Sprintf("%s is not registered", symbol)
	}
	c.ledger.SetState(symbol, core.StateTrack)
	if err := c.mirror.UpdateState(ctx, symbol, core.StateTrack); err != nil {
		c.logger.Error("failed to persist state", "symbol", symbol, "error", err)
	}
	c.orch.StartSymbol(c.runCtx, symbol)
	return fmt.Sprintf("tracking %s", symbol)
}

func (c *Commander) Pause(ctx context.Context, symbol string) string {
	if !c.ledger.Has(symbol) {
		return fmt.Sprintf("%s is not registered", symbol)
	}
	// Any state but stop has the task group running: a paused symbol
	// keeps streaming and sizing, only the trading cycles skip. Start is
	// a no-op when the group already exists.
	c.ledger.SetState(symbol, core.StatePause)
	if err := c.mirror.UpdateState(ctx, symbol, core.StatePause); err != nil {
		c.logger.Error("failed to persist state", "symbol", symbol, "error", err)
	}
	c.orch.StartSymbol(c.runCtx, symbol)
	return fmt.Sprintf("paused %s", symbol)
}

func (c *Commander) Stop(ctx context.Context, symbol string) string {
	if !c.ledger.Has(symbol) {
		return fmt.Sprintf("%s is not registered", symbol)
	}
	c.orch.StopSymbol(symbol)
	c.ledger.SetState(symbol, core.StateStop)
	if err := c.mirror.UpdateState(ctx, symbol, core.StateStop); err != nil {
		c.logger.Error("failed to persist state", "symbol", symbol, "error", err)
	}
	return fmt.Sprintf("stopped %s", symbol)
}

func (c *Commander) Buy(ctx context.Context, symbol string) string {
	if !c.ledger.Has(symbol) {
		return fmt.Sprintf("%s is not registered", symbol)
	}
	return c.engine.Buy(ctx, symbol)
}

func (c *Commander) Sell(ctx context.Context, symbol string) string {
	if !c.ledger.Has(symbol) {
		return fmt.Sprintf("%s is not registered", symbol)
	}
	if report := c.engine.PartialSell(ctx, symbol); report != "" {
		return report
	}
	return fmt.Sprintf("%s: no orders meet the partial target", symbol)
}

func (c *Commander) SellAll(ctx context.Context, symbol string) string {
	if !c.ledger.Has(symbol) {
		return fmt.Sprintf("%s is not registered", symbol)
	}
	return c.engine.FullSell(ctx, symbol)
}

// Price reports the latest streamed price of a symbol.
func (c *Commander) Price(ctx context.Context, symbol string) string {
	tick, ok := c.prices.Get(symbol)
	if !ok {
		return fmt.Sprintf("no price for %s yet", symbol)
	}
	return fmt.Sprintf("%s price: %s", symbol, tick.Price)
}

func (c *Commander) Profit(ctx context.Context, symbol string) string {
	snap, err := c.engine.Snapshot(symbol)
	if err != nil {
		return err.Error()
	}
	return snap.String()
}

func (c *Commander) PurgeOrders(ctx context.Context, symbol string) string {
	return c.engine.Purge(ctx, symbol)
}
