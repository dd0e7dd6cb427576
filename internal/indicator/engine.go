package indicator

import (
	"context"
	"time"

	"github.com/Julian6262/BingX/internal/config"
	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/internal/store"
	"github.com/Julian6262/BingX/pkg/retry"
	"github.com/Julian6262/BingX/pkg/telemetry"

	"github.com/shopspring/decimal"
)

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	rsiPeriod  = 14

	interval1m = "1m"
	interval4h = "4h"
)

// deltaMs is the candle advance step for a timeframe. The missing
// millisecond mirrors the venue's kline window convention.
func deltaMs(minutes int64) int64 {
	return minutes*60_000 - 1
}

// Engine folds live ticks into two candle windows per symbol and derives
// the buy/sell trigger (MACD on 1m closes) and the lot/grid sizing (RSI
// on 4h closes).
type Engine struct {
	exchange    core.Exchange
	prices      *store.PriceStore
	account     *store.AccountStore
	ledger      *store.Ledger
	configStore *store.ConfigStore
	mirror      core.LedgerMirror
	logger      core.ILogger

	seedLimit int
	baseGrid  decimal.Decimal
	tick      time.Duration
}

func NewEngine(
	exchange core.Exchange,
	prices *store.PriceStore,
	account *store.AccountStore,
	ledger *store.Ledger,
	configStore *store.ConfigStore,
	mirror core.LedgerMirror,
	trading config.TradingConfig,
	timing config.TimingConfig,
	logger core.ILogger,
) *Engine {
	return &Engine{
		exchange:    exchange,
		prices:      prices,
		account:     account,
		ledger:      ledger,
		configStore: configStore,
		mirror:      mirror,
		logger:      logger.WithField("component", "indicator"),
		seedLimit:   trading.KlineSeedLimit,
		baseGrid:    decimal.NewFromFloat(trading.BaseGridStep),
		tick:        timing.IndicatorTick(),
	}
}

// symbolWindows is the mutable indicator state of one running symbol.
type symbolWindows struct {
	win1m  *Ring
	win4h  *Ring
	next1m int64
	next4h int64
}

// Run drives the indicator loop for one symbol until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, symbol string) error {
	logger := e.logger.WithField("symbol", symbol)

	if err := e.waitFirstTick(ctx, symbol); err != nil {
		return err
	}

	w, err := e.seed(ctx, symbol)
	if err != nil {
		logger.Error("failed to seed indicator windows", "error", err)
		return err
	}
	logger.Info("indicator windows seeded",
		"len_1m", w.win1m.Len(), "len_4h", w.win4h.Len())

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick, ok := e.prices.Get(symbol)
			if !ok {
				continue
			}
			e.step(ctx, symbol, w, tick)
		}
	}
}

func (e *Engine) waitFirstTick(ctx context.Context, symbol string) error {
	for {
		if _, ok := e.prices.Get(symbol); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// seed fetches the historical close windows. Transient REST failures are
// retried; the symbol cannot trade without seeded windows.
func (e *Engine) seed(ctx context.Context, symbol string) (*symbolWindows, error) {
	w := &symbolWindows{
		win1m: NewRing(e.seedLimit),
		win4h: NewRing(e.seedLimit),
	}

	load := func(interval string, ring *Ring, delta int64, next *int64) error {
		return retry.Do(ctx, retry.DefaultPolicy, retry.Always, func() error {
			candles, err := e.exchange.Klines(ctx, symbol, interval, e.seedLimit)
			if err != nil {
				return err
			}
			for _, c := range candles {
				ring.Append(c.Close)
			}
			if len(candles) > 0 {
				*next = candles[len(candles)-1].OpenTime + delta
			}
			return nil
		})
	}

	if err := load(interval1m, w.win1m, deltaMs(1), &w.next1m); err != nil {
		return nil, err
	}
	if err := load(interval4h, w.win4h, deltaMs(4*60), &w.next4h); err != nil {
		return nil, err
	}
	return w, nil
}

// step processes one tick: candle rollovers first, then the indicator
// passes gated on the current trigger.
func (e *Engine) step(ctx context.Context, symbol string, w *symbolWindows, tick core.Tick) {
	price := tick.Price.InexactFloat64()

	if tick.Ts >= w.next1m {
		// Close the running candle at this price and open the next one.
		w.win1m.SetLast(price)
		w.win1m.Append(price)
		w.next1m += deltaMs(1)
		e.macd1m(symbol, w)
	}

	w.win4h.SetLast(price)
	if tick.Ts >= w.next4h {
		w.win4h.Append(price)
		w.next4h += deltaMs(4 * 60)
	}

	if trigger := e.ledger.Trigger(symbol); trigger == core.TriggerBuy || trigger == core.TriggerNew {
		e.rsi4h(ctx, symbol, w)
	}
}

// macd1m flips the buy/sell trigger when the histogram holds the same
// sign over the last two closed candles. A single sample never flips.
func (e *Engine) macd1m(symbol string, w *symbolWindows) {
	hist := MACDHist(w.win1m.Values(), macdFast, macdSlow, macdSignal)
	if len(hist) < 2 {
		return
	}
	prev, last := hist[len(hist)-2], hist[len(hist)-1]
	trigger := e.ledger.Trigger(symbol)

	switch {
	case prev > 0 && last > 0 && (trigger == core.TriggerSell || trigger == core.TriggerNew):
		e.setTrigger(symbol, core.TriggerBuy)
	case prev < 0 && last < 0 && (trigger == core.TriggerBuy || trigger == core.TriggerNew):
		e.setTrigger(symbol, core.TriggerSell)
	}
}

func (e *Engine) setTrigger(symbol string, t core.Trigger) {
	e.ledger.SetTrigger(symbol, t)
	gauge := telemetry.TriggerGaugeNew
	switch t {
	case core.TriggerBuy:
		gauge = telemetry.TriggerGaugeBuy
	case core.TriggerSell:
		gauge = telemetry.TriggerGaugeSell
	}
	telemetry.GetGlobalMetrics().SetTriggerState(symbol, gauge)
	e.logger.Info("trigger flipped", "symbol", symbol, "trigger", string(t))
}

// rsi4h rescales the lot and grid spacing from the 4h RSI band and the
// account's USDT bucket, persisting changes to the mirror.
func (e *Engine) rsi4h(ctx context.Context, symbol string, w *symbolWindows) {
	rsi := RSI(w.win4h.Values(), rsiPeriod)
	mainLot := MainLot(e.account.Balance("USDT"))
	lot, gridSize := SizeForRSI(rsi, mainLot, e.baseGrid)

	curLot, curGrid := e.configStore.Get(symbol)
	if !lot.Equal(curLot) || !gridSize.Equal(curGrid) {
		e.configStore.Set(symbol, lot, gridSize)
		if err := e.mirror.UpdateSymbolConfig(ctx, symbol, lot, gridSize); err != nil {
			e.logger.Error("failed to persist symbol config",
				"symbol", symbol, "error", err)
		}
		e.logger.Info("symbol sized", "symbol", symbol,
			"rsi", rsi, "lot", lot.String(), "grid", gridSize.String())
	}

	// First pass releases the trading loop even when the persisted
	// sizing already matches.
	e.configStore.MarkReady(symbol)
}
