// Package orchestrator owns the per-symbol task groups: price stream,
// indicator loop and trading loop run as one cancellable unit per symbol.
package orchestrator

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/internal/store"
)

// stopWait bounds how long StopSymbol waits for a task group to drain.
const stopWait = 10 * time.Second

// IndicatorRunner drives the indicator loop of one symbol.
type IndicatorRunner interface {
	Run(ctx context.Context, symbol string) error
}

// TradingRunner drives the trading loop of one symbol.
type TradingRunner interface {
	RunTrading(ctx context.Context, symbol string) error
}

type symbolTasks struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Orchestrator tracks one task group per running symbol. Start and stop
// are idempotent; stopping cancels the group and waits for it to drain.
type Orchestrator struct {
	exchange  core.Exchange
	prices    *store.PriceStore
	indicator IndicatorRunner
	trading   TradingRunner
	logger    core.ILogger
	stagger   time.Duration

	mu    sync.Mutex
	tasks map[string]*symbolTasks
}

func New(
	exchange core.Exchange,
	prices *store.PriceStore,
	indicator IndicatorRunner,
	trading TradingRunner,
	stagger time.Duration,
	logger core.ILogger,
) *Orchestrator {
	return &Orchestrator{
		exchange:  exchange,
		prices:    prices,
		indicator: indicator,
		trading:   trading,
		logger:    logger.WithField("component", "orchestrator"),
		stagger:   stagger,
		tasks:     make(map[string]*symbolTasks),
	}
}

// Running reports whether a task group exists for the symbol.
func (o *Orchestrator) Running(symbol string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.tasks[symbol]
	return ok
}

// StartSymbol launches the task group of a symbol under ctx. Starting a
// symbol that is already running is a no-op.
func (o *Orchestrator) StartSymbol(ctx context.Context, symbol string) {
	o.mu.Lock()
	if _, ok := o.tasks[symbol]; ok {
		o.mu.Unlock()
		return
	}
	taskCtx, cancel := context.WithCancel(ctx)
	tasks := &symbolTasks{cancel: cancel, done: make(chan struct{})}
	// Stagger by the number of groups already running, so restarts of a
	// single symbol do not push its stream ever further out.
	delay := time.Duration(len(o.tasks)) * o.stagger
	o.tasks[symbol] = tasks
	o.mu.Unlock()

	logger := o.logger.WithField("symbol", symbol)
	logger.Info("starting symbol tasks")

	go func() {
		defer close(tasks.done)
		var wg sync.WaitGroup

		run := func(name string, fn func(context.Context) error) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						logger.Error("task panicked", "task", name,
							"panic", r, "stack", string(debug.Stack()))
						cancel()
					}
				}()
				if err := fn(taskCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("task stopped", "task", name, "error", err)
				}
			}()
		}

		run("price_stream", func(ctx context.Context) error {
			// Spread subscriptions out so a restart with many symbols
			// does not burst-connect against the venue.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			return o.exchange.RunPriceStream(ctx, symbol, func(t core.Tick) {
				o.prices.Update(symbol, t)
			})
		})
		run("indicator", func(ctx context.Context) error {
			return o.indicator.Run(ctx, symbol)
		})
		run("trading", func(ctx context.Context) error {
			return o.trading.RunTrading(ctx, symbol)
		})

		wg.Wait()
		logger.Info("symbol tasks drained")
	}()
}

// StopSymbol cancels the symbol's task group and waits for it to drain.
// Stopping an unknown or already stopped symbol is a no-op.
func (o *Orchestrator) StopSymbol(symbol string) {
	o.mu.Lock()
	tasks, ok := o.tasks[symbol]
	if ok {
		delete(o.tasks, symbol)
	}
	o.mu.Unlock()
	if !ok {
		return
	}

	tasks.cancel()
	select {
	case <-tasks.done:
	case <-time.After(stopWait):
		o.logger.Warn("symbol tasks did not drain in time", "symbol", symbol)
	}
}

// StopAll stops every running symbol. Used on shutdown.
func (o *Orchestrator) StopAll() {
	o.mu.Lock()
	names := make([]string, 0, len(o.tasks))
	for name := range o.tasks {
		names = append(names, name)
	}
	o.mu.Unlock()

	for _, name := range names {
		o.StopSymbol(name)
	}
}
