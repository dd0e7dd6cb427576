package store

import (
	"github.com/Julian6262/BingX/internal/core"
	"sync"

	"github.com/shopspring/decimal"
)

type symbolState struct {
	stepSize       decimal.Decimal
	state          core.SymbolState
	profit         decimal.Decimal
	orders         []core.Order
	pauseAfterSell bool
	trigger        core.Trigger
}

// Ledger is the per-symbol open-order book of the engine. One mutex
// guards the whole symbol map; contention is trivial at 1 Hz access.
// Orders keep insertion order so the partial-sell scan can walk from
// newest to oldest.
type Ledger struct {
	mu      sync.RWMutex
	symbols map[string]*symbolState
}

func NewLedger() *Ledger {
	return &Ledger{symbols: make(map[string]*symbolState)}
}

// AddSymbol registers a symbol with its immutable step size and the
// persisted state/profit restored from the mirror.
func (l *Ledger) AddSymbol(symbol string, stepSize decimal.Decimal, state core.SymbolState, profit decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.symbols[symbol]; ok {
		return
	}
	l.symbols[symbol] = &symbolState{
		stepSize: stepSize,
		state:    state,
		profit:   profit,
		trigger:  core.TriggerNew,
	}
}

// DeleteSymbol drops a symbol and its orders from memory.
func (l *Ledger) DeleteSymbol(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.symbols, symbol)
}

// Has reports whether a symbol is registered.
func (l *Ledger) Has(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.symbols[symbol]
	return ok
}

// Symbols returns the registered symbol names.
func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.symbols))
	for name := range l.symbols {
		out = append(out, name)
	}
	return out
}

// StepSize returns the base-asset quantity step of a symbol.
func (l *Ledger) StepSize(symbol string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.symbols[symbol]; ok {
		return s.stepSize
	}
	return decimal.Zero
}

// Append adds a filled buy to the end of the symbol's ladder.
func (l *Ledger) Append(symbol string, o core.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.symbols[symbol]; ok {
		s.orders = append(s.orders, o)
	}
}

// LastOrder returns the most recent open buy, or false when the ladder
// is empty or the symbol unknown.
func (l *Ledger) LastOrder(symbol string) (core.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.symbols[symbol]
	if !ok || len(s.orders) == 0 {
		return core.Order{}, false
	}
	return s.orders[len(s.orders)-1], true
}

// Orders returns a snapshot copy of the ladder in chronological order.
func (l *Ledger) Orders(symbol string) []core.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.symbols[symbol]
	if !ok {
		return nil
	}
	out := make([]core.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// OrderCount returns the number of open buys.
func (l *Ledger) OrderCount(symbol string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.symbols[symbol]; ok {
		return len(s.orders)
	}
	return 0
}

// SummaryExecutedQty is the total base inventory held for a symbol.
func (l *Ledger) SummaryExecutedQty(symbol string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sum := decimal.Zero
	if s, ok := l.symbols[symbol]; ok {
		for _, o := range s.orders {
			sum = sum.Add(o.ExecutedQty)
		}
	}
	return sum
}

// TotalCostWithFee is the fee-adjusted quote cost of the whole ladder.
func (l *Ledger) TotalCostWithFee(symbol string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sum := decimal.Zero
	if s, ok := l.symbols[symbol]; ok {
		for _, o := range s.orders {
			sum = sum.Add(o.CostWithFee)
		}
	}
	return sum
}

// RemoveOrders deletes orders by id; nil clears the whole ladder. Sells
// consume the newest orders first, so removal walks the trailing slice.
func (l *Ledger) RemoveOrders(symbol string, ids []int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.symbols[symbol]
	if !ok {
		return
	}
	if ids == nil {
		s.orders = nil
		return
	}
	idSet := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	kept := s.orders[:0]
	for _, o := range s.orders {
		if _, hit := idSet[o.ID]; !hit {
			kept = append(kept, o)
		}
	}
	s.orders = kept
}

// AddProfit adds realized profit to the symbol's running total and
// returns the new total.
func (l *Ledger) AddProfit(symbol string, delta decimal.Decimal) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.symbols[symbol]; ok {
		s.profit = s.profit.Add(delta)
		return s.profit
	}
	return decimal.Zero
}

// Profit returns the running realized profit.
func (l *Ledger) Profit(symbol string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.symbols[symbol]; ok {
		return s.profit
	}
	return decimal.Zero
}

// State returns the operator lifecycle state, stop for unknown symbols.
func (l *Ledger) State(symbol string) core.SymbolState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.symbols[symbol]; ok {
		return s.state
	}
	return core.StateStop
}

// SetState records the operator lifecycle state.
func (l *Ledger) SetState(symbol string, state core.SymbolState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.symbols[symbol]; ok {
		s.state = state
	}
}

// PauseAfterSell reports the post-sell buy pause latch.
func (l *Ledger) PauseAfterSell(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.symbols[symbol]; ok {
		return s.pauseAfterSell
	}
	return false
}

// SetPauseAfterSell sets or clears the post-sell buy pause latch.
func (l *Ledger) SetPauseAfterSell(symbol string, v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.symbols[symbol]; ok {
		s.pauseAfterSell = v
	}
}

// Trigger returns the indicator buy/sell gate.
func (l *Ledger) Trigger(symbol string) core.Trigger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.symbols[symbol]; ok {
		return s.trigger
	}
	return core.TriggerNew
}

// SetTrigger records the indicator buy/sell gate.
func (l *Ledger) SetTrigger(symbol string, t core.Trigger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.symbols[symbol]; ok {
		s.trigger = t
	}
}
