// Package store holds the shared in-memory state of the engine: last
// prices, account balances, the per-symbol order ledger, and the dynamic
// per-symbol trading parameters. Every store is mutex-guarded; handles
// are passed to tasks by pointer rather than held as process globals.
package store

import (
	"sync"

	"github.com/Julian6262/BingX/internal/core"
)

// PriceStore maps symbol -> latest trade tick.
type PriceStore struct {
	mu    sync.RWMutex
	ticks map[string]core.Tick
}

func NewPriceStore() *PriceStore {
	return &PriceStore{ticks: make(map[string]core.Tick)}
}

// Update records the latest tick for a symbol.
func (p *PriceStore) Update(symbol string, tick core.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks[symbol] = tick
}

// Get returns the latest tick. The second result is false until the
// first tick for the symbol has arrived.
func (p *PriceStore) Get(symbol string) (core.Tick, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tick, ok := p.ticks[symbol]
	return tick, ok
}
