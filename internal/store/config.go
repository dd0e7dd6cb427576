package store

import (
	"sync"

	"github.com/shopspring/decimal"
)

type symbolParams struct {
	lot      decimal.Decimal
	gridSize decimal.Decimal
	ready    bool
}

// ConfigStore holds the dynamic per-symbol trading parameters the
// indicator engine rescales: the target lot in quote currency and the
// fractional grid spacing. The one-shot ready latch releases the trading
// loop once the first RSI pass has sized the symbol.
type ConfigStore struct {
	mu     sync.RWMutex
	params map[string]*symbolParams
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{params: make(map[string]*symbolParams)}
}

// Set updates the lot and grid spacing of a symbol.
func (c *ConfigStore) Set(symbol string, lot, gridSize decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.params[symbol]
	if !ok {
		p = &symbolParams{}
		c.params[symbol] = p
	}
	p.lot = lot
	p.gridSize = gridSize
}

// Get returns the current lot and grid spacing, zeros when unset.
func (c *ConfigStore) Get(symbol string) (lot, gridSize decimal.Decimal) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.params[symbol]; ok {
		return p.lot, p.gridSize
	}
	return decimal.Zero, decimal.Zero
}

// MarkReady releases the trading loop for a symbol.
func (c *ConfigStore) MarkReady(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.params[symbol]; ok {
		p.ready = true
	}
}

// Ready reports whether the indicator has sized the symbol at least once.
func (c *ConfigStore) Ready(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.params[symbol]; ok {
		return p.ready
	}
	return false
}

// Delete drops a symbol's parameters.
func (c *ConfigStore) Delete(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.params, symbol)
}
