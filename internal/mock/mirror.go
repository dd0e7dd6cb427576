package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/Julian6262/BingX/internal/core"

	"github.com/shopspring/decimal"
)

// Mirror is an in-memory core.LedgerMirror. It assigns sequential ids
// and keeps enough state to assert ledger/mirror consistency in tests.
type Mirror struct {
	mu sync.Mutex

	nextID  int64
	orders  map[string]map[int64]core.Order
	profits map[string]decimal.Decimal
	states  map[string]core.SymbolState

	FailInsert error
	FailDelete error
}

func NewMirror() *Mirror {
	return &Mirror{
		orders:  make(map[string]map[int64]core.Order),
		profits: make(map[string]decimal.Decimal),
		states:  make(map[string]core.SymbolState),
	}
}

func (m *Mirror) AddSymbol(ctx context.Context, name string, stepSize decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[name]; !ok {
		m.orders[name] = make(map[int64]core.Order)
	}
	return nil
}

func (m *Mirror) DeleteSymbol(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, name)
	delete(m.profits, name)
	delete(m.states, name)
	return nil
}

func (m *Mirror) InsertOrder(ctx context.Context, symbol string, o core.Order) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInsert != nil {
		return 0, m.FailInsert
	}
	if _, ok := m.orders[symbol]; !ok {
		m.orders[symbol] = make(map[int64]core.Order)
	}
	m.nextID++
	o.ID = m.nextID
	m.orders[symbol][o.ID] = o
	return o.ID, nil
}

func (m *Mirror) DeleteOrders(ctx context.Context, symbol string, ids []int64, newProfit decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil {
		return m.FailDelete
	}
	held, ok := m.orders[symbol]
	if !ok {
		return fmt.Errorf("symbol %s not mirrored", symbol)
	}
	if ids == nil {
		m.orders[symbol] = make(map[int64]core.Order)
	} else {
		for _, id := range ids {
			delete(held, id)
		}
	}
	m.profits[symbol] = newProfit
	return nil
}

func (m *Mirror) UpdateState(ctx context.Context, symbol string, state core.SymbolState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[symbol] = state
	return nil
}

func (m *Mirror) UpdateSymbolConfig(ctx context.Context, symbol string, lot, gridSize decimal.Decimal) error {
	return nil
}

// OrderIDs returns the mirrored order ids of a symbol.
func (m *Mirror) OrderIDs(symbol string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.orders[symbol]))
	for id := range m.orders[symbol] {
		out = append(out, id)
	}
	return out
}

// Profit returns the last profit written for a symbol.
func (m *Mirror) Profit(symbol string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profits[symbol]
}

// State returns the last state written for a symbol.
func (m *Mirror) State(symbol string) core.SymbolState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[symbol]
}
