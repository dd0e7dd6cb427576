package store

import (
	"fmt"
	"sync"

	"github.com/Julian6262/BingX/internal/core"

	"github.com/shopspring/decimal"
)

// AccountStore maps asset -> free balance and owns the private-stream
// listen key plus the USDT insufficient-funds latch shared by all symbols.
type AccountStore struct {
	mu        sync.RWMutex
	balances  map[string]decimal.Decimal
	listenKey string
	latch     core.UsdtLatch

	minQuoteBalance decimal.Decimal
}

func NewAccountStore(minQuoteBalance decimal.Decimal) *AccountStore {
	return &AccountStore{
		balances:        make(map[string]decimal.Decimal),
		latch:           core.LatchUnblock,
		minQuoteBalance: minQuoteBalance,
	}
}

// ApplyBalances folds a balance batch from the account stream into the
// store. The private stream is authoritative; REST only bootstraps.
func (a *AccountStore) ApplyBalances(batch []core.BalanceUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, b := range batch {
		a.balances[b.Asset] = b.WalletBalance
	}
}

// Balance returns the free balance of an asset, zero when unknown.
func (a *AccountStore) Balance(asset string) decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balances[asset]
}

// SetListenKey publishes the private-stream session key.
func (a *AccountStore) SetListenKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listenKey = key
}

// ListenKey returns the current session key, empty until acquired.
func (a *AccountStore) ListenKey() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.listenKey
}

// Latch returns the current USDT latch state.
func (a *AccountStore) Latch() core.UsdtLatch {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latch
}

// BlockUSDT engages the latch after the venue rejected a buy for
// insufficient funds. It only transitions from the unblocked state.
func (a *AccountStore) BlockUSDT() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latch == core.LatchUnblock {
		a.latch = core.LatchBlock
	}
}

// CheckUSDT gates a buy of the given lot against the USDT balance and
// the latch. The latch hysteresis: a blocked state clears as soon as the
// observed balance exceeds the lot; the first refusal after blocking is
// reported, later refusals are silent.
func (a *AccountStore) CheckUSDT(lot decimal.Decimal) (bool, string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	balance := a.balances["USDT"]

	if a.latch != core.LatchUnblock {
		if balance.GreaterThan(lot) {
			a.latch = core.LatchUnblock
			return true, ""
		}
		if a.latch == core.LatchBlock {
			a.latch = core.LatchContinueBlock
			return false, fmt.Sprintf("balance too low: USDT %s < lot %s", balance, lot)
		}
		return false, ""
	}

	if balance.LessThan(a.minQuoteBalance) {
		return false, fmt.Sprintf("balance too low: USDT %s below floor %s", balance, a.minQuoteBalance)
	}
	return true, ""
}
