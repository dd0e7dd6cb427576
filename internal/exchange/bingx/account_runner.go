package bingx

import (
	"context"
	"time"

	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/internal/store"
)

// AccountStreamRunner waits for the listen key, then keeps the private
// account stream attached to the account store.
type AccountStreamRunner struct {
	exchange core.Exchange
	account  *store.AccountStore
	logger   core.ILogger
}

func NewAccountStreamRunner(exchange core.Exchange, account *store.AccountStore, logger core.ILogger) *AccountStreamRunner {
	return &AccountStreamRunner{
		exchange: exchange,
		account:  account,
		logger:   logger.WithField("component", "account_stream"),
	}
}

func (r *AccountStreamRunner) Run(ctx context.Context) error {
	// Poll until the listen-key keeper has published a key.
	var key string
	for key == "" {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
			key = r.account.ListenKey()
		}
	}

	r.logger.Info("account stream starting")
	return r.exchange.RunAccountStream(ctx, key, r.account.ApplyBalances)
}
