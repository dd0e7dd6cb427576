package bingx

import (
	"context"
	"time"

	"github.com/Julian6262/BingX/internal/alert"
	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/internal/store"
	"github.com/Julian6262/BingX/pkg/retry"
)

// ListenKeyKeeper obtains the private-stream session key at start-up and
// refreshes it on a fixed period. Losing the key kills only the account
// stream; the trading engine keeps running on REST.
type ListenKeyKeeper struct {
	exchange core.Exchange
	account  *store.AccountStore
	refresh  time.Duration
	logger   core.ILogger
	alerts   *alert.AlertManager
}

// WithAlerts attaches the notification fan-out.
func (k *ListenKeyKeeper) WithAlerts(am *alert.AlertManager) *ListenKeyKeeper {
	k.alerts = am
	return k
}

func NewListenKeyKeeper(exchange core.Exchange, account *store.AccountStore, refresh time.Duration, logger core.ILogger) *ListenKeyKeeper {
	return &ListenKeyKeeper{
		exchange: exchange,
		account:  account,
		refresh:  refresh,
		logger:   logger.WithField("component", "listen_key"),
	}
}

// Run acquires the key with backoff, publishes it to the account store,
// then refreshes until ctx is cancelled.
func (k *ListenKeyKeeper) Run(ctx context.Context) error {
	var key string
	err := retry.Do(ctx, retry.DefaultPolicy, retry.Always, func() error {
		var err error
		key, err = k.exchange.CreateListenKey(ctx)
		return err
	})
	if err != nil {
		// Fatal for the account stream only; the engine trades on REST.
		k.logger.Error("failed to obtain listen key, account stream disabled", "error", err)
		if k.alerts != nil {
			k.alerts.Alert(ctx, "listen key unavailable",
				"account stream disabled, balances will not update", alert.Critical, nil)
		}
		return nil
	}

	k.account.SetListenKey(key)
	k.logger.Info("listen key acquired")

	ticker := time.NewTicker(k.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := k.exchange.ExtendListenKey(ctx, key); err != nil {
				// The venue expires keys after an hour; keep trying on the
				// next tick rather than tearing the runner down.
				k.logger.Error("failed to refresh listen key", "error", err)
				continue
			}
			k.logger.Debug("listen key refreshed")
		}
	}
}
