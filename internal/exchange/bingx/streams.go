package bingx

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/pkg/telemetry"
	"github.com/Julian6262/BingX/pkg/websocket"

	"github.com/shopspring/decimal"
)

type subscribeMsg struct {
	ID       string `json:"id"`
	ReqType  string `json:"reqType"`
	DataType string `json:"dataType"`
}

// inflate decompresses a gzip frame; BingX occasionally sends plain-text
// control frames, which pass through unchanged.
func inflate(frame []byte) []byte {
	zr, err := gzip.NewReader(bytes.NewReader(frame))
	if err != nil {
		return frame
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return frame
	}
	return out
}

// RunPriceStream subscribes to {SYM}-USDT@lastPrice and feeds ticks to
// onTick until ctx is cancelled. Reconnection is handled by the
// underlying client and never gives up.
func (e *Exchange) RunPriceStream(ctx context.Context, symbol string, onTick func(core.Tick)) error {
	topic := Pair(symbol) + "@lastPrice"
	logger := e.logger.WithField("stream", "price").WithField("symbol", symbol)
	metrics := telemetry.GetGlobalMetrics()

	var client *websocket.Client
	handler := func(frame []byte) {
		payload := inflate(frame)

		if string(payload) == "Ping" {
			if err := client.SendText("Pong"); err != nil {
				logger.Warn("failed to answer venue ping", "error", err)
			}
			return
		}

		var msg struct {
			DataType string `json:"dataType"`
			Data     struct {
				C json.Number `json:"c"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Debug("skipping undecodable frame", "error", err)
			return
		}
		if msg.Data.C == "" {
			return
		}

		price, err := decimal.NewFromString(msg.Data.C.String())
		if err != nil {
			logger.Warn("bad price in frame", "value", msg.Data.C, "error", err)
			return
		}

		tick := core.Tick{Ts: time.Now().UnixMilli(), Price: price}
		if err := e.pool.Submit(func() { onTick(tick) }); err != nil {
			logger.Warn("tick dropped, pool full", "error", err)
		}
	}

	client = websocket.NewClient(e.wsURL, handler, logger)
	client.SetReconnectWait(e.reconnectWait)
	client.SetOnConnected(func() {
		metrics.IncWsReconnects(ctx, "price_"+symbol)
		if err := client.Send(subscribeMsg{ID: "1", ReqType: "sub", DataType: topic}); err != nil {
			logger.Error("failed to subscribe", "topic", topic, "error", err)
		}
	})

	client.Start()
	<-ctx.Done()
	client.Stop()
	return ctx.Err()
}

// RunAccountStream subscribes to ACCOUNT_UPDATE under the listen key and
// feeds balance batches to onBalances until ctx is cancelled.
func (e *Exchange) RunAccountStream(ctx context.Context, listenKey string, onBalances func([]core.BalanceUpdate)) error {
	logger := e.logger.WithField("stream", "account")
	metrics := telemetry.GetGlobalMetrics()

	var client *websocket.Client
	handler := func(frame []byte) {
		payload := inflate(frame)

		if string(payload) == "Ping" {
			if err := client.SendText("Pong"); err != nil {
				logger.Warn("failed to answer venue ping", "error", err)
			}
			return
		}

		var msg struct {
			Event string `json:"e"`
			A     struct {
				B []struct {
					Asset         string      `json:"a"`
					WalletBalance json.Number `json:"wb"`
				} `json:"B"`
			} `json:"a"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Debug("skipping undecodable frame", "error", err)
			return
		}
		if msg.Event == "" || len(msg.A.B) == 0 {
			return
		}

		batch := make([]core.BalanceUpdate, 0, len(msg.A.B))
		for _, b := range msg.A.B {
			balance, err := decimal.NewFromString(b.WalletBalance.String())
			if err != nil {
				logger.Warn("bad balance in frame", "asset", b.Asset, "error", err)
				continue
			}
			batch = append(batch, core.BalanceUpdate{Asset: b.Asset, WalletBalance: balance})
		}
		if len(batch) == 0 {
			return
		}
		if err := e.pool.Submit(func() { onBalances(batch) }); err != nil {
			logger.Warn("balance batch dropped, pool full", "error", err)
		}
	}

	client = websocket.NewClient(e.wsURL+"?listenKey="+listenKey, handler, logger)
	client.SetReconnectWait(e.reconnectWait)
	client.SetOnConnected(func() {
		metrics.IncWsReconnects(ctx, "account")
		if err := client.Send(subscribeMsg{ID: "1", ReqType: "sub", DataType: "ACCOUNT_UPDATE"}); err != nil {
			logger.Error("failed to subscribe", "error", err)
		}
	})

	client.Start()
	<-ctx.Done()
	client.Stop()
	return ctx.Err()
}
