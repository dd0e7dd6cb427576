// Package bingx implements the BingX spot venue: signed REST dispatch,
// the public price stream, the private account stream, and the
// listen-key lifecycle behind them.
package bingx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Julian6262/BingX/internal/config"
	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/pkg/concurrency"
	apperrors "github.com/Julian6262/BingX/pkg/errors"
	pkghttp "github.com/Julian6262/BingX/pkg/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	pathTradeOrder    = "/openApi/spot/v1/trade/order"
	pathCommonSymbols = "/openApi/spot/v1/common/symbols"
	pathMarketKline   = "/openApi/spot/v2/market/kline"
)

// Exchange implements core.Exchange against BingX spot v1/v2.
type Exchange struct {
	cfg           config.ExchangeConfig
	http          *pkghttp.Client
	wsURL         string
	reconnectWait time.Duration
	pool          *concurrency.WorkerPool
	logger        core.ILogger
}

// New creates a BingX exchange client. All REST calls share one resilient
// HTTP client; both stream kinds share the worker pool for callback
// dispatch so slow handlers never stall a read loop.
func New(cfg config.ExchangeConfig, timing config.TimingConfig, pool *concurrency.WorkerPool, logger core.ILogger) *Exchange {
	signer := NewSigner(string(cfg.APIKey), string(cfg.SecretKey))
	httpClient := pkghttp.NewClient(cfg.BaseURL,
		time.Duration(cfg.RecvTimeoutSeconds)*time.Second, signer)

	return &Exchange{
		cfg:           cfg,
		http:          httpClient,
		wsURL:         cfg.WsURL,
		reconnectWait: timing.ReconnectDelay(),
		pool:          pool,
		logger:        logger.WithField("component", "bingx"),
	}
}

// Pair converts a short symbol to the venue's pair notation.
func Pair(symbol string) string {
	return symbol + "-USDT"
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// decode unpacks the venue's response envelope. BingX answers some
// endpoints with a JSON body declared as text/plain.
func (e *Exchange) decode(body []byte, contentType string) (json.RawMessage, error) {
	mediaType := contentType
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		mediaType = contentType[:i]
	}
	mediaType = strings.TrimSpace(mediaType)

	switch mediaType {
	case "application/json", "text/plain", "":
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnexpectedContentType, contentType)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Code != 0 {
		return nil, parseError(env.Code, env.Msg)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%w: response lacks data", apperrors.ErrOrderRejected)
	}
	return env.Data, nil
}

// parseError maps venue error codes onto the shared sentinels.
func parseError(code int, msg string) error {
	switch code {
	case 100202:
		return apperrors.ErrInsufficientFunds
	case 100410:
		return apperrors.ErrRateLimitExceeded
	case 100413, 100419:
		return apperrors.ErrAuthenticationFailed
	case 100400:
		return apperrors.ErrInvalidOrderParameter
	}
	return fmt.Errorf("bingx error %d: %s", code, msg)
}

// restCall dispatches a request and unpacks the envelope. API errors keep
// their body so venue rejections surface with the original code.
func (e *Exchange) restCall(ctx context.Context, method, path string, params map[string]string) (json.RawMessage, error) {
	var (
		body        []byte
		contentType string
		err         error
	)
	switch method {
	case "GET":
		body, contentType, err = e.http.Get(ctx, path, params)
	case "POST":
		body, contentType, err = e.http.Post(ctx, path, params)
	case "PUT":
		body, contentType, err = e.http.Put(ctx, path, params)
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}

	if err != nil {
		var apiErr *pkghttp.APIError
		if errors.As(err, &apiErr) {
			// Venue rejections arrive as non-200 with the same envelope;
			// map the embedded code before falling back to the raw status.
			if _, decodeErr := e.decode(apiErr.Body, apiErr.ContentType); decodeErr != nil {
				return nil, decodeErr
			}
			return nil, fmt.Errorf("bingx status %d: %s", apiErr.StatusCode, apiErr.Body)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
	}
	return e.decode(body, contentType)
}

type orderAck struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderID"`
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	CumQuoteQty   string `json:"cummulativeQuoteQty"`
	TransactTime  int64  `json:"transactTime"`
}

// PlaceMarketOrder submits a market order for the {SYM}-USDT pair.
func (e *Exchange) PlaceMarketOrder(ctx context.Context, symbol string, side core.Side, qty decimal.Decimal) (*core.OrderResult, error) {
	params := map[string]string{
		"symbol":           Pair(symbol),
		"type":             "MARKET",
		"side":             string(side),
		"quantity":         qty.String(),
		"newClientOrderId": uuid.NewString(),
	}

	data, err := e.restCall(ctx, "POST", pathTradeOrder, params)
	if err != nil {
		return nil, err
	}

	var ack orderAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return nil, fmt.Errorf("failed to decode order ack: %w", err)
	}

	price, err := decimal.NewFromString(ack.Price)
	if err != nil {
		return nil, fmt.Errorf("bad price in order ack: %w", err)
	}
	origQty, err := decimal.NewFromString(ack.OrigQty)
	if err != nil {
		return nil, fmt.Errorf("bad origQty in order ack: %w", err)
	}
	executedQty, err := decimal.NewFromString(ack.ExecutedQty)
	if err != nil {
		return nil, fmt.Errorf("bad executedQty in order ack: %w", err)
	}
	cumQuote, err := decimal.NewFromString(ack.CumQuoteQty)
	if err != nil {
		return nil, fmt.Errorf("bad cummulativeQuoteQty in order ack: %w", err)
	}

	return &core.OrderResult{
		OrderID:       ack.OrderID,
		ClientOrderID: ack.ClientOrderID,
		Symbol:        ack.Symbol,
		Price:         price,
		OrigQty:       origQty,
		ExecutedQty:   executedQty,
		CumQuoteQty:   cumQuote,
		TransactTime:  ack.TransactTime,
	}, nil
}

// SymbolStepSize fetches the minimum base-asset increment of a pair.
func (e *Exchange) SymbolStepSize(ctx context.Context, symbol string) (decimal.Decimal, error) {
	data, err := e.restCall(ctx, "GET", pathCommonSymbols, map[string]string{
		"symbol": Pair(symbol),
	})
	if err != nil {
		return decimal.Zero, err
	}

	var payload struct {
		Symbols []struct {
			Symbol   string  `json:"symbol"`
			StepSize float64 `json:"stepSize"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode symbols: %w", err)
	}

	for _, s := range payload.Symbols {
		if s.Symbol == Pair(symbol) {
			return decimal.NewFromFloat(s.StepSize), nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, symbol)
}

// Klines returns closed candles in chronological order. The venue sends
// rows newest-first as arrays; index 0 is the open time in ms and index 4
// the close price.
func (e *Exchange) Klines(ctx context.Context, symbol, interval string, limit int) ([]core.Candle, error) {
	data, err := e.restCall(ctx, "GET", pathMarketKline, map[string]string{
		"symbol":   Pair(symbol),
		"interval": interval,
		"limit":    fmt.Sprintf("%d", limit),
	})
	if err != nil {
		return nil, err
	}

	var rows [][]json.Number
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode klines: %w", err)
	}

	candles := make([]core.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		openTime, err := row[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("bad kline open time: %w", err)
		}
		closePrice, err := row[4].Float64()
		if err != nil {
			return nil, fmt.Errorf("bad kline close: %w", err)
		}
		candles = append(candles, core.Candle{OpenTime: openTime, Close: closePrice})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
	return candles, nil
}

// CreateListenKey obtains a private-stream session key.
func (e *Exchange) CreateListenKey(ctx context.Context) (string, error) {
	data, err := e.restCall(ctx, "POST", listenKeyPath, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrListenKeyUnavailable, err)
	}

	var payload struct {
		ListenKey string `json:"listenKey"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to decode listen key: %w", err)
	}
	if payload.ListenKey == "" {
		return "", apperrors.ErrListenKeyUnavailable
	}
	return payload.ListenKey, nil
}

// ExtendListenKey refreshes the session key validity window.
func (e *Exchange) ExtendListenKey(ctx context.Context, key string) error {
	_, _, err := e.http.Put(ctx, listenKeyPath, map[string]string{"listenKey": key})
	if err != nil {
		var apiErr *pkghttp.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: status %d", apperrors.ErrListenKeyUnavailable, apiErr.StatusCode)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
	}
	return nil
}
