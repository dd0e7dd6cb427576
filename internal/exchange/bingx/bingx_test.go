package bingx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Julian6262/BingX/internal/config"
	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/pkg/concurrency"
	apperrors "github.com/Julian6262/BingX/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, fields ...interface{})          {}
func (m *mockLogger) Info(msg string, fields ...interface{})           {}
func (m *mockLogger) Warn(msg string, fields ...interface{})           {}
func (m *mockLogger) Error(msg string, fields ...interface{})          {}
func (m *mockLogger) Fatal(msg string, fields ...interface{})          {}
func (m *mockLogger) WithField(k string, v interface{}) core.ILogger   { return m }
func (m *mockLogger) WithFields(f map[string]interface{}) core.ILogger { return m }

func newTestExchange(t *testing.T, handler http.Handler) *Exchange {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := &mockLogger{}
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{Name: "test"}, logger)
	t.Cleanup(pool.Stop)

	cfg := config.TestConfig()
	cfg.Exchange.BaseURL = server.URL
	return New(cfg.Exchange, cfg.Timing, pool, logger)
}

func TestPlaceMarketOrder_Success(t *testing.T) {
	e := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathTradeOrder, r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		q := r.URL.Query()
		assert.Equal(t, "ADA-USDT", q.Get("symbol"))
		assert.Equal(t, "MARKET", q.Get("type"))
		assert.Equal(t, "BUY", q.Get("side"))
		assert.Equal(t, "10", q.Get("quantity"))
		assert.NotEmpty(t, q.Get("newClientOrderId"))
		assert.NotEmpty(t, q.Get("timestamp"))
		assert.NotEmpty(t, q.Get("signature"))
		assert.Equal(t, "test-api-key", r.Header.Get("X-BX-APIKEY"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":{
			"orderId":777,"symbol":"ADA-USDT","price":"1.00",
			"origQty":"10","executedQty":"10",
			"cummulativeQuoteQty":"10.0","transactTime":1700000000000}}`))
	}))

	res, err := e.PlaceMarketOrder(context.Background(), "ADA", core.SideBuy, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(777), res.OrderID)
	assert.True(t, res.Price.Equal(decimal.NewFromInt(1)))
	assert.True(t, res.ExecutedQty.Equal(decimal.NewFromInt(10)))
	assert.True(t, res.CumQuoteQty.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int64(1700000000000), res.TransactTime)
}

func TestPlaceMarketOrder_InsufficientFunds(t *testing.T) {
	e := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":100202,"msg":"Insufficient assets","data":null}`))
	}))

	_, err := e.PlaceMarketOrder(context.Background(), "ADA", core.SideBuy, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
}

func TestRestCall_TextPlainBody(t *testing.T) {
	e := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// BingX declares some JSON bodies as text/plain.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":{"listenKey":"lk-1"}}`))
	}))

	key, err := e.CreateListenKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "lk-1", key)
}

func TestRestCall_UnexpectedContentType(t *testing.T) {
	e := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html></html>`))
	}))

	_, err := e.SymbolStepSize(context.Background(), "ADA")
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedContentType)
}

func TestSymbolStepSize(t *testing.T) {
	e := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathCommonSymbols, r.URL.Path)
		assert.Equal(t, "ADA-USDT", r.URL.Query().Get("symbol"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":{"symbols":[
			{"symbol":"ADA-USDT","stepSize":0.1}]}}`))
	}))

	step, err := e.SymbolStepSize(context.Background(), "ADA")
	require.NoError(t, err)
	assert.True(t, step.Equal(decimal.NewFromFloat(0.1)))
}

func TestSymbolStepSize_NotFound(t *testing.T) {
	e := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":{"symbols":[]}}`))
	}))

	_, err := e.SymbolStepSize(context.Background(), "GHOST")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)
}

func TestKlines_ReversedToChronological(t *testing.T) {
	e := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathMarketKline, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "ADA-USDT", q.Get("symbol"))
		assert.Equal(t, "1m", q.Get("interval"))
		assert.Equal(t, "300", q.Get("limit"))

		// Newest first, as the venue sends them.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":[
			[1700000120000,1.0,1.1,0.9,1.05,100],
			[1700000060000,1.0,1.1,0.9,1.02,100],
			[1700000000000,1.0,1.1,0.9,1.01,100]]}`))
	}))

	candles, err := e.Klines(context.Background(), "ADA", "1m", 300)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, int64(1700000000000), candles[0].OpenTime)
	assert.Equal(t, 1.01, candles[0].Close)
	assert.Equal(t, int64(1700000120000), candles[2].OpenTime)
	assert.Equal(t, 1.05, candles[2].Close)
}

func TestCreateListenKey_Missing(t *testing.T) {
	e := newTestExchange(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","data":{}}`))
	}))

	_, err := e.CreateListenKey(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrListenKeyUnavailable)
}

func TestNetworkErrorIsWrapped(t *testing.T) {
	logger := &mockLogger{}
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{Name: "test"}, logger)
	t.Cleanup(pool.Stop)

	cfg := config.TestConfig()
	cfg.Exchange.BaseURL = "http://127.0.0.1:1" // nothing listens here
	e := New(cfg.Exchange, cfg.Timing, pool, logger)

	_, err := e.CreateListenKey(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrListenKeyUnavailable))
}

func TestInflate(t *testing.T) {
	plain := []byte(`{"data":{"c":"1.0"}}`)
	assert.Equal(t, plain, inflate(plain))
}

func TestParseError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{100202, apperrors.ErrInsufficientFunds},
		{100410, apperrors.ErrRateLimitExceeded},
		{100413, apperrors.ErrAuthenticationFailed},
		{100419, apperrors.ErrAuthenticationFailed},
		{100400, apperrors.ErrInvalidOrderParameter},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, parseError(tt.code, "msg"), tt.want)
	}

	err := parseError(99999, "strange")
	assert.Contains(t, err.Error(), "99999")
}
