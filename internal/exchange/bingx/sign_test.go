package bingx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner(secret string) *Signer {
	s := NewSigner("api-key", secret)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

// referenceSignature computes HMAC-SHA256(secret, join("&", sort(k=v)))
// independently of the implementation under test.
func referenceSignature(secret string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+url.QueryEscape(params[k]))
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func signedRequest(t *testing.T, s *Signer, path string, params map[string]string) *http.Request {
	t.Helper()
	req, err := http.NewRequest("POST", "https://open-api.bingx.com"+path, nil)
	require.NoError(t, err)
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	require.NoError(t, s.SignRequest(req))
	return req
}

func TestSigner_SignatureMatchesReference(t *testing.T) {
	secret := "my-secret"
	s := fixedSigner(secret)

	params := map[string]string{
		"symbol":   "ADA-USDT",
		"type":     "MARKET",
		"side":     "BUY",
		"quantity": "10",
	}
	req := signedRequest(t, s, "/openApi/spot/v1/trade/order", params)

	withTimestamp := map[string]string{"timestamp": "1700000000000"}
	for k, v := range params {
		withTimestamp[k] = v
	}

	got := req.URL.Query().Get("signature")
	assert.Equal(t, referenceSignature(secret, withTimestamp), got)
	assert.Equal(t, "api-key", req.Header.Get("X-BX-APIKEY"))
}

func TestSigner_SignatureIsLowercaseHex(t *testing.T) {
	s := fixedSigner("secret")
	req := signedRequest(t, s, "/openApi/spot/v1/trade/order",
		map[string]string{"symbol": "BTC-USDT"})

	sig := req.URL.Query().Get("signature")
	assert.Len(t, sig, 64)
	assert.Equal(t, strings.ToLower(sig), sig)
}

func TestSigner_CanonicalOrderIsKeyLex(t *testing.T) {
	s := fixedSigner("secret")

	// Same parameters inserted in opposite orders must sign identically.
	reqA, err := http.NewRequest("GET", "https://open-api.bingx.com/openApi/spot/v2/market/kline", nil)
	require.NoError(t, err)
	reqA.URL.RawQuery = "symbol=ADA-USDT&interval=1m&limit=300"
	require.NoError(t, s.SignRequest(reqA))

	reqB, err := http.NewRequest("GET", "https://open-api.bingx.com/openApi/spot/v2/market/kline", nil)
	require.NoError(t, err)
	reqB.URL.RawQuery = "limit=300&interval=1m&symbol=ADA-USDT"
	require.NoError(t, s.SignRequest(reqB))

	assert.Equal(t,
		reqA.URL.Query().Get("signature"),
		reqB.URL.Query().Get("signature"))
}

func TestSigner_KeepsExistingTimestamp(t *testing.T) {
	s := fixedSigner("secret")
	req := signedRequest(t, s, "/openApi/spot/v1/trade/order",
		map[string]string{"timestamp": "123456789"})

	assert.Equal(t, "123456789", req.URL.Query().Get("timestamp"))
}

func TestSigner_SignatureIsLastParameter(t *testing.T) {
	s := fixedSigner("secret")
	req := signedRequest(t, s, "/openApi/spot/v1/trade/order",
		map[string]string{"symbol": "ADA-USDT"})

	assert.True(t, strings.Contains(req.URL.RawQuery, "&signature="))
	assert.True(t, strings.HasSuffix(req.URL.RawQuery,
		"signature="+req.URL.Query().Get("signature")))
}

func TestSigner_ListenKeyRequestsUnsigned(t *testing.T) {
	s := fixedSigner("secret")
	req := signedRequest(t, s, "/openApi/user/auth/userDataStream", nil)

	assert.Equal(t, "api-key", req.Header.Get("X-BX-APIKEY"))
	assert.Empty(t, req.URL.Query().Get("signature"))
	assert.Empty(t, req.URL.Query().Get("timestamp"))
}
