package bingx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const listenKeyPath = "/openApi/user/auth/userDataStream"

// Signer implements pkg/http.Signer for BingX: the query string is
// canonicalized by ASCII key order, HMAC-SHA256 signed with the secret
// key, and the lowercase-hex signature appended as the final parameter.
// Listen-key requests carry the API-key header but stay unsigned.
type Signer struct {
	apiKey    string
	secretKey string
	now       func() time.Time
}

func NewSigner(apiKey, secretKey string) *Signer {
	return &Signer{apiKey: apiKey, secretKey: secretKey, now: time.Now}
}

func (s *Signer) SignRequest(req *http.Request) error {
	req.Header.Set("X-BX-APIKEY", s.apiKey)

	if strings.HasPrefix(req.URL.Path, listenKeyPath) {
		return nil
	}

	q := req.URL.Query()
	if q.Get("timestamp") == "" {
		q.Set("timestamp", fmt.Sprintf("%d", s.now().UnixMilli()))
	}

	// Encode sorts keys lexicographically, which is exactly the venue's
	// canonical form. The signature itself must stay the last parameter
	// and outside the canonical string.
	canonical := q.Encode()
	req.URL.RawQuery = canonical + "&signature=" + s.sign(canonical)
	return nil
}

func (s *Signer) sign(canonical string) string {
	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
