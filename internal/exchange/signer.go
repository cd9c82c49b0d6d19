package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// HMACSigner signs requests with an HMAC-SHA256 of the timestamp, method
// and request path, the scheme most venue REST APIs share.
type HMACSigner struct {
	apiKey    string
	apiSecret string
	now       func() time.Time
}

func NewHMACSigner(apiKey, apiSecret string) *HMACSigner {
	return &HMACSigner{apiKey: apiKey, apiSecret: apiSecret, now: time.Now}
}

func (s *HMACSigner) SignRequest(req *http.Request) error {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(s.apiSecret))
	mac.Write([]byte(ts + req.Method + req.URL.RequestURI()))
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("X-API-TIMESTAMP", ts)
	req.Header.Set("X-API-SIGNATURE", hex.EncodeToString(mac.Sum(nil)))
	return nil
}
