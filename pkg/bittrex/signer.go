package bittrex

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// emptyContentHash is the hex SHA-512 of an empty request body.
var emptyContentHash = ContentHash(nil)

// ContentHash returns the hex SHA-512 digest of body.
func ContentHash(body []byte) string {
	sum := sha512.Sum512(body)
	return hex.EncodeToString(sum[:])
}

// Sign returns the hex HMAC-SHA512 of timestamp+url+method+contentHash keyed by secret.
func Sign(secret, timestamp, url, method, contentHash string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(timestamp + url + method + contentHash))
	return hex.EncodeToString(mac.Sum(nil))
}

// signer attaches authentication headers to bodyless requests.
type signer struct {
	apiKey string
	secret string
	now    func() time.Time
}

// sign must receive the exact URL string the request was built from.
func (s signer) sign(req *http.Request, url string) {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)

	req.Header.Set(HeaderAPIKey, s.apiKey)
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderContentHash, emptyContentHash)
	req.Header.Set(HeaderSignature, Sign(s.secret, ts, url, req.Method, emptyContentHash))
}
