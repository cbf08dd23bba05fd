// Package auth computes venue request signatures and strictly increasing
// nonces shared by the REST client and the private websocket handshake.
package auth

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strconv"
	"sync"
	"time"
)

// Credentials carries the venue API key pair.
type Credentials struct {
	Key    string
	Secret string
}

// Configured reports whether both halves of the key pair are present.
func (c Credentials) Configured() bool {
	return c.Key != "" && c.Secret != ""
}

// SignHex computes the hex-encoded HMAC-SHA384 of payload under secret, the
// keyed hash the venue expects on private calls.
func SignHex(secret, payload string) string {
	mac := hmac.New(sha512.New384, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// NonceSource issues strictly increasing nonces for the process lifetime.
// The counter seeds from a high-resolution clock so restarts keep moving
// forward, then bumps monotonically under its own lock.
type NonceSource struct {
	mu   sync.Mutex
	last int64
}

// NewNonceSource seeds a nonce source from the current time.
func NewNonceSource() *NonceSource {
	return &NonceSource{last: time.Now().UnixMicro()}
}

// Next returns the next nonce.
func (n *NonceSource) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now().UnixMicro()
	if now <= n.last {
		now = n.last + 1
	}
	n.last = now
	return now
}

// NextString returns the next nonce formatted for a header or payload.
func (n *NonceSource) NextString() string {
	return strconv.FormatInt(n.Next(), 10)
}
