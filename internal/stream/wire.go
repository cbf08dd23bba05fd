// Package stream maintains the venue websocket connection: socket lifecycle,
// frame dispatch, and the per-channel subscription state machine.
package stream

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// heartbeatToken is the literal payload the venue sends to keep a channel warm.
const heartbeatToken = "hb"

// Venue info codes carried on {"event":"info"} frames.
const (
	infoCodeRestart          = 20051
	infoCodeMaintenanceBegin = 20060
	infoCodeMaintenanceEnd   = 20061
)

// protocolVersion is the wire version this engine speaks.
const protocolVersion = 2

// event is the object-framed control message envelope.
type event struct {
	Event    string          `json:"event"`
	Version  int             `json:"version,omitempty"`
	Code     int             `json:"code,omitempty"`
	Msg      string          `json:"msg,omitempty"`
	ChanID   int64           `json:"chanId,omitempty"`
	Channel  string          `json:"channel,omitempty"`
	Symbol   string          `json:"symbol,omitempty"`
	Key      string          `json:"key,omitempty"`
	Prec     string          `json:"prec,omitempty"`
	Freq     string          `json:"freq,omitempty"`
	Len      string          `json:"len,omitempty"`
	Status   string          `json:"status,omitempty"`
	UserID   int64           `json:"userId,omitempty"`
	Caps     json.RawMessage `json:"caps,omitempty"`
	Platform *platformStatus `json:"platform,omitempty"`
}

type platformStatus struct {
	Status int `json:"status"`
}

type subscribeRequest struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Symbol  string `json:"symbol,omitempty"`
	Prec    string `json:"prec,omitempty"`
	Freq    string `json:"freq,omitempty"`
	Len     string `json:"len,omitempty"`
	Key     string `json:"key,omitempty"`
}

type unsubscribeRequest struct {
	Event  string `json:"event"`
	ChanID int64  `json:"chanId"`
}

type authRequest struct {
	Event       string   `json:"event"`
	APIKey      string   `json:"apiKey"`
	AuthSig     string   `json:"authSig"`
	AuthPayload string   `json:"authPayload"`
	AuthNonce   string   `json:"authNonce"`
	Filter      []string `json:"filter,omitempty"`
}

// isArrayFrame reports whether the frame's JSON root is an array.
func isArrayFrame(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// isHeartbeat reports whether the raw value is the literal heartbeat token.
func isHeartbeat(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return s == heartbeatToken
}
