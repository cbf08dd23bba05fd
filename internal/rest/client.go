// Package rest is the signed, throttled HTTP client for the venue's REST
// surface. Every request across every endpoint shares one throttle so the
// engine never exceeds the venue's pacing allowance.
package rest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/auth"
	"github.com/quantfold/venuelink/internal/observability"
)

const (
	defaultPublicURL  = "https://api-pub.bitfinex.com"
	defaultPrivateURL = "https://api.bitfinex.com"
	defaultTimeout    = 10 * time.Second
	// defaultRequestsPerSecond stays under the venue's 90-per-minute budget.
	defaultRequestsPerSecond = 1.5

	headerNonce     = "bfx-nonce"
	headerAPIKey    = "bfx-apikey"
	headerSignature = "bfx-signature"
)

// Config carries the REST client settings.
type Config struct {
	Venue             string
	PublicURL         string
	PrivateURL        string
	RequestsPerSecond float64
	Timeout           time.Duration
	Credentials       auth.Credentials
	HTTPClient        *http.Client
}

func (c *Config) normalize() {
	if c.PublicURL == "" {
		c.PublicURL = defaultPublicURL
	}
	if c.PrivateURL == "" {
		c.PrivateURL = defaultPrivateURL
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	c.PrivateURL = strings.TrimRight(c.PrivateURL, "/")
}

// Client issues venue REST calls. One mutex serializes the
// wait-throttle-then-send sequence, so N calls take at least (N-1)/rate
// seconds regardless of the calling goroutine count.
type Client struct {
	cfg    Config
	http   *http.Client
	limit  *rate.Limiter
	nonces *auth.NonceSource

	mu sync.Mutex
}

// New builds a client. The nonce source is shared with the websocket auth
// handshake so both surfaces draw from one increasing sequence.
func New(cfg Config, nonces *auth.NonceSource) *Client {
	cfg.normalize()
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if nonces == nil {
		nonces = auth.NewNonceSource()
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		limit:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		nonces: nonces,
	}
}

// getPublic issues an unauthenticated GET against the public host. path is
// relative to /v2/.
func (c *Client) getPublic(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.cfg.PublicURL + "/v2/" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.New(c.cfg.Venue, errs.CodeInvalid,
			errs.WithMessage("build request"), errs.WithCause(err))
	}
	return c.do(req)
}

// postPrivate issues a signed POST against the authenticated host. path is
// relative to /v2/, e.g. "auth/r/wallets". The signature covers
// "/api/v2/" + path + nonce + body.
func (c *Client) postPrivate(ctx context.Context, path string, body any) ([]byte, error) {
	if !c.cfg.Credentials.Configured() {
		return nil, errs.New(c.cfg.Venue, errs.CodeAuth, errs.WithMessage("api credentials not configured"))
	}
	encoded := []byte("{}")
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, errs.New(c.cfg.Venue, errs.CodeInvalid,
				errs.WithMessage("marshal request body"), errs.WithCause(err))
		}
	}
	nonce := c.nonces.NextString()
	signaturePayload := "/api/v2/" + path + nonce + string(encoded)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.PrivateURL+"/v2/"+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, errs.New(c.cfg.Venue, errs.CodeInvalid,
			errs.WithMessage("build request"), errs.WithCause(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerNonce, nonce)
	req.Header.Set(headerAPIKey, c.cfg.Credentials.Key)
	req.Header.Set(headerSignature, auth.SignHex(c.cfg.Credentials.Secret, signaturePayload))
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	c.mu.Lock()
	start := time.Now()
	if err := c.limit.Wait(req.Context()); err != nil {
		c.mu.Unlock()
		return nil, errs.New(c.cfg.Venue, errs.CodeTransport,
			errs.WithMessage("throttle wait interrupted"), errs.WithCause(err))
	}
	observability.Telemetry().ObserveHistogram(observability.MetricRESTThrottleWait,
		time.Since(start).Seconds(), map[string]string{"venue": c.cfg.Venue})
	resp, err := c.http.Do(req)
	c.mu.Unlock()

	observability.Telemetry().IncCounter(observability.MetricRESTRequests, 1,
		map[string]string{"venue": c.cfg.Venue, "method": req.Method})
	if err != nil {
		return nil, errs.New(c.cfg.Venue, errs.CodeTransport,
			errs.WithMessage("http request"), errs.WithCause(err))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(c.cfg.Venue, errs.CodeTransport,
			errs.WithMessage("read response body"), errs.WithCause(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp.StatusCode, data)
	}
	return data, nil
}

// statusError shapes a non-2xx reply into the error taxonomy, pulling the
// venue's ["error", code, message] triple out of the body when present.
func (c *Client) statusError(status int, body []byte) error {
	code := errs.CodeHTTP
	switch status {
	case http.StatusTooManyRequests:
		code = errs.CodeRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		code = errs.CodeAuth
	case http.StatusNotFound:
		code = errs.CodeNotFound
	}
	opts := []errs.Option{errs.WithMessage("venue rejected request"), errs.WithHTTP(status)}
	var triple []json.RawMessage
	if err := json.Unmarshal(body, &triple); err == nil && len(triple) == 3 {
		var kind string
		if json.Unmarshal(triple[0], &kind) == nil && kind == "error" {
			var rawCode int64
			if json.Unmarshal(triple[1], &rawCode) == nil {
				opts = append(opts, errs.WithRawCode(strconv.FormatInt(rawCode, 10)))
			}
			var rawMsg string
			if json.Unmarshal(triple[2], &rawMsg) == nil {
				opts = append(opts, errs.WithRawMessage(rawMsg))
			}
		}
	}
	return errs.New(c.cfg.Venue, code, opts...)
}
