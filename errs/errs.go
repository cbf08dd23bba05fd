// Package errs provides structured error types shared across the venuelink engine.
package errs

import (
	"strconv"
	"strings"
)

// Code identifies a failure category from the engine's error taxonomy.
type Code string

const (
	// CodeTransport indicates a socket-level failure: connect error, mid-stream
	// read/write error, or an oversized frame. Always recoverable by reconnect.
	CodeTransport Code = "transport"
	// CodeProtocol indicates a malformed or unexpected wire message: unknown
	// message kind, protocol version mismatch, binary frame.
	CodeProtocol Code = "protocol"
	// CodeData indicates a malformed payload scoped to a single update; store
	// state is left untouched.
	CodeData Code = "data"
	// CodeHTTP indicates a non-2xx REST reply, surfaced to the caller.
	CodeHTTP Code = "http"
	// CodeAuth indicates a venue-reported authentication failure.
	CodeAuth Code = "auth"
	// CodeRateLimited indicates the venue rejected a request for pacing reasons.
	CodeRateLimited Code = "rate_limited"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeExchange indicates a venue-side failure reported in-band.
	CodeExchange Code = "exchange_error"
	// CodeNotFound indicates a missing resource.
	CodeNotFound Code = "not_found"
)

// E captures structured error information produced across the engine.
type E struct {
	Venue   string
	Code    Code
	HTTP    int
	RawCode string
	RawMsg  string
	Message string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the venue and failure category.
func New(venue string, code Code, opts ...Option) *E {
	e := &E{
		Venue: strings.TrimSpace(venue),
		Code:  code,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithRawCode captures the raw venue error code.
func WithRawCode(code string) Option {
	trimmed := strings.TrimSpace(code)
	return func(e *E) {
		e.RawCode = trimmed
	}
}

// WithRawMessage captures the raw venue error message.
func WithRawMessage(msg string) Option {
	return func(e *E) {
		e.RawMsg = msg
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	venue := strings.TrimSpace(e.Venue)
	if venue == "" {
		venue = "unknown"
	}
	parts = append(parts, "venue="+venue)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RawCode != "" {
		parts = append(parts, "raw_code="+strconv.Quote(e.RawCode))
	}
	if e.RawMsg != "" {
		parts = append(parts, "raw_msg="+strconv.Quote(e.RawMsg))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the taxonomy code from err, walking the wrap chain.
func CodeOf(err error) Code {
	for err != nil {
		if envelope, ok := err.(*E); ok {
			return envelope.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}

// IsTransport reports whether err carries the transport failure code.
func IsTransport(err error) bool { return CodeOf(err) == CodeTransport }

// IsData reports whether err carries the per-update data failure code.
func IsData(err error) bool { return CodeOf(err) == CodeData }
