package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorStringIncludesVenueAndCode(t *testing.T) {
	err := New("bitfinex", CodeHTTP, WithHTTP(500), WithMessage("internal error"))
	got := err.Error()
	want := `venue=bitfinex code=http http=500 message="internal error"`
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorStringDefaultsUnknown(t *testing.T) {
	err := New("", "")
	if got := err.Error(); got != "venue=unknown code=unknown" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := New("bitfinex", CodeTransport, WithCause(cause))
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should match the wrapped cause")
	}
}

func TestCodeOfWalksWrapChain(t *testing.T) {
	inner := New("bitfinex", CodeData, WithMessage("zero-count snapshot level"))
	wrapped := fmt.Errorf("apply snapshot: %w", inner)
	if got := CodeOf(wrapped); got != CodeData {
		t.Fatalf("CodeOf() = %q, want %q", got, CodeData)
	}
	if !IsData(wrapped) {
		t.Fatalf("IsData should be true for wrapped data error")
	}
}

func TestCodeOfNonEnvelope(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("CodeOf(plain) = %q, want empty", got)
	}
	if IsTransport(nil) {
		t.Fatalf("IsTransport(nil) should be false")
	}
}

func TestRawFieldsQuoted(t *testing.T) {
	err := New("bitfinex", CodeExchange, WithRawCode(" 10100 "), WithRawMessage("apikey: invalid"))
	got := err.Error()
	want := `venue=bitfinex code=exchange_error raw_code="10100" raw_msg="apikey: invalid"`
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
