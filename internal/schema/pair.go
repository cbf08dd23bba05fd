// Package schema defines the domain types mirrored from the trading venue.
package schema

import (
	"strings"

	"github.com/quantfold/venuelink/errs"
)

// Pair identifies a traded currency pair. It has value equality and is used
// as a map key throughout the engine.
type Pair struct {
	Base  string
	Quote string
}

// NewPair builds a normalized pair from base and quote symbols.
func NewPair(base, quote string) Pair {
	return Pair{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		Quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// ParseSymbol decodes a venue trading symbol such as "tBTCUSD" or
// "tDOGE:USD" into a Pair. The leading market-type letter is optional.
func ParseSymbol(symbol string) (Pair, error) {
	s := strings.TrimSpace(symbol)
	if len(s) > 0 && (s[0] == 't' || s[0] == 'f') && len(s) > 4 {
		s = s[1:]
	}
	if idx := strings.IndexByte(s, ':'); idx > 0 {
		base := s[:idx]
		quote := s[idx+1:]
		if base == "" || quote == "" {
			return Pair{}, errs.New("", errs.CodeData, errs.WithMessage("malformed symbol "+symbol))
		}
		return NewPair(base, quote), nil
	}
	if len(s) != 6 {
		return Pair{}, errs.New("", errs.CodeData, errs.WithMessage("malformed symbol "+symbol))
	}
	return NewPair(s[:3], s[3:]), nil
}

// Symbol renders the pair as a venue trading symbol.
func (p Pair) Symbol() string {
	if len(p.Base) > 3 || len(p.Quote) > 3 {
		return "t" + p.Base + ":" + p.Quote
	}
	return "t" + p.Base + p.Quote
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool { return p.Base == "" && p.Quote == "" }

func (p Pair) String() string { return p.Base + "/" + p.Quote }
