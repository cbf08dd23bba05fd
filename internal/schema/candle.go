package schema

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quantfold/venuelink/errs"
)

// Candle is one OHLCV bucket. Timestamp is venue epoch milliseconds for the
// bucket open.
type Candle struct {
	Timestamp int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Timeframe names a candle bucket width as the venue spells it.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe3h  Timeframe = "3h"
	Timeframe6h  Timeframe = "6h"
	Timeframe12h Timeframe = "12h"
	Timeframe1D  Timeframe = "1D"
	Timeframe1W  Timeframe = "7D"
	Timeframe2W  Timeframe = "14D"
	Timeframe1M  Timeframe = "1M"
)

var knownTimeframes = map[Timeframe]struct{}{
	Timeframe1m: {}, Timeframe5m: {}, Timeframe15m: {}, Timeframe30m: {},
	Timeframe1h: {}, Timeframe3h: {}, Timeframe6h: {}, Timeframe12h: {},
	Timeframe1D: {}, Timeframe1W: {}, Timeframe2W: {}, Timeframe1M: {},
}

// ParseTimeframe validates a raw timeframe string.
func ParseTimeframe(raw string) (Timeframe, error) {
	tf := Timeframe(strings.TrimSpace(raw))
	if _, ok := knownTimeframes[tf]; !ok {
		return "", errs.New("", errs.CodeInvalid, errs.WithMessage("unknown timeframe "+raw))
	}
	return tf, nil
}

// CandleSeriesKey identifies one candle time series.
type CandleSeriesKey struct {
	Pair      Pair
	Timeframe Timeframe
}

// ChannelKey renders the venue candle channel key, e.g. "trade:1m:tBTCUSD".
func (k CandleSeriesKey) ChannelKey() string {
	return "trade:" + string(k.Timeframe) + ":" + k.Pair.Symbol()
}
