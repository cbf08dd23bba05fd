package schema

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSymbol(t *testing.T) {
	cases := []struct {
		in      string
		want    Pair
		wantErr bool
	}{
		{in: "tBTCUSD", want: NewPair("BTC", "USD")},
		{in: "BTCUSD", want: NewPair("BTC", "USD")},
		{in: "tDOGE:USD", want: NewPair("DOGE", "USD")},
		{in: "DOGE:USD", want: NewPair("DOGE", "USD")},
		{in: "fUSD", wantErr: true},
		{in: "", wantErr: true},
		{in: ":USD", wantErr: true},
		{in: "BTC:", wantErr: true},
		{in: "BTCUS", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseSymbol(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseSymbol(%q) expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSymbol(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSymbol(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSymbolRoundTrip(t *testing.T) {
	for _, pair := range []Pair{NewPair("BTC", "USD"), NewPair("DOGE", "USD"), NewPair("MATIC", "USDT")} {
		parsed, err := ParseSymbol(pair.Symbol())
		if err != nil {
			t.Fatalf("round trip %v: %v", pair, err)
		}
		if parsed != pair {
			t.Fatalf("round trip %v = %v", pair, parsed)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]OrderStatus{
		"ACTIVE":                            OrderStatusActive,
		"EXECUTED @ 30000.0(0.5)":           OrderStatusExecuted,
		"PARTIALLY FILLED @ 30000.0(0.25)":  OrderStatusPartiallyFilled,
		"CANCELED":                          OrderStatusCanceled,
		"CANCELED was: PARTIALLY FILLED":    OrderStatusCanceled,
		"POSTONLY CANCELED but not leading": OrderStatusUnknown,
		"":                                  OrderStatusUnknown,
	}
	for raw, want := range cases {
		if got := ParseOrderStatus(raw); got != want {
			t.Errorf("ParseOrderStatus(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseTimeframe(t *testing.T) {
	if _, err := ParseTimeframe("1m"); err != nil {
		t.Fatalf("1m must parse: %v", err)
	}
	if _, err := ParseTimeframe("2m"); err == nil {
		t.Fatalf("unknown timeframe must error")
	}
}

func TestCandleSeriesChannelKey(t *testing.T) {
	key := CandleSeriesKey{Pair: NewPair("BTC", "USD"), Timeframe: Timeframe1m}
	if got := key.ChannelKey(); got != "trade:1m:tBTCUSD" {
		t.Fatalf("ChannelKey() = %s", got)
	}
}

func TestOrderSideFromOriginalAmount(t *testing.T) {
	buy := Order{AmountOrig: decimal.NewFromInt(1)}
	sell := Order{AmountOrig: decimal.NewFromInt(-1)}
	if buy.Side() != TradeSideBuy || sell.Side() != TradeSideSell {
		t.Fatalf("sides = %v/%v", buy.Side(), sell.Side())
	}
}
