package account

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quantfold/venuelink/internal/schema"
)

var seriesKey = schema.CandleSeriesKey{
	Pair:      schema.NewPair("BTC", "USD"),
	Timeframe: schema.Timeframe1m,
}

func candleAt(ts int64, close int64) schema.Candle {
	price := decimal.NewFromInt(close)
	return schema.Candle{Timestamp: ts, Open: price, High: price, Low: price, Close: price, Volume: decimal.NewFromInt(1)}
}

func timestamps(series []schema.Candle) []int64 {
	out := make([]int64, len(series))
	for i, c := range series {
		out[i] = c.Timestamp
	}
	return out
}

func TestApplyUpdateAppendsNewer(t *testing.T) {
	store := NewCandles()
	store.ApplyUpdate(seriesKey, candleAt(60_000, 10))
	store.ApplyUpdate(seriesKey, candleAt(120_000, 11))
	series := store.Series(seriesKey)
	if len(series) != 2 || series[1].Timestamp != 120_000 {
		t.Fatalf("series = %v", timestamps(series))
	}
}

func TestApplyUpdateReplacesOpenCandle(t *testing.T) {
	store := NewCandles()
	store.ApplyUpdate(seriesKey, candleAt(60_000, 10))
	store.ApplyUpdate(seriesKey, candleAt(60_000, 15))
	series := store.Series(seriesKey)
	if len(series) != 1 {
		t.Fatalf("equal timestamp must replace, got %d candles", len(series))
	}
	if !series[0].Close.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("open candle not replaced: close = %s", series[0].Close)
	}
}

func TestApplyUpdateLateArrivalUpserts(t *testing.T) {
	store := NewCandles()
	store.ApplyUpdate(seriesKey, candleAt(60_000, 10))
	store.ApplyUpdate(seriesKey, candleAt(180_000, 12))
	store.ApplyUpdate(seriesKey, candleAt(120_000, 11))
	series := store.Series(seriesKey)
	got := timestamps(series)
	want := []int64{60_000, 120_000, 180_000}
	if len(got) != len(want) {
		t.Fatalf("series = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("series = %v, want %v", got, want)
		}
	}
}

func TestApplyHistoryReplacesOverlappedRange(t *testing.T) {
	store := NewCandles()
	for _, ts := range []int64{60_000, 120_000, 180_000, 240_000, 300_000} {
		store.ApplyUpdate(seriesKey, candleAt(ts, 1))
	}
	batch := []schema.Candle{candleAt(120_000, 20), candleAt(180_000, 21), candleAt(240_000, 22)}
	store.ApplyHistory(seriesKey, batch)

	series := store.Series(seriesKey)
	if len(series) != 5 {
		t.Fatalf("series length = %d, want 5 (%v)", len(series), timestamps(series))
	}
	if !series[0].Close.Equal(decimal.NewFromInt(1)) || !series[4].Close.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("candles outside the batch span must be untouched")
	}
	if !series[1].Close.Equal(decimal.NewFromInt(20)) || !series[3].Close.Equal(decimal.NewFromInt(22)) {
		t.Fatalf("overlapped range not replaced: %v", series)
	}
}

func TestApplyHistoryIsIdempotent(t *testing.T) {
	store := NewCandles()
	for _, ts := range []int64{60_000, 120_000, 180_000} {
		store.ApplyUpdate(seriesKey, candleAt(ts, 1))
	}
	batch := []schema.Candle{candleAt(120_000, 9)}
	store.ApplyHistory(seriesKey, batch)
	first := store.Series(seriesKey)
	store.ApplyHistory(seriesKey, batch)
	second := store.Series(seriesKey)
	if len(first) != len(second) {
		t.Fatalf("reapplying batch changed length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Timestamp != second[i].Timestamp || !first[i].Close.Equal(second[i].Close) {
			t.Fatalf("series diverged at %d", i)
		}
	}
}

func TestApplyHistoryFillsGap(t *testing.T) {
	store := NewCandles()
	store.ApplyUpdate(seriesKey, candleAt(60_000, 1))
	store.ApplyUpdate(seriesKey, candleAt(300_000, 1))
	store.ApplyHistory(seriesKey, []schema.Candle{candleAt(120_000, 2), candleAt(240_000, 2)})
	got := timestamps(store.Series(seriesKey))
	want := []int64{60_000, 120_000, 240_000, 300_000}
	if len(got) != len(want) {
		t.Fatalf("series = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("series = %v, want %v", got, want)
		}
	}
}

func TestLast(t *testing.T) {
	store := NewCandles()
	if _, ok := store.Last(seriesKey); ok {
		t.Fatalf("Last on empty series should report false")
	}
	store.ApplyUpdate(seriesKey, candleAt(60_000, 1))
	last, ok := store.Last(seriesKey)
	if !ok || last.Timestamp != 60_000 {
		t.Fatalf("Last = %+v, %v", last, ok)
	}
}
