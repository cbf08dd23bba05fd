package account

import (
	"sort"
	"sync"

	"github.com/quantfold/venuelink/internal/schema"
)

// Candles stores one ordered time series per (pair, timeframe). Timestamps
// are strictly increasing within a series; gaps are valid.
type Candles struct {
	mu     sync.RWMutex
	series map[schema.CandleSeriesKey][]schema.Candle
}

// NewCandles creates an empty candle store.
func NewCandles() *Candles {
	return &Candles{series: make(map[schema.CandleSeriesKey][]schema.Candle)}
}

// ApplyUpdate folds a single streamed candle into its series: newer than the
// tail appends, an equal timestamp replaces the still-open tail candle, and a
// late arrival is upserted at its sorted position.
func (c *Candles) ApplyUpdate(key schema.CandleSeriesKey, candle schema.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	series := c.series[key]
	n := len(series)
	if n == 0 || candle.Timestamp > series[n-1].Timestamp {
		c.series[key] = append(series, candle)
		return
	}
	if candle.Timestamp == series[n-1].Timestamp {
		series[n-1] = candle
		return
	}
	idx := sort.Search(n, func(i int) bool { return series[i].Timestamp >= candle.Timestamp })
	if idx < n && series[idx].Timestamp == candle.Timestamp {
		series[idx] = candle
		return
	}
	series = append(series, schema.Candle{})
	copy(series[idx+1:], series[idx:])
	series[idx] = candle
	c.series[key] = series
}

// ApplyHistory splices a historical batch, sorted oldest to newest, into the
// series: the existing sub-range covered by the batch's timestamp span is
// removed and the batch takes its place. Re-applying the same batch is
// idempotent.
func (c *Candles) ApplyHistory(key schema.CandleSeriesKey, batch []schema.Candle) {
	if len(batch) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	series := c.series[key]
	first := batch[0].Timestamp
	last := batch[len(batch)-1].Timestamp
	lo := sort.Search(len(series), func(i int) bool { return series[i].Timestamp >= first })
	hi := sort.Search(len(series), func(i int) bool { return series[i].Timestamp > last })

	merged := make([]schema.Candle, 0, lo+len(batch)+len(series)-hi)
	merged = append(merged, series[:lo]...)
	merged = append(merged, batch...)
	merged = append(merged, series[hi:]...)
	c.series[key] = merged
}

// Series returns a copy of the stored series for the key.
func (c *Candles) Series(key schema.CandleSeriesKey) []schema.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]schema.Candle(nil), c.series[key]...)
}

// Last returns the most recent candle in the series.
func (c *Candles) Last(key schema.CandleSeriesKey) (schema.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series := c.series[key]
	if len(series) == 0 {
		return schema.Candle{}, false
	}
	return series[len(series)-1], true
}
