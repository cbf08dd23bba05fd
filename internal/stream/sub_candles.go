package stream

import (
	"context"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/account"
	"github.com/quantfold/venuelink/internal/schema"
	"github.com/quantfold/venuelink/internal/wire"
)

type candleVariant struct {
	venue string
	key_  schema.CandleSeriesKey
	store *account.Candles
	sink  Sink
}

// NewCandleSubscription builds the candle channel subscription for one
// (pair, timeframe) series.
func NewCandleSubscription(venue string, conn Sender, key schema.CandleSeriesKey, store *account.Candles, sink Sink) *Subscription {
	return newSubscription(venue, conn, &candleVariant{
		venue: venue,
		key_:  key,
		store: store,
		sink:  sink,
	})
}

// CandleSubscriptionKey is the registry identity of a candle subscription.
func CandleSubscriptionKey(key schema.CandleSeriesKey) string {
	return "candles|" + key.ChannelKey()
}

func (v *candleVariant) key() string { return CandleSubscriptionKey(v.key_) }

func (v *candleVariant) subscribePayload() (any, error) {
	return subscribeRequest{
		Event:   "subscribe",
		Channel: "candles",
		Key:     v.key_.ChannelKey(),
	}, nil
}

func (v *candleVariant) matchesResponse(ev event) bool {
	return ev.Channel == "candles" && ev.Key == v.key_.ChannelKey()
}

func (v *candleVariant) onResponse(event) error { return nil }

func (v *candleVariant) heartbeat() {}

func (v *candleVariant) parsePayload(_ context.Context, items []json.RawMessage) error {
	if len(items) != 1 {
		return errs.New(v.venue, errs.CodeData, errs.WithMessage("candle frame arity"))
	}
	payload := items[0]
	if wire.IsNestedArray(payload) {
		rows, err := wire.Split(v.venue, payload)
		if err != nil {
			return err
		}
		batch := make([]schema.Candle, 0, len(rows))
		for _, row := range rows {
			candle, err := wire.Candle(v.venue, row)
			if err != nil {
				return err
			}
			batch = append(batch, candle)
		}
		// venue snapshots arrive newest first; the series wants oldest first
		sort.Slice(batch, func(i, j int) bool { return batch[i].Timestamp < batch[j].Timestamp })
		v.store.ApplyHistory(v.key_, batch)
		if len(batch) > 0 {
			v.sink.OnCandleUpdated(v.key_, batch[len(batch)-1])
		}
		return nil
	}
	candle, err := wire.Candle(v.venue, payload)
	if err != nil {
		return err
	}
	v.store.ApplyUpdate(v.key_, candle)
	v.sink.OnCandleUpdated(v.key_, candle)
	return nil
}
