package stream

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/book"
	"github.com/quantfold/venuelink/internal/schema"
	"github.com/quantfold/venuelink/internal/wire"
)

// BookOptions tune the order book channel subscription.
type BookOptions struct {
	Precision string // price aggregation, "P0".."P4"
	Frequency string // "F0" realtime, "F1" throttled
	Length    string // requested depth per side
}

func (o *BookOptions) normalize() {
	if o.Precision == "" {
		o.Precision = "P0"
	}
	if o.Frequency == "" {
		o.Frequency = "F0"
	}
	if o.Length == "" {
		o.Length = "25"
	}
}

type bookVariant struct {
	venue string
	pair  schema.Pair
	opts  BookOptions
	store *book.Store
	sink  Sink
}

// NewOrderBookSubscription builds the order book channel subscription for a
// pair, feeding the shared book store.
func NewOrderBookSubscription(venue string, conn Sender, pair schema.Pair, opts BookOptions, store *book.Store, sink Sink) *Subscription {
	opts.normalize()
	return newSubscription(venue, conn, &bookVariant{
		venue: venue,
		pair:  pair,
		opts:  opts,
		store: store,
		sink:  sink,
	})
}

// BookSubscriptionKey is the registry identity of a book subscription.
func BookSubscriptionKey(pair schema.Pair) string { return "book|" + pair.Symbol() }

func (v *bookVariant) key() string { return BookSubscriptionKey(v.pair) }

func (v *bookVariant) subscribePayload() (any, error) {
	return subscribeRequest{
		Event:   "subscribe",
		Channel: "book",
		Symbol:  v.pair.Symbol(),
		Prec:    v.opts.Precision,
		Freq:    v.opts.Frequency,
		Len:     v.opts.Length,
	}, nil
}

func (v *bookVariant) matchesResponse(ev event) bool {
	return ev.Channel == "book" && ev.Symbol == v.pair.Symbol()
}

func (v *bookVariant) onResponse(event) error { return nil }

func (v *bookVariant) heartbeat() {}

func (v *bookVariant) parsePayload(_ context.Context, items []json.RawMessage) error {
	if len(items) != 1 {
		return errs.New(v.venue, errs.CodeData, errs.WithMessage("book frame arity"))
	}
	payload := items[0]
	if wire.IsNestedArray(payload) {
		rows, err := wire.Split(v.venue, payload)
		if err != nil {
			return err
		}
		levels := make([]book.SignedLevel, 0, len(rows))
		for _, row := range rows {
			level, err := wire.BookLevel(v.venue, row)
			if err != nil {
				return err
			}
			levels = append(levels, level)
		}
		if err := v.store.ApplySnapshot(v.pair, levels); err != nil {
			return err
		}
		v.sink.OnBookUpdated(v.pair)
		return nil
	}
	level, err := wire.BookLevel(v.venue, payload)
	if err != nil {
		return err
	}
	if err := v.store.ApplyIncrement(v.pair, level); err != nil {
		return err
	}
	v.sink.OnBookUpdated(v.pair)
	return nil
}
