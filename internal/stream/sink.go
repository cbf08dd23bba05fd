package stream

import (
	"github.com/quantfold/venuelink/internal/schema"
)

// Sink receives the engine-facing notifications the stream layer raises.
// The facade fans these out to registered observers.
type Sink interface {
	OnConnState(state ConnState)
	OnEngineError(err error)
	OnMaintenance(active bool)
	OnBookUpdated(pair schema.Pair)
	OnWalletUpdated(balance schema.Balance)
	OnOrderUpdated(order schema.Order)
	OnTradeExecuted(trade schema.Trade)
	OnCandleUpdated(key schema.CandleSeriesKey, candle schema.Candle)
}

// NoopSink discards every notification. Useful as a test default.
type NoopSink struct{}

func (NoopSink) OnConnState(ConnState)                             {}
func (NoopSink) OnEngineError(error)                               {}
func (NoopSink) OnMaintenance(bool)                                {}
func (NoopSink) OnBookUpdated(schema.Pair)                         {}
func (NoopSink) OnWalletUpdated(schema.Balance)                    {}
func (NoopSink) OnOrderUpdated(schema.Order)                       {}
func (NoopSink) OnTradeExecuted(schema.Trade)                      {}
func (NoopSink) OnCandleUpdated(schema.CandleSeriesKey, schema.Candle) {}
