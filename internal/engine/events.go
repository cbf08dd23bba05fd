package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/quantfold/venuelink/internal/schema"
	"github.com/quantfold/venuelink/internal/stream"
)

// EventKind names the notification kinds the engine fans out.
type EventKind string

const (
	EventBookUpdated        EventKind = "book_updated"
	EventWalletUpdated      EventKind = "wallet_updated"
	EventOrderUpdated       EventKind = "order_updated"
	EventTradeExecuted      EventKind = "trade_executed"
	EventCandleUpdated      EventKind = "candle_updated"
	EventConnState          EventKind = "conn_state"
	EventMaintenanceChanged EventKind = "maintenance_changed"
	EventEngineError        EventKind = "engine_error"
)

// Event is one engine notification. Only the fields matching the kind are
// populated.
type Event struct {
	Kind  EventKind
	Venue string

	Pair        schema.Pair
	Balance     *schema.Balance
	Order       *schema.Order
	Trade       *schema.Trade
	CandleKey   schema.CandleSeriesKey
	Candle      *schema.Candle
	ConnState   stream.ConnState
	Maintenance bool
	Err         error
}

// Observer receives engine events. Observers must not block for long; the
// dispatch goroutine waits for the fan-out to finish before reading the next
// frame.
type Observer func(Event)

const fanoutWorkers = 4

// observers is the registered set, fanned out over a bounded worker pool.
type observers struct {
	mu  sync.RWMutex
	set map[string]Observer
}

func newObservers() *observers {
	return &observers{set: make(map[string]Observer)}
}

func (o *observers) add(fn Observer) string {
	id := uuid.NewString()
	o.mu.Lock()
	o.set[id] = fn
	o.mu.Unlock()
	return id
}

func (o *observers) remove(id string) {
	o.mu.Lock()
	delete(o.set, id)
	o.mu.Unlock()
}

func (o *observers) emit(ev Event) {
	o.mu.RLock()
	fns := make([]Observer, 0, len(o.set))
	for _, fn := range o.set {
		fns = append(fns, fn)
	}
	o.mu.RUnlock()
	if len(fns) == 0 {
		return
	}
	if len(fns) == 1 {
		fns[0](ev)
		return
	}
	p := pool.New().WithMaxGoroutines(fanoutWorkers)
	for _, fn := range fns {
		fn := fn
		p.Go(func() { fn(ev) })
	}
	p.Wait()
}
