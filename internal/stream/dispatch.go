package stream

import (
	"context"
	"strconv"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/observability"
	"github.com/quantfold/venuelink/internal/wire"
)

// bouncer is the slice of the connection the dispatcher needs to force a
// reconnect.
type bouncer interface {
	Bounce(reason string)
}

// Dispatcher routes every inbound frame: array frames to the subscription
// serving the channel id, object frames through the control-event branch.
// Dispatch runs on the connection's receive goroutine, so frames are applied
// strictly in arrival order.
type Dispatcher struct {
	venue       string
	registry    *Registry
	sink        Sink
	conn        bouncer
	maintenance atomic.Bool
}

// NewDispatcher builds a dispatcher over the registry. BindConn must be
// called before the first frame arrives.
func NewDispatcher(venue string, registry *Registry, sink Sink) *Dispatcher {
	return &Dispatcher{venue: venue, registry: registry, sink: sink}
}

// BindConn attaches the connection used for forced reconnects. Split from the
// constructor because the connection itself needs the dispatch callback.
func (d *Dispatcher) BindConn(conn bouncer) { d.conn = conn }

// Maintenance reports whether the venue has announced a maintenance window.
func (d *Dispatcher) Maintenance() bool { return d.maintenance.Load() }

// Dispatch handles one complete inbound frame.
func (d *Dispatcher) Dispatch(ctx context.Context, frame []byte) {
	if isArrayFrame(frame) {
		d.dispatchChannel(ctx, frame)
		return
	}
	d.dispatchEvent(frame)
}

func (d *Dispatcher) dispatchChannel(ctx context.Context, frame []byte) {
	items, err := wire.Split(d.venue, frame)
	if err != nil || len(items) < 2 {
		d.protocolError("malformed channel frame", err)
		return
	}
	chanID, err := wire.Int(d.venue, items[0])
	if err != nil {
		d.protocolError("non-integer channel id", err)
		return
	}
	sub, ok := d.registry.ByChannel(chanID)
	if !ok {
		// Frames for unknown ids are expected briefly after an unsubscribe
		// or a socket handover and are dropped without noise.
		return
	}
	if err := sub.ParseUpdate(ctx, items[1:]); err != nil {
		// A bad payload poisons only its own frame; the store keeps the
		// state it had before.
		d.sink.OnEngineError(err)
		return
	}
	observability.Telemetry().IncCounter(observability.MetricUpdatesDispatch, 1,
		map[string]string{"venue": d.venue, "key": sub.Key()})
}

func (d *Dispatcher) dispatchEvent(frame []byte) {
	var ev event
	if err := json.Unmarshal(frame, &ev); err != nil {
		d.protocolError("malformed event frame", err)
		return
	}
	switch ev.Event {
	case "error":
		d.sink.OnEngineError(errs.New(d.venue, errs.CodeExchange,
			errs.WithMessage("venue error event"),
			errs.WithRawCode(strconv.Itoa(ev.Code)), errs.WithRawMessage(ev.Msg)))
	case "info":
		d.handleInfo(ev)
	case "auth":
		d.handleConfirmation(ev)
	case "subscribed":
		d.handleConfirmation(ev)
	case "unsubscribed":
		d.registry.DeactivateChannel(ev.ChanID)
	case "conf", "pong":
		// acknowledged, nothing to route
	default:
		observability.Log().Debug("unhandled event frame",
			observability.F("event", ev.Event))
	}
}

// handleInfo reacts to venue lifecycle notices: version handshake on connect,
// restart requests, and maintenance window boundaries.
func (d *Dispatcher) handleInfo(ev event) {
	if ev.Version != 0 && ev.Version != protocolVersion {
		d.sink.OnEngineError(errs.New(d.venue, errs.CodeProtocol,
			errs.WithMessage("unsupported protocol version")))
		d.bounce("protocol version mismatch")
		return
	}
	switch ev.Code {
	case 0:
		// plain connect greeting
	case infoCodeRestart:
		observability.Log().Info("venue requested reconnect")
		d.bounce("venue restart")
	case infoCodeMaintenanceBegin:
		d.maintenance.Store(true)
		d.sink.OnMaintenance(true)
	case infoCodeMaintenanceEnd:
		d.maintenance.Store(false)
		d.sink.OnMaintenance(false)
		// channels need a fresh snapshot after maintenance
		d.bounce("maintenance ended")
	default:
		observability.Log().Debug("unhandled info code",
			observability.F("code", ev.Code))
	}
}

// handleConfirmation matches a subscribed or auth response to the pending
// subscription by its discriminating parameters and records the channel id.
func (d *Dispatcher) handleConfirmation(ev event) {
	sub, ok := d.registry.MatchPending(ev)
	if !ok {
		observability.Log().Warn("confirmation without pending subscription",
			observability.F("event", ev.Event),
			observability.F("channel", ev.Channel),
			observability.F("chanId", ev.ChanID))
		return
	}
	if err := sub.ParseResponse(ev); err != nil {
		d.sink.OnEngineError(err)
		return
	}
	d.registry.Activate(ev.ChanID, sub)
}

func (d *Dispatcher) protocolError(msg string, cause error) {
	observability.Telemetry().IncCounter(observability.MetricProtocolErrors, 1,
		map[string]string{"venue": d.venue})
	opts := []errs.Option{errs.WithMessage(msg)}
	if cause != nil {
		opts = append(opts, errs.WithCause(cause))
	}
	d.sink.OnEngineError(errs.New(d.venue, errs.CodeProtocol, opts...))
}

func (d *Dispatcher) bounce(reason string) {
	if d.conn != nil {
		d.conn.Bounce(reason)
	}
}
