package stream

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/quantfold/venuelink/errs"
)

// State tracks where a subscription sits in its lifecycle.
type State int32

const (
	StateInitial State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Sender is the outbound half of the connection as subscriptions see it.
type Sender interface {
	Send(ctx context.Context, v any) error
	Generation() uint64
	IsOpen() bool
}

// variant supplies the channel-specific half of a subscription. The set is
// closed: order book, candles, and the authenticated account channel.
type variant interface {
	// key returns the de-duplication identity: kind plus discriminating
	// parameters, never the channel id.
	key() string
	// subscribePayload builds the outbound subscribe or auth frame.
	subscribePayload() (any, error)
	// matchesResponse reports whether a subscribed/auth response belongs to
	// this variant, matched on discriminating parameters.
	matchesResponse(ev event) bool
	// onResponse lets the variant record response details. Returning an
	// error keeps the subscription in Starting.
	onResponse(ev event) error
	// parsePayload applies one channel data frame to the local stores.
	parsePayload(ctx context.Context, items []json.RawMessage) error
	// heartbeat is invoked for the venue's keep-alive token.
	heartbeat()
}

// Subscription binds the shared lifecycle state machine to one variant.
type Subscription struct {
	mu        sync.Mutex
	venue     string
	conn      Sender
	v         variant
	state     State
	chanID    int64
	hasChanID bool
	startGen  uint64
}

func newSubscription(venue string, conn Sender, v variant) *Subscription {
	return &Subscription{venue: venue, conn: conn, v: v}
}

// Key returns the subscription's de-duplication identity.
func (s *Subscription) Key() string { return s.v.key() }

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChannelID returns the venue-assigned channel id once the venue confirmed
// the subscription.
func (s *Subscription) ChannelID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chanID, s.hasChanID
}

// Start sends the variant's subscribe payload. Only legal from Initial; any
// stale registration is cleared first. When the socket is down the
// subscription stays Initial and the registry replays it after reconnect.
func (s *Subscription) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitial {
		return nil
	}
	if err := s.stopLocked(ctx); err != nil {
		return err
	}
	if !s.conn.IsOpen() {
		return nil
	}
	payload, err := s.v.subscribePayload()
	if err != nil {
		return err
	}
	s.state = StateStarting
	s.startGen = s.conn.Generation()
	if err := s.conn.Send(ctx, payload); err != nil {
		s.state = StateInitial
		return err
	}
	return nil
}

// Stop sends an unsubscribe for a live channel. When the socket that carried
// the subscription has been replaced the venue has already forgotten it, so
// Stop just resets local state.
func (s *Subscription) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Subscription) stopLocked(ctx context.Context) error {
	if s.state != StateStarting && s.state != StateRunning {
		return nil
	}
	if s.startGen != s.conn.Generation() || !s.conn.IsOpen() {
		s.resetLocked()
		return nil
	}
	if s.hasChanID {
		if err := s.conn.Send(ctx, unsubscribeRequest{Event: "unsubscribe", ChanID: s.chanID}); err != nil {
			return err
		}
		s.state = StateStopping
		return nil
	}
	s.resetLocked()
	return nil
}

// MarkStopped resets the subscription after a socket drop without touching
// the wire.
func (s *Subscription) MarkStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Subscription) resetLocked() {
	s.state = StateInitial
	s.hasChanID = false
	s.chanID = 0
}

// ParseResponse records the venue's confirmation: the assigned channel id and
// any variant-specific details. An auth failure keeps the subscription in
// Starting, which is the observable stuck state for bad credentials.
func (s *Subscription) ParseResponse(ev event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.v.onResponse(ev); err != nil {
		return err
	}
	s.chanID = ev.ChanID
	s.hasChanID = true
	s.state = StateRunning
	return nil
}

// ParseUpdate applies one channel frame. The heartbeat token short-circuits
// to the variant's no-op.
func (s *Subscription) ParseUpdate(ctx context.Context, items []json.RawMessage) error {
	if len(items) == 0 {
		return errs.New(s.venue, errs.CodeData, errs.WithMessage("empty channel frame"))
	}
	if isHeartbeat(items[0]) {
		s.v.heartbeat()
		return nil
	}
	return s.v.parsePayload(ctx, items)
}

func (s *Subscription) matchesResponse(ev event) bool {
	return s.v.matchesResponse(ev)
}
