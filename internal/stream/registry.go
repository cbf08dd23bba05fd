package stream

import (
	"context"
	"sync"

	"github.com/quantfold/venuelink/internal/observability"
)

// Registry owns the set of subscriptions: a de-duplication map keyed by
// subscription identity plus an active index from venue channel id to
// subscription for O(1) inbound routing.
type Registry struct {
	mu     sync.Mutex
	venue  string
	subs   map[string]*Subscription
	active map[int64]*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry(venue string) *Registry {
	return &Registry{
		venue:  venue,
		subs:   make(map[string]*Subscription),
		active: make(map[int64]*Subscription),
	}
}

// Add registers sub, replacing any existing subscription with the same
// identity: the old one is stopped and dropped before the new one starts.
func (r *Registry) Add(ctx context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sub.Key()
	if existing, ok := r.subs[key]; ok {
		if err := existing.Stop(ctx); err != nil {
			observability.Log().Warn("stop superseded subscription",
				observability.F("key", key), observability.F("error", err))
		}
		r.dropActiveLocked(existing)
		delete(r.subs, key)
	}
	r.subs[key] = sub
	return sub.Start(ctx)
}

// Remove stops and deletes the subscription with the given identity key.
func (r *Registry) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[key]
	if !ok {
		return nil
	}
	delete(r.subs, key)
	if err := sub.Stop(ctx); err != nil {
		return err
	}
	return nil
}

// ByChannel resolves the subscription serving a venue channel id.
func (r *Registry) ByChannel(id int64) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.active[id]
	return sub, ok
}

// Activate records the venue-assigned channel id for a confirmed
// subscription.
func (r *Registry) Activate(id int64, sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[id] = sub
}

// DeactivateChannel clears the routing entry for a channel the venue
// confirmed as unsubscribed and resets the subscription if it is still
// registered.
func (r *Registry) DeactivateChannel(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.active[id]
	if !ok {
		return
	}
	delete(r.active, id)
	sub.MarkStopped()
}

// MatchPending finds the Starting subscription whose discriminating
// parameters match a subscribe/auth response.
func (r *Registry) MatchPending(ev event) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.State() == StateStarting && sub.matchesResponse(ev) {
			return sub, true
		}
	}
	return nil, false
}

// StartAll starts every subscription still in Initial. Safe to call on every
// reconnect; running subscriptions are untouched.
func (r *Registry) StartAll(ctx context.Context) {
	for _, sub := range r.snapshot() {
		if sub.State() != StateInitial {
			continue
		}
		if err := sub.Start(ctx); err != nil {
			observability.Log().Error("restart subscription",
				observability.F("key", sub.Key()), observability.F("error", err))
		}
	}
}

// StopAll stops every Running subscription. Idempotent.
func (r *Registry) StopAll(ctx context.Context) {
	for _, sub := range r.snapshot() {
		state := sub.State()
		if state != StateRunning && state != StateStarting {
			continue
		}
		if err := sub.Stop(ctx); err != nil {
			observability.Log().Warn("stop subscription",
				observability.F("key", sub.Key()), observability.F("error", err))
		}
	}
}

// MarkAllStopped resets every subscription after a socket drop and clears
// the channel routing table. The venue forgot the channels; ids from the old
// socket must not route frames from the next one.
func (r *Registry) MarkAllStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		sub.MarkStopped()
	}
	r.active = make(map[int64]*Subscription)
}

// Subscriptions returns a snapshot of the registered set.
func (r *Registry) Subscriptions() []*Subscription {
	return r.snapshot()
}

func (r *Registry) snapshot() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	return out
}

func (r *Registry) dropActiveLocked(sub *Subscription) {
	for id, active := range r.active {
		if active == sub {
			delete(r.active, id)
		}
	}
}
