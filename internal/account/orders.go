package account

import (
	"sort"
	"sync"

	"github.com/quantfold/venuelink/internal/schema"
)

// Orders mirrors the set of live venue orders keyed by server order id.
type Orders struct {
	mu     sync.RWMutex
	orders map[int64]schema.Order
}

// NewOrders creates an empty live-order store.
func NewOrders() *Orders {
	return &Orders{orders: make(map[int64]schema.Order)}
}

// ApplyNew inserts a freshly created order. Re-announcing an id replaces the
// prior entry, preserving the one-live-entry-per-id invariant.
func (o *Orders) ApplyNew(order schema.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders[order.ID] = order
}

// ApplyUpdate replaces the stored order state for its id.
func (o *Orders) ApplyUpdate(order schema.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders[order.ID] = order
}

// ApplyCancel removes the order. Unknown ids are a no-op: the cancel may race
// the initial snapshot.
func (o *Orders) ApplyCancel(id int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.orders, id)
}

// Get returns the live order for id.
func (o *Orders) Get(id int64) (schema.Order, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	order, ok := o.orders[id]
	return order, ok
}

// All returns a copy of every live order, oldest first.
func (o *Orders) All() []schema.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]schema.Order, 0, len(o.orders))
	for _, order := range o.orders {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Len reports the number of live orders.
func (o *Orders) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.orders)
}
