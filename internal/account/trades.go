package account

import (
	"sort"
	"sync"

	"github.com/quantfold/venuelink/internal/schema"
)

// Trades records executions against the account, keyed by trade id. Entries
// are immutable once written except for the fee enrichment that arrives on
// the richer update variant.
type Trades struct {
	mu     sync.RWMutex
	trades map[int64]schema.Trade
}

// NewTrades creates an empty trade history store.
func NewTrades() *Trades {
	return &Trades{trades: make(map[int64]schema.Trade)}
}

// Apply records an execution. When the id already exists the stored entry is
// upgraded in place: the enriched variant carries the fee fields the first
// notification lacked.
func (t *Trades) Apply(trade schema.Trade) {
	t.mu.Lock()
	defer t.mu.Unlock()
	existing, ok := t.trades[trade.ID]
	if !ok {
		t.trades[trade.ID] = trade
		return
	}
	if trade.FeeCurrency != "" {
		existing.Fee = trade.Fee
		existing.FeeCurrency = trade.FeeCurrency
	}
	t.trades[trade.ID] = existing
}

// Get returns the trade with the given id.
func (t *Trades) Get(id int64) (schema.Trade, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	trade, ok := t.trades[id]
	return trade, ok
}

// Len returns the number of recorded executions.
func (t *Trades) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.trades)
}

// All returns a copy of the history ordered by execution time.
func (t *Trades) All() []schema.Trade {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]schema.Trade, 0, len(t.trades))
	for _, trade := range t.trades {
		out = append(out, trade)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Executed.Equal(out[j].Executed) {
			return out[i].ID < out[j].ID
		}
		return out[i].Executed.Before(out[j].Executed)
	})
	return out
}
