// Package account keeps the local mirrors of private venue state: wallet
// balances, live orders, trade history, and candle series.
package account

import (
	"sort"
	"sync"

	"github.com/quantfold/venuelink/internal/schema"
)

type walletKey struct {
	wallet   string
	currency string
}

// Wallet mirrors balances with upsert semantics, one entry per
// (wallet bucket, currency) pair.
type Wallet struct {
	mu       sync.RWMutex
	balances map[walletKey]schema.Balance
}

// NewWallet creates an empty wallet store.
func NewWallet() *Wallet {
	return &Wallet{balances: make(map[walletKey]schema.Balance)}
}

// Upsert stores or replaces the balance for its bucket and currency. It
// reports whether the venue omitted the available amount, in which case the
// caller should ask the venue to compute it.
func (w *Wallet) Upsert(balance schema.Balance) (needsCalc bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := walletKey{wallet: balance.Wallet, currency: balance.Currency}
	if !balance.AvailableKnown {
		if prev, ok := w.balances[key]; ok && prev.AvailableKnown {
			// keep the last known available amount until the calc reply lands
			balance.Available = prev.Available
		}
	}
	w.balances[key] = balance
	return !balance.AvailableKnown
}

// Balance returns the balance held in one wallet bucket for a currency.
func (w *Wallet) Balance(wallet, currency string) (schema.Balance, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	balance, ok := w.balances[walletKey{wallet: wallet, currency: currency}]
	return balance, ok
}

// Balances returns a copy of every balance, sorted by bucket then currency.
func (w *Wallet) Balances() []schema.Balance {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]schema.Balance, 0, len(w.balances))
	for _, balance := range w.balances {
		out = append(out, balance)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wallet != out[j].Wallet {
			return out[i].Wallet < out[j].Wallet
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}
