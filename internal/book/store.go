// Package book maintains per-pair order books assembled from venue snapshots
// and incremental level updates.
package book

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/quantfold/venuelink/errs"
	"github.com/quantfold/venuelink/internal/schema"
)

// Level is one resting price level. Amount is an unsigned magnitude; the side
// is implied by which array the level lives in.
type Level struct {
	Price  decimal.Decimal
	Count  int
	Amount decimal.Decimal
}

// SignedLevel is a level as the venue frames it: the amount sign selects the
// side (positive bid, negative ask) and Count==0 marks a deletion.
type SignedLevel struct {
	Price  decimal.Decimal
	Count  int
	Amount decimal.Decimal
}

// Book is an immutable copy of both sides of one pair's order book.
type Book struct {
	Bids []Level
	Asks []Level
}

type pairBook struct {
	bids []Level // descending by price
	asks []Level // ascending by price
}

// Store holds the order books for every subscribed pair.
type Store struct {
	mu    sync.RWMutex
	venue string
	books map[schema.Pair]*pairBook
}

// NewStore creates an empty order book store.
func NewStore(venue string) *Store {
	return &Store{
		venue: venue,
		books: make(map[schema.Pair]*pairBook),
	}
}

// ApplySnapshot replaces both sides of the pair's book with the snapshot
// levels. A snapshot never contains deletions, so a zero count is a data
// error and leaves the prior book untouched.
func (s *Store) ApplySnapshot(pair schema.Pair, levels []SignedLevel) error {
	for _, level := range levels {
		if level.Count == 0 {
			return errs.New(s.venue, errs.CodeData,
				errs.WithMessage("snapshot level with zero count at price "+level.Price.String()))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := &pairBook{}
	for _, level := range levels {
		b.apply(level)
	}
	s.books[pair] = b
	return nil
}

// ApplyIncrement applies one level delta to the pair's book, creating the
// book lazily on first use.
func (s *Store) ApplyIncrement(pair schema.Pair, level SignedLevel) error {
	if level.Amount.Sign() == 0 {
		return errs.New(s.venue, errs.CodeData,
			errs.WithMessage("increment with zero amount at price "+level.Price.String()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[pair]
	if !ok {
		b = &pairBook{}
		s.books[pair] = b
	}
	b.apply(level)
	return nil
}

// Snapshot returns a copy of the pair's current book. The second return is
// false when no book exists for the pair yet.
func (s *Store) Snapshot(pair schema.Pair) (Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[pair]
	if !ok {
		return Book{}, false
	}
	return Book{
		Bids: append([]Level(nil), b.bids...),
		Asks: append([]Level(nil), b.asks...),
	}, true
}

// Pairs lists every pair with a live book.
func (s *Store) Pairs() []schema.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pairs := make([]schema.Pair, 0, len(s.books))
	for pair := range s.books {
		pairs = append(pairs, pair)
	}
	return pairs
}

func (b *pairBook) apply(level SignedLevel) {
	if level.Amount.Sign() > 0 {
		b.bids = applySide(b.bids, level, true)
		return
	}
	b.asks = applySide(b.asks, level, false)
}

// applySide keeps the side sorted (bids descending, asks ascending) with a
// binary search per update.
func applySide(side []Level, level SignedLevel, isBid bool) []Level {
	idx := sort.Search(len(side), func(i int) bool {
		cmp := side[i].Price.Cmp(level.Price)
		if isBid {
			return cmp <= 0
		}
		return cmp >= 0
	})
	found := idx < len(side) && side[idx].Price.Equal(level.Price)

	if level.Count == 0 {
		if !found {
			return side // already deleted; tombstones are idempotent
		}
		return append(side[:idx], side[idx+1:]...)
	}

	entry := Level{Price: level.Price, Count: level.Count, Amount: level.Amount.Abs()}
	if found {
		side[idx] = entry
		return side
	}
	side = append(side, Level{})
	copy(side[idx+1:], side[idx:])
	side[idx] = entry
	return side
}
