// Package book maintains per-instrument two-sided orderbooks and the
// registry that owns them. Books store already-normalized bid/ask levels;
// venue quoting conventions are converted by the feed adapters before any
// update reaches this package.
package book

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/fees"
)

// OrderBook is a two-sided, price-ordered level store for one instrument.
// Levels are kept sorted ascending by price; best bid is the last bid level,
// best ask the first ask level. A book may be one-sided or empty.
//
// Mutation is expected from a single feed goroutine per instrument; the
// scanner reads concurrently. Each book carries its own lock so unrelated
// instruments never serialize on each other.
type OrderBook struct {
	instrumentID string

	mu   sync.RWMutex
	bids []domain.PriceLevel // ascending price
	asks []domain.PriceLevel // ascending price
}

// New creates an empty book for instrumentID.
func New(instrumentID string) *OrderBook {
	return &OrderBook{instrumentID: instrumentID}
}

// InstrumentID returns the owning instrument id.
func (b *OrderBook) InstrumentID() string { return b.instrumentID }

// Apply upserts the level at price, or removes it when size <= 0 (removal of
// an absent level is a no-op). Re-applying the same update leaves the book
// unchanged. A price outside (0,1) is rejected with ErrInvalidPrice and the
// book is left untouched.
func (b *OrderBook) Apply(side domain.BookSide, price, size decimal.Decimal) error {
	if !fees.ValidPrice(price) {
		return fmt.Errorf("apply %s %s to %s: %w", side, price, b.instrumentID, domain.ErrInvalidPrice)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	levels := b.side(side)
	i, found := search(*levels, price)
	switch {
	case size.Sign() <= 0:
		if found {
			*levels = append((*levels)[:i], (*levels)[i+1:]...)
		}
	case found:
		(*levels)[i].Size = size
	default:
		*levels = append(*levels, domain.PriceLevel{})
		copy((*levels)[i+1:], (*levels)[i:])
		(*levels)[i] = domain.PriceLevel{Price: price, Size: size}
	}
	return nil
}

// ApplyDelta adds delta to the current size at price (0 when absent) and
// applies the result. A negative resulting size is clamped to zero, which
// removes the level; a negative size is never stored.
func (b *OrderBook) ApplyDelta(side domain.BookSide, price, delta decimal.Decimal) error {
	if !fees.ValidPrice(price) {
		return fmt.Errorf("apply delta %s %s to %s: %w", side, price, b.instrumentID, domain.ErrInvalidPrice)
	}
	size := b.SizeAt(side, price).Add(delta)
	if size.Sign() < 0 {
		size = decimal.Zero
	}
	return b.Apply(side, price, size)
}

// SizeAt returns the stored size at price, or zero when the level is absent.
func (b *OrderBook) SizeAt(side domain.BookSide, price decimal.Decimal) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	levels := *b.side(side)
	if i, found := search(levels, price); found {
		return levels[i].Size
	}
	return decimal.Zero
}

// BestBid returns the highest-priced bid level. ok is false when the bid
// side is empty. The returned price/size pair is read atomically.
func (b *OrderBook) BestBid() (domain.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.bids) == 0 {
		return domain.Quote{}, false
	}
	top := b.bids[len(b.bids)-1]
	return domain.Quote{Price: top.Price, Size: top.Size}, true
}

// BestAsk returns the lowest-priced ask level. ok is false when the ask side
// is empty.
func (b *OrderBook) BestAsk() (domain.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.asks) == 0 {
		return domain.Quote{}, false
	}
	top := b.asks[0]
	return domain.Quote{Price: top.Price, Size: top.Size}, true
}

// Depth returns the number of levels on side.
func (b *OrderBook) Depth(side domain.BookSide) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(*b.side(side))
}

// LoadSnapshot atomically replaces both sides of the book. Levels with
// invalid prices or non-positive sizes are dropped; the rest of the snapshot
// still loads.
func (b *OrderBook) LoadSnapshot(bids, asks []domain.PriceLevel) {
	newBids := sanitize(bids)
	newAsks := sanitize(asks)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = newBids
	b.asks = newAsks
}

// TopOfBook returns the current best bid and ask for recording/publishing.
func (b *OrderBook) TopOfBook() domain.TopOfBook {
	top := domain.TopOfBook{InstrumentID: b.instrumentID}
	if q, ok := b.BestBid(); ok {
		top.BestBid = &q
	}
	if q, ok := b.BestAsk(); ok {
		top.BestAsk = &q
	}
	return top
}

func (b *OrderBook) side(side domain.BookSide) *[]domain.PriceLevel {
	if side == domain.SideBid {
		return &b.bids
	}
	return &b.asks
}

// search locates price in the ascending levels slice. It returns the index
// where price is (or would be inserted) and whether it is present.
func search(levels []domain.PriceLevel, price decimal.Decimal) (int, bool) {
	i := sort.Search(len(levels), func(j int) bool {
		return levels[j].Price.GreaterThanOrEqual(price)
	})
	if i < len(levels) && levels[i].Price.Equal(price) {
		return i, true
	}
	return i, false
}

func sanitize(levels []domain.PriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		if !fees.ValidPrice(lvl.Price) || lvl.Size.Sign() <= 0 {
			continue
		}
		out = append(out, lvl)
	}
	// Stable sort so equal prices keep their input order for the dedup
	// pass below.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price.LessThan(out[j].Price)
	})
	// Collapse duplicate prices, keeping the last occurrence.
	dedup := out[:0]
	for i, lvl := range out {
		if i > 0 && lvl.Price.Equal(dedup[len(dedup)-1].Price) {
			dedup[len(dedup)-1] = lvl
			continue
		}
		dedup = append(dedup, lvl)
	}
	return dedup
}
