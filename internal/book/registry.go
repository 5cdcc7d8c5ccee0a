package book

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Spec declares one instrument the registry should own. WithInverse also
// registers a synthetic inverse book under the "-inverse" id.
type Spec struct {
	ID          string
	Venue       domain.Venue
	WithInverse bool
}

// Registry owns the instrument -> OrderBook mapping. The instrument universe
// is fixed at construction; updates for unknown ids are logged and dropped,
// never materialized implicitly. The books map is immutable after New, so
// concurrent readers need no registry-level lock.
type Registry struct {
	books       map[string]*OrderBook
	instruments map[string]domain.Instrument
	logger      *slog.Logger
}

// NewRegistry eagerly creates one book per declared instrument, plus an
// inverse book for every instrument with a synthetic opposite side.
func NewRegistry(specs []Spec, logger *slog.Logger) *Registry {
	r := &Registry{
		books:       make(map[string]*OrderBook, len(specs)*2),
		instruments: make(map[string]domain.Instrument, len(specs)*2),
		logger:      logger.With(slog.String("component", "book_registry")),
	}
	for _, spec := range specs {
		r.register(domain.Instrument{ID: spec.ID, Venue: spec.Venue})
		if spec.WithInverse {
			r.register(domain.Instrument{
				ID:        domain.InverseID(spec.ID),
				Venue:     spec.Venue,
				IsInverse: true,
			})
		}
	}
	return r
}

func (r *Registry) register(inst domain.Instrument) {
	if _, exists := r.books[inst.ID]; exists {
		return
	}
	r.books[inst.ID] = New(inst.ID)
	r.instruments[inst.ID] = inst
}

// ApplyUpdate is the single mutation entry point for feed adapters. The
// update must already be normalized to bid/ask. Malformed updates leave the
// book unchanged.
func (r *Registry) ApplyUpdate(instrumentID string, side domain.BookSide, price, size decimal.Decimal) error {
	b, ok := r.books[instrumentID]
	if !ok {
		r.logger.Warn("update for unregistered instrument dropped",
			slog.String("instrument", instrumentID),
		)
		return fmt.Errorf("apply update %s: %w", instrumentID, domain.ErrUnknownInstrument)
	}
	return b.Apply(side, price, size)
}

// ApplyDelta adjusts the size at price by delta (see OrderBook.ApplyDelta).
func (r *Registry) ApplyDelta(instrumentID string, side domain.BookSide, price, delta decimal.Decimal) error {
	b, ok := r.books[instrumentID]
	if !ok {
		r.logger.Warn("delta for unregistered instrument dropped",
			slog.String("instrument", instrumentID),
		)
		return fmt.Errorf("apply delta %s: %w", instrumentID, domain.ErrUnknownInstrument)
	}
	return b.ApplyDelta(side, price, delta)
}

// LoadSnapshot replaces the full book for instrumentID.
func (r *Registry) LoadSnapshot(instrumentID string, bids, asks []domain.PriceLevel) error {
	b, ok := r.books[instrumentID]
	if !ok {
		r.logger.Warn("snapshot for unregistered instrument dropped",
			slog.String("instrument", instrumentID),
		)
		return fmt.Errorf("load snapshot %s: %w", instrumentID, domain.ErrUnknownInstrument)
	}
	b.LoadSnapshot(bids, asks)
	return nil
}

// Book returns the book for instrumentID. Callers outside the feed path must
// treat it as read-only.
func (r *Registry) Book(instrumentID string) (*OrderBook, bool) {
	b, ok := r.books[instrumentID]
	return b, ok
}

// BestBid returns the top bid of instrumentID's book; ok is false when the
// instrument is unknown or the side is empty.
func (r *Registry) BestBid(instrumentID string) (domain.Quote, bool) {
	b, ok := r.books[instrumentID]
	if !ok {
		return domain.Quote{}, false
	}
	return b.BestBid()
}

// BestAsk returns the top ask of instrumentID's book.
func (r *Registry) BestAsk(instrumentID string) (domain.Quote, bool) {
	b, ok := r.books[instrumentID]
	if !ok {
		return domain.Quote{}, false
	}
	return b.BestAsk()
}

// Instrument returns the registered instrument metadata for id.
func (r *Registry) Instrument(id string) (domain.Instrument, bool) {
	inst, ok := r.instruments[id]
	return inst, ok
}

// IDs returns all registered instrument ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.books))
	for id := range r.books {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
