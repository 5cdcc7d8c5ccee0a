package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// ScanState holds the scanner's cross-cycle memory: the last observed best
// prices per instrument (for signal deduplication), cumulative counters, the
// lazily refreshed per-venue balance cache, and recorded partial-leg
// failures. The scan loop is the single writer; the lock exists for status
// readers.
type ScanState struct {
	mu sync.RWMutex

	lastBid map[string]decimal.Decimal
	lastAsk map[string]decimal.Decimal

	orderCount int64
	estProfit  decimal.Decimal

	balances map[domain.Venue]balanceEntry

	partials []domain.PartialLegFailure
}

type balanceEntry struct {
	amount      decimal.Decimal
	refreshedAt time.Time
}

// NewScanState returns an empty state.
func NewScanState() *ScanState {
	return &ScanState{
		lastBid:  make(map[string]decimal.Decimal),
		lastAsk:  make(map[string]decimal.Decimal),
		balances: make(map[domain.Venue]balanceEntry),
	}
}

// BidUnchanged reports whether the instrument's best bid was previously
// observed at exactly price. An instrument with no cache entry counts as
// changed, so a freshly observed book is acted on.
func (s *ScanState) BidUnchanged(instrumentID string, price decimal.Decimal) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.lastBid[instrumentID]
	return ok && last.Equal(price)
}

// AskUnchanged is BidUnchanged for the ask side.
func (s *ScanState) AskUnchanged(instrumentID string, price decimal.Decimal) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.lastAsk[instrumentID]
	return ok && last.Equal(price)
}

// ObserveBid records the instrument's current best bid. Called
// unconditionally after every evaluation, whether or not an order was
// placed.
func (s *ScanState) ObserveBid(instrumentID string, price decimal.Decimal) {
	s.mu.Lock()
	s.lastBid[instrumentID] = price
	s.mu.Unlock()
}

// ObserveAsk records the instrument's current best ask.
func (s *ScanState) ObserveAsk(instrumentID string, price decimal.Decimal) {
	s.mu.Lock()
	s.lastAsk[instrumentID] = price
	s.mu.Unlock()
}

// CachedBalance returns the last known balance for venue, if any.
func (s *ScanState) CachedBalance(venue domain.Venue) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.balances[venue]
	return entry.amount, ok
}

// SetBalance stores a freshly queried balance for venue.
func (s *ScanState) SetBalance(venue domain.Venue, amount decimal.Decimal) {
	s.mu.Lock()
	s.balances[venue] = balanceEntry{amount: amount, refreshedAt: time.Now().UTC()}
	s.mu.Unlock()
}

// AddOrders bumps the cumulative contract counter.
func (s *ScanState) AddOrders(contracts int64) {
	s.mu.Lock()
	s.orderCount += contracts
	s.mu.Unlock()
}

// AddEstimatedProfit accumulates the estimated profit of an emitted
// opportunity.
func (s *ScanState) AddEstimatedProfit(d decimal.Decimal) {
	s.mu.Lock()
	s.estProfit = s.estProfit.Add(d)
	s.mu.Unlock()
}

// RecordPartialFailure appends an unhedged-exposure record. These are never
// dropped for the process lifetime; they represent real capital at risk.
func (s *ScanState) RecordPartialFailure(f domain.PartialLegFailure) {
	s.mu.Lock()
	s.partials = append(s.partials, f)
	s.mu.Unlock()
}

// PartialFailures returns a copy of all recorded partial-leg failures.
func (s *ScanState) PartialFailures() []domain.PartialLegFailure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PartialLegFailure, len(s.partials))
	copy(out, s.partials)
	return out
}

// Snapshot is a point-in-time summary of the scanner's counters.
// OrderCount and EstimatedProfit cover detected signals, whether or not the
// legs were actually placed; they are not fill counts.
type Snapshot struct {
	OrderCount      int64
	EstimatedProfit decimal.Decimal
	PartialFailures int
	Balances        map[domain.Venue]decimal.Decimal
}

// Summary returns the current counters for status surfaces.
func (s *ScanState) Summary() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		OrderCount:      s.orderCount,
		EstimatedProfit: s.estProfit,
		PartialFailures: len(s.partials),
		Balances:        make(map[domain.Venue]decimal.Decimal, len(s.balances)),
	}
	for venue, entry := range s.balances {
		snap.Balances[venue] = entry.amount
	}
	return snap
}
