package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookSide selects the bid or ask side of an orderbook.
type BookSide int

const (
	SideBid BookSide = iota
	SideAsk
)

// String returns "bid" or "ask".
func (s BookSide) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the other side.
func (s BookSide) Opposite() BookSide {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// PriceLevel is a single price+size entry in an orderbook. Prices and sizes
// are exact decimals; binary floats corrupt edge computations at sub-cent
// precision.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Quote is a top-of-book entry. The zero Quote is never returned for an
// empty side; callers receive an explicit ok=false instead.
type Quote struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// TopOfBook bundles the current best bid/ask of one instrument for
// recording and publishing.
type TopOfBook struct {
	InstrumentID string
	BestBid      *Quote
	BestAsk      *Quote
	Timestamp    time.Time
}

// BookUpdate is one normalized orderbook change as delivered by a feed
// adapter. Adapters convert venue quoting conventions (yes/no,
// long/short-inverse) to bid/ask before constructing a BookUpdate.
type BookUpdate struct {
	InstrumentID string
	Side         BookSide
	Price        decimal.Decimal
	Size         decimal.Decimal
	Received     time.Time
}
