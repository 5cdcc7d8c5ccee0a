package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StrategyKind classifies the detector that produced an opportunity.
type StrategyKind string

const (
	StrategySameSide   StrategyKind = "same_side"
	StrategyDoubleBuy  StrategyKind = "double_buy"
	StrategyDoubleSell StrategyKind = "double_sell"
)

// OpportunityLeg is one order within a multi-leg opportunity.
type OpportunityLeg struct {
	InstrumentID string
	Venue        Venue
	Action       OrderAction
	Outcome      Outcome
	Price        decimal.Decimal
	Size         decimal.Decimal
}

// Opportunity is a fee-adjusted arbitrage signal emitted by a detector.
// GrossEdge and NetEdge are per contract; Fees is the aggregate dollar fee
// over the whole order size.
type Opportunity struct {
	ID         string
	Strategy   StrategyKind
	PairKey    string // instrument pair this was detected on
	Legs       []OpportunityLeg
	Size       decimal.Decimal
	GrossEdge  decimal.Decimal
	Fees       decimal.Decimal
	NetEdge    decimal.Decimal
	DetectedAt time.Time
}

// RequiredCapital is the total cost of entering every leg.
func (o Opportunity) RequiredCapital() decimal.Decimal {
	total := decimal.Zero
	for _, leg := range o.Legs {
		if leg.Action == ActionBuy {
			total = total.Add(leg.Price.Mul(leg.Size))
		}
	}
	return total
}

// LegResult records the outcome of placing one opportunity leg.
type LegResult struct {
	Leg          OpportunityLeg
	Confirmation OrderConfirmation
	Err          error
}

// PartialLegFailure records a multi-leg execution where the first leg filled
// but a later leg was rejected or errored. The position is real, unhedged
// exposure and is never unwound automatically; it is surfaced for operators.
type PartialLegFailure struct {
	OpportunityID string
	Strategy      StrategyKind
	PlacedLegs    []LegResult
	FailedLeg     OpportunityLeg
	Cause         error
	OccurredAt    time.Time
}
