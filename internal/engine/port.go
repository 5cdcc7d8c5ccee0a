// Package engine implements the periodic arbitrage scanner: strategy
// detection over correlated instrument pairs, signal deduplication, balance
// gating, and two-leg order execution with explicit partial-failure
// surfacing.
package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// BookSource is the read-only view of the book registry the scanner
// consumes. Implemented by *book.Registry.
type BookSource interface {
	BestBid(instrumentID string) (domain.Quote, bool)
	BestAsk(instrumentID string) (domain.Quote, bool)
	Instrument(id string) (domain.Instrument, bool)
}

// ExecutionPort is one venue's order and account gateway. Implementations
// live in internal/gateway; transport and auth failures are returned as
// *domain.GatewayError.
type ExecutionPort interface {
	// GetBalance returns the available account balance in dollars.
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	// PlaceOrder submits a single limit order.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderConfirmation, error)
}

// Alerter pushes out-of-band operator notifications for emitted
// opportunities and partial-leg failures. Optional; implementations must not
// block for long, the scanner calls them inline.
type Alerter interface {
	OpportunityDetected(ctx context.Context, opp domain.Opportunity)
	PartialFailure(ctx context.Context, failure domain.PartialLegFailure)
}

// Recorder persists emitted opportunities and execution outcomes. Optional;
// the scanner runs without one.
type Recorder interface {
	RecordOpportunity(ctx context.Context, opp domain.Opportunity) error
	RecordLegResults(ctx context.Context, oppID string, results []domain.LegResult) error
	RecordPartialFailure(ctx context.Context, failure domain.PartialLegFailure) error
}
