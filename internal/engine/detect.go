package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/fees"
)

// venueQuote is one venue's top-of-book entry for an outcome.
type venueQuote struct {
	instrumentID string
	venue        domain.Venue
	quote        domain.Quote
}

// outcome aggregates the quotes available for one side of a binary event,
// possibly across both venues (cross-venue pairs) or a single venue
// (correlated tickers).
type outcome struct {
	asks []venueQuote
	bids []venueQuote
}

// bestAsk returns the lowest ask across venues.
func (o outcome) bestAsk() (venueQuote, bool) {
	var best venueQuote
	found := false
	for _, vq := range o.asks {
		if !found || vq.quote.Price.LessThan(best.quote.Price) {
			best = vq
			found = true
		}
	}
	return best, found
}

// bestBid returns the highest bid across venues.
func (o outcome) bestBid() (venueQuote, bool) {
	var best venueQuote
	found := false
	for _, vq := range o.bids {
		if !found || vq.quote.Price.GreaterThan(best.quote.Price) {
			best = vq
			found = true
		}
	}
	return best, found
}

// detector evaluates the strategy classes. It is stateless; deduplication
// and balance gating happen in the scanner.
type detector struct {
	minEdge decimal.Decimal
}

// takerFees sums the per-venue taker fees for crossing size contracts at
// each quote.
func takerFees(size decimal.Decimal, quotes ...venueQuote) decimal.Decimal {
	total := decimal.Zero
	for _, vq := range quotes {
		total = total.Add(fees.ForVenue(vq.venue).TakerFee(vq.quote.Price, size))
	}
	return total
}

// orderSize floors the common size to whole contracts. ok is false when
// fewer than one contract is available.
func orderSize(a, b decimal.Decimal) (decimal.Decimal, bool) {
	size := decimal.Min(a, b).Floor()
	return size, size.GreaterThanOrEqual(decimal.NewFromInt(1))
}

// sameSide checks the one-contract-two-venues crosses: sell where the bid is
// rich, buy where the ask is cheap. It returns one opportunity per crossed
// direction.
func (d detector) sameSide(pairKey string, o outcome) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, bid := range o.bids {
		for _, ask := range o.asks {
			if bid.venue == ask.venue {
				continue
			}
			gross := bid.quote.Price.Sub(ask.quote.Price)
			if gross.Sign() <= 0 {
				continue
			}
			size, ok := orderSize(bid.quote.Size, ask.quote.Size)
			if !ok {
				continue
			}
			fee := takerFees(size, bid, ask)
			net := gross.Sub(fees.PerContract(fee, size))
			if net.LessThanOrEqual(d.minEdge) {
				continue
			}
			opps = append(opps, domain.Opportunity{
				ID:       uuid.New().String(),
				Strategy: domain.StrategySameSide,
				PairKey:  pairKey,
				Legs: []domain.OpportunityLeg{
					{InstrumentID: ask.instrumentID, Venue: ask.venue, Action: domain.ActionBuy, Price: ask.quote.Price, Size: size},
					{InstrumentID: bid.instrumentID, Venue: bid.venue, Action: domain.ActionSell, Price: bid.quote.Price, Size: size},
				},
				Size:       size,
				GrossEdge:  gross,
				Fees:       fee,
				NetEdge:    net,
				DetectedAt: time.Now().UTC(),
			})
		}
	}
	return opps
}

// doubleBuy checks the synthetic long: buying both exhaustive outcomes below
// $1 net of taker fees locks in the difference. The error is
// ErrStaleQuote when a required leg has no ask.
func (d detector) doubleBuy(pairKey string, a, b outcome) (domain.Opportunity, error) {
	askA, okA := a.bestAsk()
	askB, okB := b.bestAsk()
	if !okA || !okB {
		return domain.Opportunity{}, fmt.Errorf("double buy %s: %w", pairKey, domain.ErrStaleQuote)
	}
	size, ok := orderSize(askA.quote.Size, askB.quote.Size)
	if !ok {
		return domain.Opportunity{}, fmt.Errorf("double buy %s: %w", pairKey, domain.ErrStaleQuote)
	}

	fee := takerFees(size, askA, askB)
	gross := fees.Complement(askA.quote.Price.Add(askB.quote.Price))
	net := fees.DoubleBuyNetEdge([]decimal.Decimal{askA.quote.Price, askB.quote.Price}, fee, size)
	if net.LessThanOrEqual(d.minEdge) {
		return domain.Opportunity{}, nil
	}
	return domain.Opportunity{
		ID:       uuid.New().String(),
		Strategy: domain.StrategyDoubleBuy,
		PairKey:  pairKey,
		Legs: []domain.OpportunityLeg{
			{InstrumentID: askA.instrumentID, Venue: askA.venue, Action: domain.ActionBuy, Price: askA.quote.Price, Size: size},
			{InstrumentID: askB.instrumentID, Venue: askB.venue, Action: domain.ActionBuy, Price: askB.quote.Price, Size: size},
		},
		Size:       size,
		GrossEdge:  gross,
		Fees:       fee,
		NetEdge:    net,
		DetectedAt: time.Now().UTC(),
	}, nil
}

// doubleSell checks the synthetic short: selling both outcomes above $1.
// Only evaluated when the account can carry the short exposure.
func (d detector) doubleSell(pairKey string, a, b outcome) (domain.Opportunity, error) {
	bidA, okA := a.bestBid()
	bidB, okB := b.bestBid()
	if !okA || !okB {
		return domain.Opportunity{}, fmt.Errorf("double sell %s: %w", pairKey, domain.ErrStaleQuote)
	}
	size, ok := orderSize(bidA.quote.Size, bidB.quote.Size)
	if !ok {
		return domain.Opportunity{}, fmt.Errorf("double sell %s: %w", pairKey, domain.ErrStaleQuote)
	}

	fee := takerFees(size, bidA, bidB)
	gross := bidA.quote.Price.Add(bidB.quote.Price).Sub(decimal.NewFromInt(1))
	net := fees.DoubleSellNetEdge([]decimal.Decimal{bidA.quote.Price, bidB.quote.Price}, fee, size)
	if net.LessThanOrEqual(d.minEdge) {
		return domain.Opportunity{}, nil
	}
	return domain.Opportunity{
		ID:       uuid.New().String(),
		Strategy: domain.StrategyDoubleSell,
		PairKey:  pairKey,
		Legs: []domain.OpportunityLeg{
			{InstrumentID: bidA.instrumentID, Venue: bidA.venue, Action: domain.ActionSell, Price: bidA.quote.Price, Size: size},
			{InstrumentID: bidB.instrumentID, Venue: bidB.venue, Action: domain.ActionSell, Price: bidB.quote.Price, Size: size},
		},
		Size:       size,
		GrossEdge:  gross,
		Fees:       fee,
		NetEdge:    net,
		DetectedAt: time.Now().UTC(),
	}, nil
}
