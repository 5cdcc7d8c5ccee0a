package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// execute places the opportunity's legs strictly in order. There is no
// transactional guarantee across venues, so the two-phase semantics are
// explicit:
//
//   - leg 1 fails: the opportunity is abandoned cleanly, nothing placed.
//   - leg 1 fills, a later leg fails: the filled leg is real, unhedged
//     exposure. It is recorded as a PartialLegFailure, logged at the
//     highest severity, and never unwound or re-placed automatically.
func (s *Scanner) execute(ctx context.Context, opp domain.Opportunity, log *slog.Logger) {
	placed := make([]domain.LegResult, 0, len(opp.Legs))

	for i, leg := range opp.Legs {
		conf, err := s.placeLeg(ctx, leg)
		if err == nil && conf.Status == domain.OrderStatusRejected {
			err = fmt.Errorf("order %s rejected by venue", conf.OrderID)
		}
		if err != nil {
			if i == 0 {
				log.Warn("first leg failed, opportunity abandoned",
					slog.String("instrument", leg.InstrumentID),
					slog.String("venue", string(leg.Venue)),
					slog.String("error", err.Error()),
				)
				return
			}
			s.recordPartialFailure(ctx, opp, placed, leg, err, log)
			return
		}

		placed = append(placed, domain.LegResult{Leg: leg, Confirmation: conf})
		log.Info("leg placed",
			slog.Int("leg", i+1),
			slog.String("instrument", leg.InstrumentID),
			slog.String("venue", string(leg.Venue)),
			slog.String("order_id", conf.OrderID),
			slog.String("price", leg.Price.String()),
			slog.String("size", leg.Size.String()),
		)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordLegResults(ctx, opp.ID, placed); err != nil {
			log.Warn("leg results record failed", slog.String("error", err.Error()))
		}
	}
}

// placeLeg translates one opportunity leg into a venue order request and
// submits it with a bounded timeout.
func (s *Scanner) placeLeg(ctx context.Context, leg domain.OpportunityLeg) (domain.OrderConfirmation, error) {
	port, ok := s.ports[leg.Venue]
	if !ok {
		return domain.OrderConfirmation{}, &domain.GatewayError{
			Venue: leg.Venue,
			Op:    "place_order",
			Err:   errors.New("no execution port configured"),
		}
	}

	req, err := s.orderRequest(leg)
	if err != nil {
		return domain.OrderConfirmation{}, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return port.PlaceOrder(cctx, req)
}

// orderRequest maps a normalized leg back to the venue's quoting
// convention. Kalshi books are yes-normalized, so every Kalshi leg trades
// the yes side. Polymarket US inverse instruments are the derived short side
// of their base market; the order goes to the base market's short outcome at
// the already-complemented price.
func (s *Scanner) orderRequest(leg domain.OpportunityLeg) (domain.OrderRequest, error) {
	inst, ok := s.books.Instrument(leg.InstrumentID)
	if !ok {
		return domain.OrderRequest{}, fmt.Errorf("order request %s: %w", leg.InstrumentID, domain.ErrUnknownInstrument)
	}

	req := domain.OrderRequest{
		InstrumentID:  inst.BaseID(),
		Venue:         leg.Venue,
		Action:        leg.Action,
		Size:          leg.Size,
		LimitPrice:    leg.Price,
		ClientOrderID: uuid.New().String(),
	}
	switch leg.Venue {
	case domain.VenueKalshi:
		req.Outcome = domain.OutcomeYes
	case domain.VenuePolymarketUS:
		if inst.IsInverse {
			req.Outcome = domain.OutcomeShort
		} else {
			req.Outcome = domain.OutcomeLong
		}
	default:
		return domain.OrderRequest{}, fmt.Errorf("order request %s: unsupported venue %s", leg.InstrumentID, leg.Venue)
	}
	return req, nil
}

func (s *Scanner) recordPartialFailure(
	ctx context.Context,
	opp domain.Opportunity,
	placed []domain.LegResult,
	failed domain.OpportunityLeg,
	cause error,
	log *slog.Logger,
) {
	failure := domain.PartialLegFailure{
		OpportunityID: opp.ID,
		Strategy:      opp.Strategy,
		PlacedLegs:    placed,
		FailedLeg:     failed,
		Cause:         cause,
		OccurredAt:    time.Now().UTC(),
	}
	s.state.RecordPartialFailure(failure)

	log.Error("PARTIAL LEG FAILURE: unhedged exposure, manual intervention required",
		slog.String("failed_instrument", failed.InstrumentID),
		slog.String("failed_venue", string(failed.Venue)),
		slog.Int("placed_legs", len(placed)),
		slog.String("exposure", exposure(placed).String()),
		slog.String("cause", cause.Error()),
	)

	if s.alerter != nil {
		s.alerter.PartialFailure(ctx, failure)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordPartialFailure(ctx, failure); err != nil {
			log.Warn("partial failure record failed", slog.String("error", err.Error()))
		}
	}
}

// exposure is the dollar notional of the legs that did fill.
func exposure(placed []domain.LegResult) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range placed {
		sum = sum.Add(r.Leg.Price.Mul(r.Leg.Size))
	}
	return sum
}
