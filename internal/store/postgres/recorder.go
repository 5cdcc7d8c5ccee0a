package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Recorder persists opportunities, leg results, and partial failures.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder creates a Recorder on the given pool.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// RecordOpportunity inserts an opportunity and its legs in one transaction.
func (r *Recorder) RecordOpportunity(ctx context.Context, opp domain.Opportunity) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO opportunities (id, strategy, pair_key, size, gross_edge, fees, net_edge, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		opp.ID, string(opp.Strategy), opp.PairKey,
		opp.Size, opp.GrossEdge, opp.Fees, opp.NetEdge, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity: %w", err)
	}

	for _, leg := range opp.Legs {
		_, err = tx.Exec(ctx, `
			INSERT INTO opportunity_legs (opportunity_id, instrument_id, venue, action, outcome, price, size)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			opp.ID, leg.InstrumentID, string(leg.Venue), string(leg.Action),
			string(leg.Outcome), leg.Price, leg.Size,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert opportunity leg: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// RecordLegResults inserts the outcome of each attempted leg.
func (r *Recorder) RecordLegResults(ctx context.Context, oppID string, results []domain.LegResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, res := range results {
		var errText *string
		if res.Err != nil {
			s := res.Err.Error()
			errText = &s
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO leg_results (opportunity_id, instrument_id, venue, action, price, size, order_id, status, filled_size, error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			oppID, res.Leg.InstrumentID, string(res.Leg.Venue), string(res.Leg.Action),
			res.Leg.Price, res.Leg.Size,
			res.Confirmation.OrderID, string(res.Confirmation.Status),
			res.Confirmation.FilledSize, errText,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert leg result: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// RecordPartialFailure inserts a partial execution failure for operator review.
func (r *Recorder) RecordPartialFailure(ctx context.Context, failure domain.PartialLegFailure) error {
	cause := ""
	if failure.Cause != nil {
		cause = failure.Cause.Error()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO partial_failures (opportunity_id, strategy, placed_legs, failed_instrument, failed_venue, cause, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		failure.OpportunityID, string(failure.Strategy), len(failure.PlacedLegs),
		failure.FailedLeg.InstrumentID, string(failure.FailedLeg.Venue),
		cause, failure.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert partial failure: %w", err)
	}
	return nil
}

// RecentOpportunities returns the most recently detected opportunities,
// without legs.
func (r *Recorder) RecentOpportunities(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, strategy, pair_key, size, gross_edge, fees, net_edge, detected_at
		FROM opportunities ORDER BY detected_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var list []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var strategy string
		if err := rows.Scan(&opp.ID, &strategy, &opp.PairKey,
			&opp.Size, &opp.GrossEdge, &opp.Fees, &opp.NetEdge, &opp.DetectedAt); err != nil {
			return nil, err
		}
		opp.Strategy = domain.StrategyKind(strategy)
		list = append(list, opp)
	}
	return list, rows.Err()
}

// OpportunityByID returns one opportunity with its legs.
func (r *Recorder) OpportunityByID(ctx context.Context, id string) (domain.Opportunity, error) {
	var opp domain.Opportunity
	var strategy string
	err := r.pool.QueryRow(ctx, `
		SELECT id, strategy, pair_key, size, gross_edge, fees, net_edge, detected_at
		FROM opportunities WHERE id = $1`, id,
	).Scan(&opp.ID, &strategy, &opp.PairKey,
		&opp.Size, &opp.GrossEdge, &opp.Fees, &opp.NetEdge, &opp.DetectedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Opportunity{}, domain.ErrNotFound
		}
		return domain.Opportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	opp.Strategy = domain.StrategyKind(strategy)

	rows, err := r.pool.Query(ctx, `
		SELECT instrument_id, venue, action, outcome, price, size
		FROM opportunity_legs WHERE opportunity_id = $1 ORDER BY id`, id)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("postgres: get opportunity legs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var leg domain.OpportunityLeg
		var venue, action, outcome string
		if err := rows.Scan(&leg.InstrumentID, &venue, &action, &outcome, &leg.Price, &leg.Size); err != nil {
			return domain.Opportunity{}, err
		}
		leg.Venue = domain.Venue(venue)
		leg.Action = domain.OrderAction(action)
		leg.Outcome = domain.Outcome(outcome)
		opp.Legs = append(opp.Legs, leg)
	}
	return opp, rows.Err()
}

// SumEstimatedProfit returns the sum of net_edge*size over opportunities
// detected since the given time.
func (r *Recorder) SumEstimatedProfit(ctx context.Context, since time.Time) (float64, error) {
	var sum float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(net_edge * size), 0) FROM opportunities WHERE detected_at >= $1`,
		since).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum estimated profit: %w", err)
	}
	return sum, nil
}
