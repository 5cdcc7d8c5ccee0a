package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/engine"
)

// StatusHandler serves the scanner's runtime counters.
type StatusHandler struct {
	mode      string
	pairs     int
	startedAt time.Time
	state     *engine.ScanState // nil when no scanner runs (record mode)
}

// NewStatusHandler creates a StatusHandler. state may be nil.
func NewStatusHandler(mode string, pairs int, state *engine.ScanState) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		pairs:     pairs,
		startedAt: time.Now().UTC(),
		state:     state,
	}
}

// GetStatus responds with the current mode, uptime, and scan counters.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"mode":           h.mode,
		"pairs":          h.pairs,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}

	if h.state != nil {
		snap := h.state.Summary()
		balances := make(map[string]string, len(snap.Balances))
		for venue, amount := range snap.Balances {
			balances[string(venue)] = amount.String()
		}
		body["orders"] = snap.OrderCount
		body["estimated_profit"] = snap.EstimatedProfit.String()
		body["partial_failures"] = snap.PartialFailures
		body["balances"] = balances
	}

	writeJSON(w, http.StatusOK, body)
}

type partialFailureDTO struct {
	OpportunityID    string    `json:"opportunity_id"`
	Strategy         string    `json:"strategy"`
	PlacedLegs       int       `json:"placed_legs"`
	FailedInstrument string    `json:"failed_instrument"`
	FailedVenue      string    `json:"failed_venue"`
	Cause            string    `json:"cause"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// ListPartialFailures responds with every partial-leg failure recorded since
// process start. These represent live unhedged exposure.
// GET /api/status/failures
func (h *StatusHandler) ListPartialFailures(w http.ResponseWriter, r *http.Request) {
	if h.state == nil {
		writeJSON(w, http.StatusOK, []partialFailureDTO{})
		return
	}

	failures := h.state.PartialFailures()
	out := make([]partialFailureDTO, 0, len(failures))
	for _, f := range failures {
		dto := partialFailureDTO{
			OpportunityID:    f.OpportunityID,
			Strategy:         string(f.Strategy),
			PlacedLegs:       len(f.PlacedLegs),
			FailedInstrument: f.FailedLeg.InstrumentID,
			FailedVenue:      string(f.FailedLeg.Venue),
			OccurredAt:       f.OccurredAt,
		}
		if f.Cause != nil {
			dto.Cause = f.Cause.Error()
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}
