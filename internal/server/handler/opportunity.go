package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// OpportunityStore is the read side of the execution store. Implemented by
// the Postgres recorder.
type OpportunityStore interface {
	RecentOpportunities(ctx context.Context, limit int) ([]domain.Opportunity, error)
	OpportunityByID(ctx context.Context, id string) (domain.Opportunity, error)
}

// OpportunityHandler serves recorded arbitrage opportunities.
type OpportunityHandler struct {
	store OpportunityStore // nil when persistence is disabled
}

// NewOpportunityHandler creates an OpportunityHandler. store may be nil.
func NewOpportunityHandler(store OpportunityStore) *OpportunityHandler {
	return &OpportunityHandler{store: store}
}

type opportunityDTO struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	PairKey    string    `json:"pair_key"`
	Size       string    `json:"size"`
	GrossEdge  string    `json:"gross_edge"`
	Fees       string    `json:"fees"`
	NetEdge    string    `json:"net_edge"`
	DetectedAt time.Time `json:"detected_at"`
	Legs       []legDTO  `json:"legs,omitempty"`
}

type legDTO struct {
	InstrumentID string `json:"instrument_id"`
	Venue        string `json:"venue"`
	Action       string `json:"action"`
	Price        string `json:"price"`
	Size         string `json:"size"`
}

// ListRecent responds with the most recently detected opportunities.
// GET /api/opportunities?limit=50
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	opps, err := h.store.RecentOpportunities(r.Context(), parseLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	out := make([]opportunityDTO, 0, len(opps))
	for _, opp := range opps {
		out = append(out, toOpportunityDTO(opp))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetByID responds with one opportunity, legs included.
// GET /api/opportunities/{id}
func (h *OpportunityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	opp, err := h.store.OpportunityByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, toOpportunityDTO(opp))
}

func toOpportunityDTO(opp domain.Opportunity) opportunityDTO {
	dto := opportunityDTO{
		ID:         opp.ID,
		Strategy:   string(opp.Strategy),
		PairKey:    opp.PairKey,
		Size:       opp.Size.String(),
		GrossEdge:  opp.GrossEdge.String(),
		Fees:       opp.Fees.String(),
		NetEdge:    opp.NetEdge.String(),
		DetectedAt: opp.DetectedAt,
	}
	for _, leg := range opp.Legs {
		dto.Legs = append(dto.Legs, legDTO{
			InstrumentID: leg.InstrumentID,
			Venue:        string(leg.Venue),
			Action:       string(leg.Action),
			Price:        leg.Price.String(),
			Size:         leg.Size.String(),
		})
	}
	return dto
}
