package handler

import (
	"net/http"

	"github.com/alanyoungcy/crossarb/internal/book"
	"github.com/alanyoungcy/crossarb/internal/domain"
)

// BookHandler serves live orderbook state from the in-memory registry.
type BookHandler struct {
	books *book.Registry
}

// NewBookHandler creates a BookHandler over the registry.
func NewBookHandler(books *book.Registry) *BookHandler {
	return &BookHandler{books: books}
}

type bookDTO struct {
	InstrumentID string    `json:"instrument_id"`
	Venue        string    `json:"venue"`
	Inverse      bool      `json:"inverse,omitempty"`
	BestBid      *quoteDTO `json:"best_bid,omitempty"`
	BestAsk      *quoteDTO `json:"best_ask,omitempty"`
}

type quoteDTO struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ListBooks responds with the top of book of every registered instrument.
// GET /api/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	ids := h.books.IDs()
	out := make([]bookDTO, 0, len(ids))
	for _, id := range ids {
		if dto, ok := h.bookDTO(id); ok {
			out = append(out, dto)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetBook responds with one instrument's top of book.
// GET /api/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	dto, ok := h.bookDTO(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *BookHandler) bookDTO(id string) (bookDTO, bool) {
	inst, ok := h.books.Instrument(id)
	if !ok {
		return bookDTO{}, false
	}
	dto := bookDTO{
		InstrumentID: inst.ID,
		Venue:        string(inst.Venue),
		Inverse:      inst.IsInverse,
	}
	if q, ok := h.books.BestBid(id); ok {
		dto.BestBid = toQuoteDTO(q)
	}
	if q, ok := h.books.BestAsk(id); ok {
		dto.BestAsk = toQuoteDTO(q)
	}
	return dto, true
}

func toQuoteDTO(q domain.Quote) *quoteDTO {
	return &quoteDTO{Price: q.Price.String(), Size: q.Size.String()}
}
