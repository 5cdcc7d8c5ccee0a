// Package mapping loads the static correlation map that defines the scan
// universe: which Polymarket US market corresponds to which Kalshi ticker,
// and which venue-internal tickers are two sides of the same binary event.
// The map is built offline, loaded once at startup, and immutable afterwards.
package mapping

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/alanyoungcy/crossarb/internal/book"
	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Pair links one binary event across venues. The Polymarket counterpart is
// the synthetic inverse of the quoted market; the Kalshi counterpart is the
// opposing team's own ticker.
type Pair struct {
	PolyID            string `toml:"polymarket"`
	KalshiTicker      string `toml:"kalshi"`
	OtherPolyID       string `toml:"polymarket_counterpart"`
	OtherKalshiTicker string `toml:"kalshi_counterpart"`
}

// Map is the loaded correlation map.
type Map struct {
	pairs      []Pair
	correlated map[string][]string
}

type fileFormat struct {
	Pairs      []Pair              `toml:"pairs"`
	Correlated map[string][]string `toml:"correlated"`
}

// Load reads and validates the correlation map at path. A load failure is
// fatal at startup; there is no scan universe without it.
func Load(path string) (*Map, error) {
	var raw fileFormat
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("mapping: decode %s: %w", path, err)
	}
	return build(raw)
}

func build(raw fileFormat) (*Map, error) {
	if len(raw.Pairs) == 0 && len(raw.Correlated) == 0 {
		return nil, fmt.Errorf("mapping: no pairs or correlated tickers defined")
	}

	seen := make(map[string]bool, len(raw.Pairs))
	pairs := make([]Pair, 0, len(raw.Pairs))
	for i, p := range raw.Pairs {
		if p.PolyID == "" || p.KalshiTicker == "" || p.OtherKalshiTicker == "" {
			return nil, fmt.Errorf("mapping: pair %d incomplete (polymarket=%q kalshi=%q kalshi_counterpart=%q)",
				i, p.PolyID, p.KalshiTicker, p.OtherKalshiTicker)
		}
		if p.KalshiTicker == p.OtherKalshiTicker {
			return nil, fmt.Errorf("mapping: pair %d maps %s to itself", i, p.KalshiTicker)
		}
		if p.OtherPolyID == "" {
			p.OtherPolyID = domain.InverseID(p.PolyID)
		}
		if seen[p.PolyID] {
			return nil, fmt.Errorf("mapping: duplicate polymarket id %s", p.PolyID)
		}
		seen[p.PolyID] = true
		pairs = append(pairs, p)
	}

	correlated := make(map[string][]string, len(raw.Correlated)*2)
	for ticker, others := range raw.Correlated {
		for _, other := range others {
			if other == ticker {
				return nil, fmt.Errorf("mapping: ticker %s correlated with itself", ticker)
			}
			correlated[ticker] = append(correlated[ticker], other)
		}
	}

	return &Map{pairs: pairs, correlated: correlated}, nil
}

// Pairs returns the cross-venue scan universe.
func (m *Map) Pairs() []Pair {
	out := make([]Pair, len(m.pairs))
	copy(out, m.pairs)
	return out
}

// Correlated returns the venue-internal correlated tickers of ticker, or nil.
func (m *Map) Correlated(ticker string) []string {
	return m.correlated[ticker]
}

// CorrelatedTickers returns every ticker that appears in the venue-internal
// correlation table, as (ticker, correlated) tuples in table order.
func (m *Map) CorrelatedTickers() map[string][]string {
	out := make(map[string][]string, len(m.correlated))
	for k, v := range m.correlated {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Specs derives the full instrument universe for the book registry:
// Polymarket markets carry a synthetic inverse book, Kalshi tickers are
// quoted on both sides natively.
func (m *Map) Specs() []book.Spec {
	add := make(map[string]book.Spec)
	for _, p := range m.pairs {
		add[p.PolyID] = book.Spec{ID: p.PolyID, Venue: domain.VenuePolymarketUS, WithInverse: true}
		if p.OtherPolyID != domain.InverseID(p.PolyID) {
			// Explicit counterpart: a real market with its own feed, not
			// the derived inverse.
			add[p.OtherPolyID] = book.Spec{ID: p.OtherPolyID, Venue: domain.VenuePolymarketUS, WithInverse: true}
		}
		add[p.KalshiTicker] = book.Spec{ID: p.KalshiTicker, Venue: domain.VenueKalshi}
		add[p.OtherKalshiTicker] = book.Spec{ID: p.OtherKalshiTicker, Venue: domain.VenueKalshi}
	}
	for ticker, others := range m.correlated {
		if _, ok := add[ticker]; !ok {
			add[ticker] = book.Spec{ID: ticker, Venue: domain.VenueKalshi}
		}
		for _, other := range others {
			if _, ok := add[other]; !ok {
				add[other] = book.Spec{ID: other, Venue: domain.VenueKalshi}
			}
		}
	}

	specs := make([]book.Spec, 0, len(add))
	for _, s := range add {
		specs = append(specs, s)
	}
	return specs
}
