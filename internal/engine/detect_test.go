package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func vq(id string, venue domain.Venue, price, size string) venueQuote {
	return venueQuote{
		instrumentID: id,
		venue:        venue,
		quote:        domain.Quote{Price: d(price), Size: d(size)},
	}
}

func TestDoubleBuyEmitsWhenBothLegsUnderDollar(t *testing.T) {
	det := detector{minEdge: d("0.02")}

	a := outcome{asks: []venueQuote{vq("poly-a", domain.VenuePolymarketUS, "0.40", "30")}}
	b := outcome{asks: []venueQuote{vq("K-B", domain.VenueKalshi, "0.55", "50")}}

	opp, err := det.doubleBuy("poly-a|K-A", a, b)
	require.NoError(t, err)
	require.Len(t, opp.Legs, 2)

	assert.Equal(t, domain.StrategyDoubleBuy, opp.Strategy)
	assert.True(t, opp.Size.Equal(d("30")), "size floors to min quoted depth, got %s", opp.Size)
	assert.True(t, opp.GrossEdge.Equal(d("0.05")), "got %s", opp.GrossEdge)

	// Polymarket US leg is fee-free; Kalshi taker fee is
	// ceil_cent(0.07 * 30 * 0.55 * 0.45) = 0.52.
	assert.True(t, opp.Fees.Equal(d("0.52")), "got %s", opp.Fees)
	expectedNet := d("0.05").Sub(d("0.52").Div(d("30")))
	assert.True(t, opp.NetEdge.Equal(expectedNet), "got %s", opp.NetEdge)

	assert.Equal(t, domain.ActionBuy, opp.Legs[0].Action)
	assert.Equal(t, domain.ActionBuy, opp.Legs[1].Action)
}

func TestDoubleBuyBelowMinEdgeIsSilent(t *testing.T) {
	det := detector{minEdge: d("0.10")}

	a := outcome{asks: []venueQuote{vq("poly-a", domain.VenuePolymarketUS, "0.40", "30")}}
	b := outcome{asks: []venueQuote{vq("K-B", domain.VenueKalshi, "0.55", "50")}}

	opp, err := det.doubleBuy("poly-a|K-A", a, b)
	require.NoError(t, err)
	assert.Empty(t, opp.Legs)
}

func TestDoubleBuyRequiresBothAsks(t *testing.T) {
	det := detector{minEdge: d("0.02")}

	a := outcome{asks: []venueQuote{vq("poly-a", domain.VenuePolymarketUS, "0.40", "30")}}
	_, err := det.doubleBuy("poly-a|K-A", a, outcome{})
	require.ErrorIs(t, err, domain.ErrStaleQuote)
}

func TestDoubleBuySubContractSizeIsStale(t *testing.T) {
	det := detector{minEdge: decimal.Zero}

	a := outcome{asks: []venueQuote{vq("poly-a", domain.VenuePolymarketUS, "0.10", "0.4")}}
	b := outcome{asks: []venueQuote{vq("K-B", domain.VenueKalshi, "0.10", "50")}}

	_, err := det.doubleBuy("poly-a|K-A", a, b)
	require.ErrorIs(t, err, domain.ErrStaleQuote)
}

func TestDoubleBuyUsesBestAskAcrossVenues(t *testing.T) {
	det := detector{minEdge: decimal.Zero}

	a := outcome{asks: []venueQuote{
		vq("poly-a", domain.VenuePolymarketUS, "0.45", "30"),
		vq("K-A", domain.VenueKalshi, "0.40", "30"),
	}}
	b := outcome{asks: []venueQuote{vq("K-B", domain.VenueKalshi, "0.50", "30")}}

	opp, err := det.doubleBuy("poly-a|K-A", a, b)
	require.NoError(t, err)
	require.Len(t, opp.Legs, 2)
	assert.Equal(t, "K-A", opp.Legs[0].InstrumentID)
	assert.True(t, opp.Legs[0].Price.Equal(d("0.40")))
}

func TestDoubleSellEmitsWhenBidsExceedDollar(t *testing.T) {
	det := detector{minEdge: decimal.Zero}

	a := outcome{bids: []venueQuote{vq("poly-a", domain.VenuePolymarketUS, "0.60", "10")}}
	b := outcome{bids: []venueQuote{vq("poly-a-inverse", domain.VenuePolymarketUS, "0.47", "10")}}

	opp, err := det.doubleSell("poly-a|K-A", a, b)
	require.NoError(t, err)
	require.Len(t, opp.Legs, 2)
	assert.Equal(t, domain.StrategyDoubleSell, opp.Strategy)
	assert.True(t, opp.GrossEdge.Equal(d("0.07")), "got %s", opp.GrossEdge)
	assert.Equal(t, domain.ActionSell, opp.Legs[0].Action)
}

func TestSameSideCrossesVenues(t *testing.T) {
	det := detector{minEdge: decimal.Zero}

	// Kalshi bids 0.55, Polymarket asks 0.40 on the same outcome: buy on
	// Polymarket, sell on Kalshi.
	o := outcome{
		bids: []venueQuote{vq("K-A", domain.VenueKalshi, "0.55", "20")},
		asks: []venueQuote{vq("poly-a", domain.VenuePolymarketUS, "0.40", "15")},
	}

	opps := det.sameSide("poly-a|K-A", o)
	require.Len(t, opps, 1)
	opp := opps[0]

	assert.Equal(t, domain.StrategySameSide, opp.Strategy)
	assert.True(t, opp.Size.Equal(d("15")))
	assert.True(t, opp.GrossEdge.Equal(d("0.15")))
	assert.Equal(t, domain.ActionBuy, opp.Legs[0].Action)
	assert.Equal(t, "poly-a", opp.Legs[0].InstrumentID)
	assert.Equal(t, domain.ActionSell, opp.Legs[1].Action)
	assert.Equal(t, "K-A", opp.Legs[1].InstrumentID)
}

func TestSameSideIgnoresSameVenueCrosses(t *testing.T) {
	det := detector{minEdge: decimal.Zero}

	// A crossed book within one venue is a data artifact, not an arb.
	o := outcome{
		bids: []venueQuote{vq("K-A", domain.VenueKalshi, "0.55", "20")},
		asks: []venueQuote{vq("K-A", domain.VenueKalshi, "0.40", "15")},
	}
	assert.Empty(t, det.sameSide("K-A|K-B", o))
}

func TestOrderSizeFloorsToWholeContracts(t *testing.T) {
	size, ok := orderSize(d("12.7"), d("30"))
	require.True(t, ok)
	assert.True(t, size.Equal(d("12")))

	_, ok = orderSize(d("0.9"), d("30"))
	assert.False(t, ok)
}
