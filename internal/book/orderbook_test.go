package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func level(price, size string) domain.PriceLevel {
	return domain.PriceLevel{Price: d(price), Size: d(size)}
}

func TestApplyAndBestQuotes(t *testing.T) {
	b := New("mkt")

	require.NoError(t, b.Apply(domain.SideBid, d("0.40"), d("10")))
	require.NoError(t, b.Apply(domain.SideBid, d("0.45"), d("5")))
	require.NoError(t, b.Apply(domain.SideAsk, d("0.55"), d("7")))
	require.NoError(t, b.Apply(domain.SideAsk, d("0.50"), d("3")))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(d("0.45")))
	assert.True(t, bid.Size.Equal(d("5")))

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Price.Equal(d("0.50")))
	assert.True(t, ask.Size.Equal(d("3")))
}

func TestApplyIsIdempotent(t *testing.T) {
	b := New("mkt")
	require.NoError(t, b.Apply(domain.SideBid, d("0.40"), d("10")))
	require.NoError(t, b.Apply(domain.SideBid, d("0.40"), d("10")))

	assert.Equal(t, 1, b.Depth(domain.SideBid))
	assert.True(t, b.SizeAt(domain.SideBid, d("0.40")).Equal(d("10")))
}

func TestApplyZeroSizeRemovesLevel(t *testing.T) {
	b := New("mkt")
	require.NoError(t, b.Apply(domain.SideAsk, d("0.60"), d("4")))
	require.NoError(t, b.Apply(domain.SideAsk, d("0.60"), decimal.Zero))

	assert.Equal(t, 0, b.Depth(domain.SideAsk))

	// Removing an absent level is a no-op, not an error.
	require.NoError(t, b.Apply(domain.SideAsk, d("0.60"), decimal.Zero))
}

func TestApplyRejectsInvalidPrice(t *testing.T) {
	b := New("mkt")
	require.NoError(t, b.Apply(domain.SideBid, d("0.40"), d("10")))

	for _, p := range []decimal.Decimal{decimal.Zero, d("1"), d("1.5"), d("-0.1")} {
		err := b.Apply(domain.SideBid, p, d("1"))
		require.ErrorIs(t, err, domain.ErrInvalidPrice)
	}

	// Book unchanged after rejections.
	assert.Equal(t, 1, b.Depth(domain.SideBid))
}

func TestApplyDelta(t *testing.T) {
	b := New("mkt")
	require.NoError(t, b.ApplyDelta(domain.SideBid, d("0.30"), d("10")))
	require.NoError(t, b.ApplyDelta(domain.SideBid, d("0.30"), d("-4")))
	assert.True(t, b.SizeAt(domain.SideBid, d("0.30")).Equal(d("6")))

	// Over-withdrawal clamps to zero and removes the level.
	require.NoError(t, b.ApplyDelta(domain.SideBid, d("0.30"), d("-100")))
	assert.Equal(t, 0, b.Depth(domain.SideBid))
}

func TestEmptyBookHasNoQuotes(t *testing.T) {
	b := New("mkt")
	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
}

func TestLoadSnapshotReplacesBook(t *testing.T) {
	b := New("mkt")
	require.NoError(t, b.Apply(domain.SideBid, d("0.10"), d("1")))

	b.LoadSnapshot(
		[]domain.PriceLevel{level("0.40", "10"), level("0.42", "5")},
		[]domain.PriceLevel{level("0.55", "3")},
	)

	assert.True(t, b.SizeAt(domain.SideBid, d("0.10")).IsZero())
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(d("0.42")))
}

func TestLoadSnapshotDropsInvalidLevels(t *testing.T) {
	b := New("mkt")
	b.LoadSnapshot(
		[]domain.PriceLevel{level("0.40", "10"), {Price: d("1.2"), Size: d("5")}, {Price: d("0.35"), Size: decimal.Zero}},
		nil,
	)
	assert.Equal(t, 1, b.Depth(domain.SideBid))
}

func TestLoadSnapshotKeepsLastDuplicatePrice(t *testing.T) {
	b := New("mkt")

	// Many repeats of one price so an order-sensitive sort would get
	// caught: only the final size at 0.40 may survive.
	bids := []domain.PriceLevel{level("0.38", "1")}
	for i := 1; i <= 20; i++ {
		bids = append(bids, level("0.40", decimal.NewFromInt(int64(i)).String()))
	}
	bids = append(bids, level("0.39", "2"))

	b.LoadSnapshot(bids, nil)

	assert.Equal(t, 3, b.Depth(domain.SideBid))
	assert.True(t, b.SizeAt(domain.SideBid, d("0.40")).Equal(d("20")))
}

func TestTopOfBook(t *testing.T) {
	b := New("mkt")
	require.NoError(t, b.Apply(domain.SideBid, d("0.44"), d("2")))

	top := b.TopOfBook()
	assert.Equal(t, "mkt", top.InstrumentID)
	require.NotNil(t, top.BestBid)
	assert.True(t, top.BestBid.Price.Equal(d("0.44")))
	assert.Nil(t, top.BestAsk)
}
