package feed

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type snapshotCall struct {
	instrumentID string
	bids         []domain.PriceLevel
	asks         []domain.PriceLevel
}

type deltaCall struct {
	instrumentID string
	side         domain.BookSide
	price        decimal.Decimal
	delta        decimal.Decimal
}

type fakeSink struct {
	snapshots []snapshotCall
	deltas    []deltaCall
	err       error
}

func (s *fakeSink) LoadSnapshot(instrumentID string, bids, asks []domain.PriceLevel) error {
	if s.err != nil {
		return s.err
	}
	s.snapshots = append(s.snapshots, snapshotCall{instrumentID, bids, asks})
	return nil
}

func (s *fakeSink) ApplyDelta(instrumentID string, side domain.BookSide, price, delta decimal.Decimal) error {
	if s.err != nil {
		return s.err
	}
	s.deltas = append(s.deltas, deltaCall{instrumentID, side, price, delta})
	return nil
}

func newKalshiFixture() (*KalshiFeed, *fakeSink, *[]string) {
	sink := &fakeSink{}
	var touched []string
	f := NewKalshiFeed("wss://api.elections.kalshi.com/trade-api/ws/v2",
		[]string{"K-HOME"}, nil, sink,
		func(id string) { touched = append(touched, id) },
		testLogger())
	return f, sink, &touched
}

func TestKalshiSnapshotNormalization(t *testing.T) {
	f, sink, touched := newKalshiFixture()

	f.handleMessage([]byte(`{
		"type": "orderbook_snapshot",
		"msg": {
			"market_ticker": "K-HOME",
			"yes_dollars": [["0.30", "100"], ["0.32", "40"]],
			"no_dollars": [["0.30", "50"]]
		}
	}`))

	require.Len(t, sink.snapshots, 1)
	snap := sink.snapshots[0]
	assert.Equal(t, "K-HOME", snap.instrumentID)

	// Yes liquidity lands as bids at the quoted price.
	require.Len(t, snap.bids, 2)
	assert.True(t, snap.bids[0].Price.Equal(d("0.30")))
	assert.True(t, snap.bids[1].Price.Equal(d("0.32")))
	assert.True(t, snap.bids[0].Size.Equal(d("100")))

	// No liquidity becomes asks at the complement price.
	require.Len(t, snap.asks, 1)
	assert.True(t, snap.asks[0].Price.Equal(d("0.70")))
	assert.True(t, snap.asks[0].Size.Equal(d("50")))

	assert.Equal(t, []string{"K-HOME"}, *touched)
}

func TestKalshiSnapshotSkipsUnparsableLevels(t *testing.T) {
	f, sink, _ := newKalshiFixture()

	f.handleMessage([]byte(`{
		"type": "orderbook_snapshot",
		"msg": {
			"market_ticker": "K-HOME",
			"yes_dollars": [["not-a-price", "100"], ["0.40", "10"]],
			"no_dollars": []
		}
	}`))

	require.Len(t, sink.snapshots, 1)
	require.Len(t, sink.snapshots[0].bids, 1)
	assert.True(t, sink.snapshots[0].bids[0].Price.Equal(d("0.40")))
}

func TestKalshiDeltaSides(t *testing.T) {
	f, sink, touched := newKalshiFixture()

	f.handleMessage([]byte(`{
		"type": "orderbook_delta",
		"msg": {"market_ticker": "K-HOME", "price_dollars": "0.35", "delta": 20, "side": "yes"}
	}`))
	f.handleMessage([]byte(`{
		"type": "orderbook_delta",
		"msg": {"market_ticker": "K-HOME", "price_dollars": "0.35", "delta": -5, "side": "no"}
	}`))

	require.Len(t, sink.deltas, 2)

	yes := sink.deltas[0]
	assert.Equal(t, domain.SideBid, yes.side)
	assert.True(t, yes.price.Equal(d("0.35")))
	assert.True(t, yes.delta.Equal(d("20")))

	no := sink.deltas[1]
	assert.Equal(t, domain.SideAsk, no.side)
	assert.True(t, no.price.Equal(d("0.65")), "no-side delta complements the price")
	assert.True(t, no.delta.Equal(d("-5")))

	assert.Equal(t, []string{"K-HOME", "K-HOME"}, *touched)
}

func TestKalshiDeltaBadPriceDropped(t *testing.T) {
	f, sink, touched := newKalshiFixture()

	f.handleMessage([]byte(`{
		"type": "orderbook_delta",
		"msg": {"market_ticker": "K-HOME", "price_dollars": "garbage", "delta": 1, "side": "yes"}
	}`))

	assert.Empty(t, sink.deltas)
	assert.Empty(t, *touched)
}

func TestKalshiIgnoresUnknownAndMalformedFrames(t *testing.T) {
	f, sink, touched := newKalshiFixture()

	f.handleMessage([]byte(`{"type": "subscribed", "msg": {"sid": 1}}`))
	f.handleMessage([]byte(`not json at all`))
	f.handleMessage([]byte(`{"type": "error", "msg": {"code": 6, "msg": "unknown ticker"}}`))

	assert.Empty(t, sink.snapshots)
	assert.Empty(t, sink.deltas)
	assert.Empty(t, *touched)
}

func TestKalshiSinkErrorSuppressesTopOfBook(t *testing.T) {
	f, sink, touched := newKalshiFixture()
	sink.err = errors.New("unknown instrument")

	f.handleMessage([]byte(`{
		"type": "orderbook_delta",
		"msg": {"market_ticker": "K-ELSEWHERE", "price_dollars": "0.50", "delta": 1, "side": "yes"}
	}`))

	assert.Empty(t, *touched)
}

func TestReconnectBackoffDoublesToCap(t *testing.T) {
	delay := reconnectDelay
	for i := 0; i < 10; i++ {
		next := nextDelay(delay)
		assert.GreaterOrEqual(t, next, delay)
		assert.LessOrEqual(t, next, maxReconnectDelay)
		delay = next
	}
	assert.Equal(t, maxReconnectDelay, delay)
}
