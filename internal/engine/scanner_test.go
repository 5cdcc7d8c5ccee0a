package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/book"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/mapping"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePort struct {
	mu         sync.Mutex
	balance    decimal.Decimal
	balanceErr error
	placeErr   error
	orders     []domain.OrderRequest
}

func (p *fakePort) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	if p.balanceErr != nil {
		return decimal.Zero, p.balanceErr
	}
	return p.balance, nil
}

func (p *fakePort) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderConfirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.placeErr != nil {
		return domain.OrderConfirmation{}, p.placeErr
	}
	p.orders = append(p.orders, req)
	return domain.OrderConfirmation{
		OrderID:       "ord-1",
		ClientOrderID: req.ClientOrderID,
		Status:        domain.OrderStatusExecuted,
		FilledSize:    req.Size,
	}, nil
}

func (p *fakePort) placed() []domain.OrderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderRequest(nil), p.orders...)
}

type fakeRecorder struct {
	mu            sync.Mutex
	opportunities []domain.Opportunity
	legResults    int
	partials      int
}

func (r *fakeRecorder) RecordOpportunity(ctx context.Context, opp domain.Opportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opportunities = append(r.opportunities, opp)
	return nil
}

func (r *fakeRecorder) RecordLegResults(ctx context.Context, oppID string, results []domain.LegResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.legResults++
	return nil
}

func (r *fakeRecorder) RecordPartialFailure(ctx context.Context, failure domain.PartialLegFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partials++
	return nil
}

type fakeAlerter struct {
	opportunities int
	partials      int
}

func (a *fakeAlerter) OpportunityDetected(ctx context.Context, opp domain.Opportunity) {
	a.opportunities++
}

func (a *fakeAlerter) PartialFailure(ctx context.Context, f domain.PartialLegFailure) {
	a.partials++
}

type harness struct {
	scanner  *Scanner
	registry *book.Registry
	poly     *fakePort
	kalshi   *fakePort
	recorder *fakeRecorder
}

// newHarness builds a scanner over one cross-venue pair: Polymarket markets
// poly-a / poly-b against Kalshi tickers K-A / K-B. The counterparts are
// explicit real markets so each outcome has exactly one book per venue.
func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mapping.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[pairs]]
polymarket = "poly-a"
kalshi = "K-A"
polymarket_counterpart = "poly-b"
kalshi_counterpart = "K-B"
`), 0o644))
	corr, err := mapping.Load(path)
	require.NoError(t, err)

	registry := book.NewRegistry(corr.Specs(), testLogger())

	poly := &fakePort{balance: d("1000")}
	kalshi := &fakePort{balance: d("1000")}
	rec := &fakeRecorder{}

	ports := map[domain.Venue]ExecutionPort{
		domain.VenuePolymarketUS: poly,
		domain.VenueKalshi:       kalshi,
	}
	return &harness{
		scanner:  NewScanner(registry, corr, ports, rec, cfg, testLogger()),
		registry: registry,
		poly:     poly,
		kalshi:   kalshi,
		recorder: rec,
	}
}

// loadDoubleBuyBooks quotes poly-a at ask 0.40x30 and K-B at ask 0.55x50:
// both outcomes together cost 0.95, a double-buy signal.
func (h *harness) loadDoubleBuyBooks(t *testing.T) {
	t.Helper()
	require.NoError(t, h.registry.LoadSnapshot("poly-a", nil,
		[]domain.PriceLevel{{Price: d("0.40"), Size: d("30")}}))
	require.NoError(t, h.registry.LoadSnapshot("K-B", nil,
		[]domain.PriceLevel{{Price: d("0.55"), Size: d("50")}}))
}

func TestScanExecutesDoubleBuy(t *testing.T) {
	h := newHarness(t, Config{MinEdge: d("0.02"), Execute: true})
	h.loadDoubleBuyBooks(t)

	h.scanner.Scan(context.Background())

	polyOrders := h.poly.placed()
	kalshiOrders := h.kalshi.placed()
	require.Len(t, polyOrders, 1)
	require.Len(t, kalshiOrders, 1)

	// The Polymarket leg trades the base market's long side.
	assert.Equal(t, "poly-a", polyOrders[0].InstrumentID)
	assert.Equal(t, domain.OutcomeLong, polyOrders[0].Outcome)
	assert.Equal(t, domain.ActionBuy, polyOrders[0].Action)
	assert.True(t, polyOrders[0].Size.Equal(d("30")))
	assert.NotEmpty(t, polyOrders[0].ClientOrderID)

	// Kalshi books are yes-normalized; every Kalshi leg is a yes order.
	assert.Equal(t, "K-B", kalshiOrders[0].InstrumentID)
	assert.Equal(t, domain.OutcomeYes, kalshiOrders[0].Outcome)

	require.Len(t, h.recorder.opportunities, 1)
	assert.Equal(t, 1, h.recorder.legResults)

	snap := h.scanner.State().Summary()
	assert.Equal(t, int64(30), snap.OrderCount)
}

func TestScanMonitorOnlyRecordsWithoutExecuting(t *testing.T) {
	h := newHarness(t, Config{MinEdge: d("0.02"), Execute: false})
	h.loadDoubleBuyBooks(t)

	h.scanner.Scan(context.Background())

	require.Len(t, h.recorder.opportunities, 1)
	assert.Empty(t, h.poly.placed())
	assert.Empty(t, h.kalshi.placed())
}

func TestScanDeduplicatesStaticBooks(t *testing.T) {
	h := newHarness(t, Config{MinEdge: d("0.02"), Execute: false})
	h.loadDoubleBuyBooks(t)

	h.scanner.Scan(context.Background())
	h.scanner.Scan(context.Background())
	require.Len(t, h.recorder.opportunities, 1, "unchanged books must not re-emit")

	// A price move invalidates the cached signal and re-arms the pair.
	require.NoError(t, h.registry.LoadSnapshot("poly-a", nil,
		[]domain.PriceLevel{{Price: d("0.39"), Size: d("30")}}))
	h.scanner.Scan(context.Background())
	assert.Len(t, h.recorder.opportunities, 2)
}

func TestScanSkipsOnInsufficientBalance(t *testing.T) {
	h := newHarness(t, Config{MinEdge: d("0.02"), Execute: true})
	h.loadDoubleBuyBooks(t)

	// Polymarket leg requires 0.40*30 = 12.00.
	h.poly.balance = d("5.00")

	h.scanner.Scan(context.Background())

	require.Len(t, h.recorder.opportunities, 1, "the signal is still recorded")
	assert.Empty(t, h.poly.placed())
	assert.Empty(t, h.kalshi.placed())
}

func TestScanRecordsPartialLegFailure(t *testing.T) {
	h := newHarness(t, Config{MinEdge: d("0.02"), Execute: true})
	h.loadDoubleBuyBooks(t)

	// First leg (Polymarket) fills, second leg (Kalshi) errors.
	h.kalshi.placeErr = errors.New("venue rejected connection")

	alerter := &fakeAlerter{}
	h.scanner.SetAlerter(alerter)

	h.scanner.Scan(context.Background())

	require.Len(t, h.poly.placed(), 1)
	assert.Empty(t, h.kalshi.placed())

	failures := h.scanner.State().PartialFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, "K-B", failures[0].FailedLeg.InstrumentID)
	assert.Len(t, failures[0].PlacedLegs, 1)
	assert.Equal(t, 1, h.recorder.partials)
	assert.Equal(t, 1, alerter.partials)
	assert.Equal(t, 1, alerter.opportunities)

	// The filled leg is never retried or unwound.
	h.scanner.Scan(context.Background())
	assert.Len(t, h.poly.placed(), 1)
}

func TestScanAbandonsOnFirstLegFailure(t *testing.T) {
	h := newHarness(t, Config{MinEdge: d("0.02"), Execute: true})
	h.loadDoubleBuyBooks(t)

	h.poly.placeErr = errors.New("timeout")

	h.scanner.Scan(context.Background())

	assert.Empty(t, h.kalshi.placed(), "no later leg placed after a first-leg failure")
	assert.Empty(t, h.scanner.State().PartialFailures())
	assert.Equal(t, 0, h.recorder.partials)
}

func TestScanUsesCachedBalanceOnRefreshFailure(t *testing.T) {
	h := newHarness(t, Config{MinEdge: d("0.02"), Execute: true})
	h.loadDoubleBuyBooks(t)

	// Prime the cache, then fail subsequent refreshes.
	h.scanner.State().SetBalance(domain.VenuePolymarketUS, d("1000"))
	h.scanner.State().SetBalance(domain.VenueKalshi, d("1000"))
	h.poly.balanceErr = errors.New("http 503")
	h.kalshi.balanceErr = errors.New("http 503")

	h.scanner.Scan(context.Background())

	assert.Len(t, h.poly.placed(), 1, "cached balance should allow execution")
	assert.Len(t, h.kalshi.placed(), 1)
}

func TestDoubleSellRequiresOptIn(t *testing.T) {
	h := newHarness(t, Config{MinEdge: decimal.Zero, Execute: false, AllowDoubleSell: false})

	// Bids sum to 1.07 across the pair: a double-sell signal.
	require.NoError(t, h.registry.LoadSnapshot("poly-a",
		[]domain.PriceLevel{{Price: d("0.60"), Size: d("10")}}, nil))
	require.NoError(t, h.registry.LoadSnapshot("K-B",
		[]domain.PriceLevel{{Price: d("0.47"), Size: d("10")}}, nil))

	h.scanner.Scan(context.Background())
	assert.Empty(t, h.recorder.opportunities, "double sell disabled by default")
}
