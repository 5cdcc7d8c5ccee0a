package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/mapping"
)

// Config holds the scanner's tunables.
type Config struct {
	// ScanInterval is the pause between full passes over the pair universe.
	ScanInterval time.Duration
	// MinEdge is the per-contract net edge required before acting, a buffer
	// absorbing slippage risk. Must be non-negative.
	MinEdge decimal.Decimal
	// AllowDoubleSell enables the synthetic-short detector. Off unless the
	// account holds or can short the underlying.
	AllowDoubleSell bool
	// Execute places orders when true; otherwise opportunities are only
	// logged and recorded.
	Execute bool
	// CallTimeout bounds each gateway call (balance query, order placement).
	CallTimeout time.Duration
}

// Scanner is the periodic arbitrage engine. Each cycle it walks the
// correlation map, evaluates the strategy detectors against the current
// books, deduplicates repeated signals, gates on balance, and drives the
// execution ports. Per-pair failures are isolated; one bad pair never
// aborts the rest of the cycle.
type Scanner struct {
	books      BookSource
	pairs      []mapping.Pair
	correlated map[string][]string
	ports      map[domain.Venue]ExecutionPort
	recorder   Recorder
	alerter    Alerter
	det        detector
	cfg        Config
	state      *ScanState
	logger     *slog.Logger
}

// NewScanner creates a scanner over the given correlation map. recorder may
// be nil.
func NewScanner(
	books BookSource,
	corr *mapping.Map,
	ports map[domain.Venue]ExecutionPort,
	recorder Recorder,
	cfg Config,
	logger *slog.Logger,
) *Scanner {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	return &Scanner{
		books:      books,
		pairs:      corr.Pairs(),
		correlated: corr.CorrelatedTickers(),
		ports:      ports,
		recorder:   recorder,
		det:        detector{minEdge: cfg.MinEdge},
		cfg:        cfg,
		state:      NewScanState(),
		logger:     logger.With(slog.String("component", "arb_scanner")),
	}
}

// State exposes the scanner's cross-cycle state for status surfaces.
func (s *Scanner) State() *ScanState { return s.state }

// SetAlerter attaches an operator notification hook. Must be called before
// Run.
func (s *Scanner) SetAlerter(a Alerter) { s.alerter = a }

// Run executes scan cycles at the configured interval until ctx is
// cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner started",
		slog.Int("pairs", len(s.pairs)),
		slog.Int("correlated", len(s.correlated)),
		slog.Duration("interval", s.cfg.ScanInterval),
		slog.Bool("execute", s.cfg.Execute),
	)
	defer s.logger.Info("scanner stopped")

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan runs one full pass over the cross-venue pairs and the venue-internal
// correlated tickers.
func (s *Scanner) Scan(ctx context.Context) {
	for _, p := range s.pairs {
		if ctx.Err() != nil {
			return
		}
		s.scanCrossVenue(ctx, p)
	}
	for _, ticker := range sortedKeys(s.correlated) {
		for _, other := range s.correlated[ticker] {
			if ctx.Err() != nil {
				return
			}
			s.scanIntraVenue(ctx, ticker, other)
		}
	}
}

// scanCrossVenue evaluates one Polymarket/Kalshi pair: both same-side
// directions per outcome, then the double-buy and double-sell compositions
// using the best price per outcome across venues.
func (s *Scanner) scanCrossVenue(ctx context.Context, p mapping.Pair) {
	pairKey := p.PolyID + "|" + p.KalshiTicker
	a := s.outcomeOf(p.PolyID, p.KalshiTicker)
	b := s.outcomeOf(p.OtherPolyID, p.OtherKalshiTicker)
	defer s.observe(a, b)

	for _, opp := range s.det.sameSide(pairKey, a) {
		s.handle(ctx, opp)
	}
	for _, opp := range s.det.sameSide(pairKey, b) {
		s.handle(ctx, opp)
	}

	s.evaluateDouble(ctx, pairKey, a, b)
}

// scanIntraVenue evaluates one correlated Kalshi ticker pair, where each
// outcome is quoted on a single venue.
func (s *Scanner) scanIntraVenue(ctx context.Context, ticker, other string) {
	pairKey := ticker + "|" + other
	a := s.outcomeOf(ticker)
	b := s.outcomeOf(other)
	defer s.observe(a, b)

	s.evaluateDouble(ctx, pairKey, a, b)
}

func (s *Scanner) evaluateDouble(ctx context.Context, pairKey string, a, b outcome) {
	if opp, err := s.det.doubleBuy(pairKey, a, b); err != nil {
		s.logger.Debug("pair skipped", slog.String("pair", pairKey), slog.String("reason", err.Error()))
	} else if len(opp.Legs) > 0 {
		if s.duplicateAsks(opp) {
			s.logger.Debug("double buy deduplicated", slog.String("pair", pairKey))
		} else {
			s.handle(ctx, opp)
		}
	}

	if !s.cfg.AllowDoubleSell {
		return
	}
	if opp, err := s.det.doubleSell(pairKey, a, b); err != nil {
		s.logger.Debug("pair skipped", slog.String("pair", pairKey), slog.String("reason", err.Error()))
	} else if len(opp.Legs) > 0 {
		if s.duplicateBids(opp) {
			s.logger.Debug("double sell deduplicated", slog.String("pair", pairKey))
		} else {
			s.handle(ctx, opp)
		}
	}
}

// outcomeOf collects the available top-of-book quotes for one outcome across
// the given instrument ids. Instruments with empty sides contribute nothing;
// a fully quoteless outcome surfaces later as ErrStaleQuote.
func (s *Scanner) outcomeOf(instrumentIDs ...string) outcome {
	var o outcome
	for _, id := range instrumentIDs {
		if id == "" {
			continue
		}
		inst, ok := s.books.Instrument(id)
		if !ok {
			continue
		}
		if q, ok := s.books.BestBid(id); ok {
			o.bids = append(o.bids, venueQuote{instrumentID: id, venue: inst.Venue, quote: q})
		}
		if q, ok := s.books.BestAsk(id); ok {
			o.asks = append(o.asks, venueQuote{instrumentID: id, venue: inst.Venue, quote: q})
		}
	}
	return o
}

// duplicateAsks reports whether every buy leg's price is identical to the
// cached best ask from the previous evaluation. A repeat signal against a
// static, already-acted-upon price is skipped.
func (s *Scanner) duplicateAsks(opp domain.Opportunity) bool {
	for _, leg := range opp.Legs {
		if !s.state.AskUnchanged(leg.InstrumentID, leg.Price) {
			return false
		}
	}
	return true
}

func (s *Scanner) duplicateBids(opp domain.Opportunity) bool {
	for _, leg := range opp.Legs {
		if !s.state.BidUnchanged(leg.InstrumentID, leg.Price) {
			return false
		}
	}
	return true
}

// observe refreshes the dedup cache with the current best prices of every
// instrument in the pair. Runs unconditionally after each evaluation.
func (s *Scanner) observe(outcomes ...outcome) {
	for _, o := range outcomes {
		for _, vq := range o.asks {
			s.state.ObserveAsk(vq.instrumentID, vq.quote.Price)
		}
		for _, vq := range o.bids {
			s.state.ObserveBid(vq.instrumentID, vq.quote.Price)
		}
	}
}

// handle takes one emitted opportunity through recording, balance gating,
// and execution. Failures are logged and isolated.
func (s *Scanner) handle(ctx context.Context, opp domain.Opportunity) {
	log := s.logger.With(
		slog.String("opportunity", opp.ID),
		slog.String("strategy", string(opp.Strategy)),
		slog.String("pair", opp.PairKey),
	)
	log.Info("opportunity detected",
		slog.String("gross_edge", opp.GrossEdge.String()),
		slog.String("fees", opp.Fees.String()),
		slog.String("net_edge", opp.NetEdge.String()),
		slog.String("size", opp.Size.String()),
	)

	// Counters track detected signals, not fills: they advance even in
	// monitor mode or when the balance gate skips execution below.
	s.state.AddOrders(opp.Size.IntPart())
	s.state.AddEstimatedProfit(opp.NetEdge.Mul(opp.Size))

	if s.alerter != nil {
		s.alerter.OpportunityDetected(ctx, opp)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordOpportunity(ctx, opp); err != nil {
			log.Warn("opportunity record failed", slog.String("error", err.Error()))
		}
	}

	if !s.cfg.Execute {
		return
	}

	if err := s.gateBalance(ctx, opp); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			log.Warn("insufficient balance, skipping", slog.String("error", err.Error()))
		} else {
			log.Warn("balance gate failed, skipping", slog.String("error", err.Error()))
		}
		return
	}

	s.execute(ctx, opp, log)
}

// gateBalance compares the opportunity's required capital per venue against
// that venue's balance. The balance cache is refreshed here, immediately
// before an attempted execution, never on idle ticks.
func (s *Scanner) gateBalance(ctx context.Context, opp domain.Opportunity) error {
	required := make(map[domain.Venue]decimal.Decimal)
	for _, leg := range opp.Legs {
		if leg.Action != domain.ActionBuy {
			continue
		}
		required[leg.Venue] = required[leg.Venue].Add(leg.Price.Mul(leg.Size))
	}

	for venue, amount := range required {
		balance, err := s.refreshBalance(ctx, venue)
		if err != nil {
			return err
		}
		if balance.LessThan(amount) {
			return fmt.Errorf("venue %s requires %s, available %s: %w",
				venue, amount, balance, domain.ErrInsufficientBalance)
		}
	}
	return nil
}

// refreshBalance queries the venue's balance with a bounded timeout and
// caches it. On a transient gateway failure the previously cached value is
// used when available.
func (s *Scanner) refreshBalance(ctx context.Context, venue domain.Venue) (decimal.Decimal, error) {
	port, ok := s.ports[venue]
	if !ok {
		return decimal.Zero, &domain.GatewayError{Venue: venue, Op: "get_balance", Err: errors.New("no execution port configured")}
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	balance, err := port.GetBalance(cctx)
	cancel()
	if err != nil {
		if cached, ok := s.state.CachedBalance(venue); ok {
			s.logger.Warn("balance refresh failed, using cached value",
				slog.String("venue", string(venue)),
				slog.String("error", err.Error()),
			)
			return cached, nil
		}
		return decimal.Zero, err
	}
	s.state.SetBalance(venue, balance)
	return balance, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
