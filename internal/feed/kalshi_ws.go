package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/fees"
)

// KalshiFeed subscribes to the Kalshi orderbook_delta channel and keeps the
// sink's books current. Kalshi yes levels map to bids at the quoted price and
// no levels map to asks at one minus the quoted price.
type KalshiFeed struct {
	wsURL   string
	tickers []string
	signer  HeaderSigner
	sink    BookSink
	onTop   TopOfBookHandler
	logger  *slog.Logger
}

// NewKalshiFeed creates a feed for the given market tickers.
func NewKalshiFeed(wsURL string, tickers []string, signer HeaderSigner, sink BookSink, onTop TopOfBookHandler, logger *slog.Logger) *KalshiFeed {
	return &KalshiFeed{
		wsURL:   wsURL,
		tickers: tickers,
		signer:  signer,
		sink:    sink,
		onTop:   onTop,
		logger:  logger.With(slog.String("component", "kalshi_feed")),
	}
}

// Run connects, subscribes, and processes messages until ctx is cancelled.
// Reconnects with exponential backoff on disconnect.
func (f *KalshiFeed) Run(ctx context.Context) error {
	if len(f.tickers) == 0 {
		f.logger.Info("no tickers to subscribe, exiting")
		return nil
	}
	delay := reconnectDelay
	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("kalshi ws disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = nextDelay(delay)
	}
}

func (f *KalshiFeed) runConnection(ctx context.Context) error {
	u, err := url.Parse(f.wsURL)
	if err != nil {
		return fmt.Errorf("feed/kalshi: parse ws url: %w", err)
	}
	headers := http.Header{}
	if f.signer != nil {
		headers, err = f.signer.SignedHeaders(http.MethodGet, u.Path)
		if err != nil {
			return fmt.Errorf("feed/kalshi: sign headers: %w", err)
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, headers)
	if err != nil {
		return fmt.Errorf("feed/kalshi: connect: %w", err)
	}
	defer conn.Close()

	sub := kalshiCommand{
		ID:  1,
		Cmd: "subscribe",
		Params: kalshiParams{
			Channels:      []string{"orderbook_delta"},
			MarketTickers: f.tickers,
		},
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed/kalshi: subscribe: %w", err)
	}
	f.logger.Info("kalshi ws subscribed", slog.Int("tickers", len(f.tickers)))

	// Close the connection when ctx is cancelled to unblock ReadMessage.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed/kalshi: read: %w", err)
		}
		f.handleMessage(raw)
	}
}

func (f *KalshiFeed) handleMessage(raw []byte) {
	var env kalshiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.Type {
	case "orderbook_snapshot":
		var snap kalshiSnapshot
		if err := json.Unmarshal(env.Msg, &snap); err != nil {
			f.logger.Warn("bad orderbook_snapshot", slog.String("error", err.Error()))
			return
		}
		f.applySnapshot(snap)

	case "orderbook_delta":
		var delta kalshiDelta
		if err := json.Unmarshal(env.Msg, &delta); err != nil {
			f.logger.Warn("bad orderbook_delta", slog.String("error", err.Error()))
			return
		}
		f.applyDelta(delta)

	case "error":
		f.logger.Error("kalshi ws error", slog.String("message", string(env.Msg)))
	}
}

func (f *KalshiFeed) applySnapshot(snap kalshiSnapshot) {
	bids := make([]domain.PriceLevel, 0, len(snap.YesDollars))
	for _, lvl := range snap.YesDollars {
		price, size, err := parseLevel(lvl)
		if err != nil {
			continue
		}
		bids = append(bids, domain.PriceLevel{Price: price, Size: size})
	}
	asks := make([]domain.PriceLevel, 0, len(snap.NoDollars))
	for _, lvl := range snap.NoDollars {
		price, size, err := parseLevel(lvl)
		if err != nil {
			continue
		}
		asks = append(asks, domain.PriceLevel{Price: fees.Complement(price), Size: size})
	}

	if err := f.sink.LoadSnapshot(snap.MarketTicker, bids, asks); err != nil {
		f.logger.Warn("snapshot dropped",
			slog.String("ticker", snap.MarketTicker),
			slog.String("error", err.Error()))
		return
	}
	if f.onTop != nil {
		f.onTop(snap.MarketTicker)
	}
}

func (f *KalshiFeed) applyDelta(d kalshiDelta) {
	price, err := decimal.NewFromString(d.PriceDollars)
	if err != nil {
		f.logger.Warn("bad delta price",
			slog.String("ticker", d.MarketTicker),
			slog.String("price", d.PriceDollars))
		return
	}

	side := domain.SideBid
	if d.Side == "no" {
		side = domain.SideAsk
		price = fees.Complement(price)
	}

	if err := f.sink.ApplyDelta(d.MarketTicker, side, price, decimal.NewFromInt(d.Delta)); err != nil {
		f.logger.Warn("delta dropped",
			slog.String("ticker", d.MarketTicker),
			slog.String("error", err.Error()))
		return
	}
	if f.onTop != nil {
		f.onTop(d.MarketTicker)
	}
}

func parseLevel(lvl [2]string) (price, size decimal.Decimal, err error) {
	price, err = decimal.NewFromString(lvl[0])
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	size, err = decimal.NewFromString(lvl[1])
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return price, size, nil
}

type kalshiCommand struct {
	ID     int          `json:"id"`
	Cmd    string       `json:"cmd"`
	Params kalshiParams `json:"params"`
}

type kalshiParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

type kalshiEnvelope struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

type kalshiSnapshot struct {
	MarketTicker string           `json:"market_ticker"`
	// Levels stay strings until parseLevel so one bad level drops
	// itself, not the whole snapshot.
	YesDollars [][2]string `json:"yes_dollars"`
	NoDollars  [][2]string `json:"no_dollars"`
}

type kalshiDelta struct {
	MarketTicker string `json:"market_ticker"`
	PriceDollars string `json:"price_dollars"`
	Delta        int64  `json:"delta"`
	Side         string `json:"side"`
}
