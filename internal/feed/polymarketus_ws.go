package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/fees"
)

// pingInterval is how often the Polymarket US feed sends its text PING.
const pingInterval = 10 * time.Second

// PolymarketUSFeed subscribes to market data for the configured slugs and
// keeps both the base and the inverse books current. The venue publishes the
// long side only; the inverse book is derived by mirroring at the complement
// price, so an ask on the base becomes a bid on the inverse.
type PolymarketUSFeed struct {
	baseURL string
	slugs   []string
	signer  HeaderSigner
	sink    BookSink
	onTop   TopOfBookHandler
	logger  *slog.Logger

	writeMu sync.Mutex
}

// NewPolymarketUSFeed creates a feed for the given market slugs. baseURL is
// the websocket origin, e.g. "wss://api.polymarket.us".
func NewPolymarketUSFeed(baseURL string, slugs []string, signer HeaderSigner, sink BookSink, onTop TopOfBookHandler, logger *slog.Logger) *PolymarketUSFeed {
	return &PolymarketUSFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		slugs:   slugs,
		signer:  signer,
		sink:    sink,
		onTop:   onTop,
		logger:  logger.With(slog.String("component", "polymarketus_feed")),
	}
}

// Run connects, subscribes, and processes messages until ctx is cancelled.
// Reconnects with exponential backoff on disconnect.
func (f *PolymarketUSFeed) Run(ctx context.Context) error {
	if len(f.slugs) == 0 {
		f.logger.Info("no slugs to subscribe, exiting")
		return nil
	}
	delay := reconnectDelay
	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("polymarketus ws disconnected, reconnecting",
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

func (f *PolymarketUSFeed) runConnection(ctx context.Context) error {
	const path = "/v1/ws/markets"

	headers := http.Header{}
	if f.signer != nil {
		var err error
		headers, err = f.signer.SignedHeaders(http.MethodGet, path)
		if err != nil {
			return fmt.Errorf("feed/polymarketus: sign headers: %w", err)
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.baseURL+path, headers)
	if err != nil {
		return fmt.Errorf("feed/polymarketus: connect: %w", err)
	}
	defer conn.Close()

	sub := pmusSubscribe{Subscribe: pmusSubscribeBody{
		RequestID:        "md-sub-1",
		SubscriptionType: "SUBSCRIPTION_TYPE_MARKET_DATA",
		MarketSlugs:      f.slugs,
	}}
	if err := f.writeJSON(conn, sub); err != nil {
		return fmt.Errorf("feed/polymarketus: subscribe: %w", err)
	}
	f.logger.Info("polymarketus ws subscribed", slog.Int("slugs", len(f.slugs)))

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	// The venue has no protocol-level keepalive; it expects a text PING and
	// answers with a text PONG.
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go f.pingLoop(pingCtx, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed/polymarketus: read: %w", err)
		}
		if string(raw) == "PONG" {
			continue
		}
		f.handleMessage(raw)
	}
}

func (f *PolymarketUSFeed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeText(conn, "PING"); err != nil {
				return
			}
		}
	}
}

func (f *PolymarketUSFeed) writeJSON(conn *websocket.Conn, v any) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (f *PolymarketUSFeed) writeText(conn *websocket.Conn, s string) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// handleMessage routes one frame, which may hold a single message or a batch.
func (f *PolymarketUSFeed) handleMessage(raw []byte) {
	var batch []pmusMessage
	if err := json.Unmarshal(raw, &batch); err != nil {
		var single pmusMessage
		if err := json.Unmarshal(raw, &single); err != nil {
			return
		}
		batch = []pmusMessage{single}
	}
	for _, m := range batch {
		if m.SubscriptionType != "SUBSCRIPTION_TYPE_MARKET_DATA" || m.MarketData == nil {
			continue
		}
		f.applySnapshot(*m.MarketData)
	}
}

// applySnapshot loads the long-side snapshot into the base book and the
// mirrored snapshot into the inverse book.
func (f *PolymarketUSFeed) applySnapshot(md pmusMarketData) {
	bids := parseLevels(md.Bids)
	asks := parseLevels(md.Asks)

	if err := f.sink.LoadSnapshot(md.MarketSlug, bids, asks); err != nil {
		f.logger.Warn("snapshot dropped",
			slog.String("slug", md.MarketSlug),
			slog.String("error", err.Error()))
		return
	}

	inverseID := domain.InverseID(md.MarketSlug)
	if err := f.sink.LoadSnapshot(inverseID, mirror(asks), mirror(bids)); err != nil {
		f.logger.Warn("inverse snapshot dropped",
			slog.String("slug", inverseID),
			slog.String("error", err.Error()))
		return
	}

	if f.onTop != nil {
		f.onTop(md.MarketSlug)
		f.onTop(inverseID)
	}
}

func parseLevels(raw []pmusLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		price, err := decimal.NewFromString(lvl.Price.Value)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(lvl.Quantity)
		if err != nil {
			continue
		}
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out
}

func mirror(levels []domain.PriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(levels))
	for i, lvl := range levels {
		out[i] = domain.PriceLevel{Price: fees.Complement(lvl.Price), Size: lvl.Size}
	}
	return out
}

type pmusSubscribe struct {
	Subscribe pmusSubscribeBody `json:"subscribe"`
}

type pmusSubscribeBody struct {
	RequestID        string   `json:"requestId"`
	SubscriptionType string   `json:"subscriptionType"`
	MarketSlugs      []string `json:"marketSlugs"`
}

type pmusMessage struct {
	SubscriptionType string          `json:"subscriptionType"`
	MarketData       *pmusMarketData `json:"marketData,omitempty"`
}

type pmusMarketData struct {
	MarketSlug string      `json:"marketSlug"`
	Bids       []pmusLevel `json:"bids"`
	Asks       []pmusLevel `json:"asks"`
}

type pmusLevel struct {
	Price    pmusPrice `json:"price"`
	Quantity string    `json:"quantity"`
}

type pmusPrice struct {
	Value string `json:"value"`
}
