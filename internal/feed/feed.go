// Package feed maintains live orderbooks from the venue websocket feeds.
// Each adapter normalizes venue messages into bid/ask levels before handing
// them to the book sink: yes-side liquidity becomes bids, no-side liquidity
// becomes asks at the complement price.
package feed

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 15 * time.Second

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// BookSink receives normalized book updates. *book.Registry implements it.
type BookSink interface {
	LoadSnapshot(instrumentID string, bids, asks []domain.PriceLevel) error
	ApplyDelta(instrumentID string, side domain.BookSide, price, delta decimal.Decimal) error
}

// HeaderSigner produces venue auth headers for a request. The REST gateway
// clients implement it so feeds reuse the same credentials.
type HeaderSigner interface {
	SignedHeaders(method, path string) (http.Header, error)
}

// TopOfBookHandler is called after a book changes, with the affected
// instrument id.
type TopOfBookHandler func(instrumentID string)

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxReconnectDelay {
		d = maxReconnectDelay
	}
	return d
}
