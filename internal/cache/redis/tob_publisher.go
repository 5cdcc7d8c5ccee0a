package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// TobChannel is the pub/sub channel top-of-book updates are broadcast on.
const TobChannel = "crossarb:tob"

// TopOfBookPublisher mirrors each instrument's top of book into Redis.
//
// Key schema:
//
//	tob:{instrumentID} - hash with fields "bid", "bid_size", "ask",
//	                     "ask_size", and "ts" (unix nanos)
//
// Each write also publishes the JSON-encoded top of book on crossarb:tob so
// dashboards can subscribe instead of polling.
type TopOfBookPublisher struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTopOfBookPublisher creates a publisher. ttl bounds how long a stale entry
// survives after its feed dies; zero means no expiry.
func NewTopOfBookPublisher(c *Client, ttl time.Duration) *TopOfBookPublisher {
	return &TopOfBookPublisher{rdb: c.Underlying(), ttl: ttl}
}

func tobKey(instrumentID string) string { return "tob:" + instrumentID }

type tobMessage struct {
	InstrumentID string `json:"instrument_id"`
	Bid          string `json:"bid,omitempty"`
	BidSize      string `json:"bid_size,omitempty"`
	Ask          string `json:"ask,omitempty"`
	AskSize      string `json:"ask_size,omitempty"`
	Timestamp    int64  `json:"ts"`
}

// Publish writes the top of book for one instrument and broadcasts it.
func (p *TopOfBookPublisher) Publish(ctx context.Context, tob domain.TopOfBook) error {
	ts := tob.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	key := tobKey(tob.InstrumentID)

	fields := map[string]any{
		"ts": strconv.FormatInt(ts.UnixNano(), 10),
	}
	msg := tobMessage{InstrumentID: tob.InstrumentID, Timestamp: ts.UnixNano()}
	if tob.BestBid != nil {
		fields["bid"] = tob.BestBid.Price.String()
		fields["bid_size"] = tob.BestBid.Size.String()
		msg.Bid = tob.BestBid.Price.String()
		msg.BidSize = tob.BestBid.Size.String()
	}
	if tob.BestAsk != nil {
		fields["ask"] = tob.BestAsk.Price.String()
		fields["ask_size"] = tob.BestAsk.Size.String()
		msg.Ask = tob.BestAsk.Price.String()
		msg.AskSize = tob.BestAsk.Size.String()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: marshal tob %s: %w", tob.InstrumentID, err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if p.ttl > 0 {
		pipe.Expire(ctx, key, p.ttl)
	}
	pipe.Publish(ctx, TobChannel, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish tob %s: %w", tob.InstrumentID, err)
	}
	return nil
}

// Get reads the current top of book for an instrument. Returns
// domain.ErrNotFound if nothing has been published.
func (p *TopOfBookPublisher) Get(ctx context.Context, instrumentID string) (domain.TopOfBook, error) {
	vals, err := p.rdb.HGetAll(ctx, tobKey(instrumentID)).Result()
	if err != nil {
		return domain.TopOfBook{}, fmt.Errorf("redis: get tob %s: %w", instrumentID, err)
	}
	if len(vals) == 0 {
		return domain.TopOfBook{}, domain.ErrNotFound
	}

	tob := domain.TopOfBook{InstrumentID: instrumentID}
	if ts, ok := vals["ts"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			tob.Timestamp = time.Unix(0, nanos)
		}
	}
	if bid, ok := vals["bid"]; ok {
		price, err := decimal.NewFromString(bid)
		if err == nil {
			size, _ := decimal.NewFromString(vals["bid_size"])
			tob.BestBid = &domain.Quote{Price: price, Size: size}
		}
	}
	if ask, ok := vals["ask"]; ok {
		price, err := decimal.NewFromString(ask)
		if err == nil {
			size, _ := decimal.NewFromString(vals["ask_size"])
			tob.BestAsk = &domain.Quote{Price: price, Size: size}
		}
	}
	return tob, nil
}
