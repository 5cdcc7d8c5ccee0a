package ws

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInstrumentOf(t *testing.T) {
	assert.Equal(t, "game-home",
		instrumentOf([]byte(`{"instrument_id":"game-home","bid":"0.40"}`)))
	assert.Empty(t, instrumentOf([]byte(`{"bid":"0.40"}`)))
	assert.Empty(t, instrumentOf([]byte(`not json`)), "unparsable payloads route to everyone")
}

func TestClientSubscriptionFiltering(t *testing.T) {
	c := &client{instruments: make(map[string]bool)}

	// No explicit subscriptions: firehose.
	assert.True(t, c.wants("game-home"))
	assert.True(t, c.wants("K-HOME"))

	c.handleSubscription(subscribeMsg{Subscribe: []string{"game-home"}})
	assert.True(t, c.wants("game-home"))
	assert.False(t, c.wants("K-HOME"))

	// Unroutable payloads always pass the filter.
	assert.True(t, c.wants(""))

	c.handleSubscription(subscribeMsg{Unsubscribe: []string{"game-home"}})
	assert.True(t, c.wants("K-HOME"), "empty set again means everything")
}

type fakeBus struct {
	ch chan []byte
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return b.ch, nil
}

func TestHubFansOutToMatchingClients(t *testing.T) {
	bus := &fakeBus{ch: make(chan []byte, 4)}
	h := NewHub(bus, "crossarb:tob", "monitor", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	all := &client{hub: h, send: make(chan []byte, 4), instruments: make(map[string]bool)}
	narrow := &client{hub: h, send: make(chan []byte, 4), instruments: map[string]bool{"K-HOME": true}}
	h.register <- all
	h.register <- narrow

	bus.ch <- []byte(`{"instrument_id":"game-home","bid":"0.40"}`)

	select {
	case msg := <-all.send:
		assert.Contains(t, string(msg), "game-home")
	case <-time.After(time.Second):
		t.Fatal("unfiltered client never received the update")
	}

	select {
	case msg := <-narrow.send:
		t.Fatalf("filtered client received %s", msg)
	case <-time.After(50 * time.Millisecond):
	}

	h.unregister <- all
	select {
	case _, ok := <-all.send:
		assert.False(t, ok, "hub closes the send channel on unregister")
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}
