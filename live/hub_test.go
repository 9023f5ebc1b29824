package live

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func registerTestClient(t *testing.T, hub *Hub, rankingID int) *Client {
	t.Helper()
	client := &Client{
		hub:  hub,
		send: make(chan []byte, 4),
		room: roomForRanking(rankingID),
	}
	hub.register <- client
	return client
}

func TestPublishReachesOnlyTheRankingsRoom(t *testing.T) {
	hub := testHub()
	go hub.Run()

	watcher := registerTestClient(t, hub, 1)
	other := registerTestClient(t, hub, 2)

	hub.PublishRankingChanged(1)

	select {
	case payload := <-watcher.send:
		var msg Message
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, TypeRankingChanged, msg.Type)
		assert.Equal(t, 1, msg.RankingID)
	case <-time.After(time.Second):
		t.Fatal("watcher did not receive the event")
	}

	select {
	case <-other.send:
		t.Fatal("event leaked into another ranking's room")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := testHub()
	go hub.Run()

	client := registerTestClient(t, hub, 1)
	hub.unregister <- client

	select {
	case _, open := <-client.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestPublishNeverBlocksWhenSaturated(t *testing.T) {
	// No Run loop draining events: the buffered channel fills up and
	// further publishes must return immediately.
	hub := testHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.events)+10; i++ {
			hub.PublishRankingChanged(1)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a saturated hub")
	}
}

func TestSlowConsumerDoesNotStallBroadcast(t *testing.T) {
	hub := testHub()
	go hub.Run()

	slow := &Client{hub: hub, send: make(chan []byte), room: roomForRanking(1)} // unbuffered, nobody reads
	hub.register <- slow
	fast := registerTestClient(t, hub, 1)

	hub.PublishRankingChanged(1)

	select {
	case <-fast.send:
	case <-time.After(time.Second):
		t.Fatal("fast consumer starved by a slow one")
	}
}
