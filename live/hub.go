// Package live pushes ranking updates to connected viewers over websockets.
// Clients join the room of the ranking they are watching; standings-affecting
// operations publish a refresh event into that room.
package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is the wire format sent to room members.
type Message struct {
	Type      string      `json:"type"`
	RankingID int         `json:"ranking_id"`
	Payload   interface{} `json:"payload,omitempty"`
}

const TypeRankingChanged = "RANKING_CHANGED"

type Hub struct {
	logger     *slog.Logger
	register   chan *Client
	unregister chan *Client
	events     chan Message

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Message, 64),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func roomForRanking(rankingID int) string {
	return fmt.Sprintf("ranking_%d", rankingID)
}

// Run owns the room bookkeeping; call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			h.logger.Debug("live client joined", slog.String("room", client.room))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.closeSend()
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("live client left", slog.String("room", client.room))

		case event := <-h.events:
			h.broadcast(event)
		}
	}
}

// PublishRankingChanged satisfies the match service's Publisher. It never
// blocks: if the hub is saturated the event is dropped, viewers just refresh
// on the next change.
func (h *Hub) PublishRankingChanged(rankingID int) {
	select {
	case h.events <- Message{Type: TypeRankingChanged, RankingID: rankingID}:
	default:
		h.logger.Warn("live event queue full, dropping update", slog.Int("ranking_id", rankingID))
	}
}

func (h *Hub) broadcast(event Message) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal live event", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomForRanking(event.RankingID)] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; skip rather than stall the hub.
		}
	}
}
