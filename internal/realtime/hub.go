// Package realtime provides the in-process subscription primitive for chat
// rooms and a websocket bridge exposing the same feed to external clients.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/NestNote/CradleLog/internal/models"
)

// Hub fans stored chat messages out to room subscribers. Subscriptions are
// scoped to a single room id; handles returned by Subscribe are idempotent.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]func(models.ChatMessage)
	nextID int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]func(models.ChatMessage))}
}

// Subscribe registers an insert handler for a room and returns an
// unsubscribe function. The handler is invoked synchronously on publish and
// must not block.
func (h *Hub) Subscribe(roomID string, onInsert func(models.ChatMessage)) (func(), error) {
	if roomID == "" {
		return nil, models.ErrRoomNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[int]func(models.ChatMessage))
	}
	h.nextID++
	id := h.nextID
	h.subs[roomID][id] = onInsert

	slog.Debug("Hub.Subscribe: subscriber added", "room", roomID, "id", id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[roomID], id)
			if len(h.subs[roomID]) == 0 {
				delete(h.subs, roomID)
			}
			slog.Debug("Hub.Subscribe: subscriber removed", "room", roomID, "id", id)
		})
	}, nil
}

// Publish delivers a message to every subscriber of its room.
func (h *Hub) Publish(msg models.ChatMessage) {
	h.mu.RLock()
	handlers := make([]func(models.ChatMessage), 0, len(h.subs[msg.RoomID]))
	for _, fn := range h.subs[msg.RoomID] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	slog.Debug("Hub.Publish: delivering insert", "room", msg.RoomID, "subscribers", len(handlers))
	for _, fn := range handlers {
		fn(msg)
	}
}

// SubscriberCount reports how many handlers are registered for a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[roomID])
}
