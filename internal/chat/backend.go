package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/realtime"
	"github.com/NestNote/CradleLog/internal/store"
)

// StoreBackend implements Backend over a Store and a realtime Hub. Sends are
// persisted first and then fanned out to subscribers, so the sender receives
// its own message back through the subscription.
type StoreBackend struct {
	store store.Store
	hub   *realtime.Hub
}

// NewStoreBackend creates a Backend backed by the given store and hub.
func NewStoreBackend(st store.Store, hub *realtime.Hub) *StoreBackend {
	return &StoreBackend{store: st, hub: hub}
}

func (b *StoreBackend) ResolveRoom(ctx context.Context, specialistID, caregiverID string) (string, error) {
	room, err := b.store.ResolveRoom(specialistID, caregiverID)
	if err != nil {
		slog.Error("StoreBackend.ResolveRoom failed", "error", err)
		return "", fmt.Errorf("failed to resolve room: %w", err)
	}
	slog.Debug("StoreBackend.ResolveRoom resolved", "room", room.ID)
	return room.ID, nil
}

func (b *StoreBackend) History(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	msgs, err := b.store.ListMessages(roomID)
	if err != nil {
		slog.Error("StoreBackend.History failed", "error", err, "room", roomID)
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return msgs, nil
}

func (b *StoreBackend) MarkRead(ctx context.Context, roomID, readerID string) error {
	if err := b.store.MarkMessagesRead(roomID, readerID); err != nil {
		slog.Error("StoreBackend.MarkRead failed", "error", err, "room", roomID)
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

func (b *StoreBackend) Send(ctx context.Context, roomID, senderID, content string) (string, error) {
	msg := models.ChatMessage{RoomID: roomID, SenderID: senderID, Content: content, CreatedAt: time.Now()}
	id, err := b.store.AddMessage(msg)
	if err != nil {
		slog.Error("StoreBackend.Send failed", "error", err, "room", roomID)
		return "", fmt.Errorf("failed to persist message: %w", err)
	}
	msg.ID = id
	b.hub.Publish(msg)
	slog.Debug("StoreBackend.Send published", "id", id, "room", roomID)
	return id, nil
}

func (b *StoreBackend) Subscribe(roomID string, onInsert func(models.ChatMessage)) (func(), error) {
	return b.hub.Subscribe(roomID, onInsert)
}
