package chat

import (
	"context"
	"testing"

	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/realtime"
	"github.com/NestNote/CradleLog/internal/store"
)

func TestStoreBackendEchoesSendToSubscribers(t *testing.T) {
	backend := NewStoreBackend(store.NewInMemoryStore(), realtime.NewHub())
	ctx := context.Background()

	roomID, err := backend.ResolveRoom(ctx, "spec-1", "care-1")
	if err != nil {
		t.Fatalf("ResolveRoom: %v", err)
	}

	var got []models.ChatMessage
	cancel, err := backend.Subscribe(roomID, func(m models.ChatMessage) { got = append(got, m) })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	id, err := backend.Send(ctx, roomID, "care-1", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got) != 1 || got[0].ID != id || got[0].Content != "hello" {
		t.Fatalf("expected echoed message %s, got %+v", id, got)
	}

	history, err := backend.History(ctx, roomID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].ID != id {
		t.Errorf("expected persisted message in history, got %+v", history)
	}
}

func TestSessionOverStoreBackend(t *testing.T) {
	hub := realtime.NewHub()
	st := store.NewInMemoryStore()
	backend := NewStoreBackend(st, hub)
	ctx := context.Background()

	specialist, err := NewSession(backend, "spec-1", "spec-1", "care-1")
	if err != nil {
		t.Fatalf("NewSession specialist: %v", err)
	}
	if err := specialist.Open(ctx); err != nil {
		t.Fatalf("Open specialist: %v", err)
	}
	defer specialist.Close()

	caregiver, err := NewSession(backend, "care-1", "spec-1", "care-1")
	if err != nil {
		t.Fatalf("NewSession caregiver: %v", err)
	}
	if err := caregiver.Open(ctx); err != nil {
		t.Fatalf("Open caregiver: %v", err)
	}
	defer caregiver.Close()

	if specialist.RoomID() != caregiver.RoomID() {
		t.Fatalf("sessions resolved different rooms")
	}

	if _, err := caregiver.Send(ctx, "we dropped the third nap"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	cm := caregiver.Messages()
	if len(cm) != 1 || cm[0].Pending {
		t.Errorf("sender should hold one reconciled message, got %+v", cm)
	}
	sm := specialist.Messages()
	if len(sm) != 1 || sm[0].Content != "we dropped the third nap" {
		t.Errorf("peer should receive the message, got %+v", sm)
	}
}
