package realtime

import (
	"testing"
	"time"

	"github.com/NestNote/CradleLog/internal/models"
)

func TestSubscribeAndPublish(t *testing.T) {
	hub := NewHub()

	var got []models.ChatMessage
	unsubscribe, err := hub.Subscribe("room-1", func(m models.ChatMessage) {
		got = append(got, m)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsubscribe()

	hub.Publish(models.ChatMessage{ID: "msg-1", RoomID: "room-1", SenderID: "care-1", Content: "hello", CreatedAt: time.Now()})
	hub.Publish(models.ChatMessage{ID: "msg-2", RoomID: "room-2", SenderID: "care-1", Content: "other room"})

	if len(got) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(got))
	}
	if got[0].ID != "msg-1" {
		t.Errorf("expected msg-1, got %s", got[0].ID)
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	hub := NewHub()

	count := 0
	unsubscribe, _ := hub.Subscribe("room-1", func(models.ChatMessage) { count++ })

	hub.Publish(models.ChatMessage{ID: "msg-1", RoomID: "room-1"})
	unsubscribe()
	unsubscribe()
	hub.Publish(models.ChatMessage{ID: "msg-2", RoomID: "room-1"})

	if count != 1 {
		t.Errorf("expected exactly 1 delivery, got %d", count)
	}
	if hub.SubscriberCount("room-1") != 0 {
		t.Errorf("expected empty room after unsubscribe")
	}
}

func TestSubscribeRequiresRoom(t *testing.T) {
	hub := NewHub()
	if _, err := hub.Subscribe("", func(models.ChatMessage) {}); err == nil {
		t.Errorf("expected error for empty room id")
	}
}

func TestMultipleRoomsIsolated(t *testing.T) {
	hub := NewHub()

	a, b := 0, 0
	cancelA, _ := hub.Subscribe("room-a", func(models.ChatMessage) { a++ })
	cancelB, _ := hub.Subscribe("room-b", func(models.ChatMessage) { b++ })
	defer cancelA()
	defer cancelB()

	hub.Publish(models.ChatMessage{ID: "m1", RoomID: "room-a"})
	hub.Publish(models.ChatMessage{ID: "m2", RoomID: "room-a"})
	hub.Publish(models.ChatMessage{ID: "m3", RoomID: "room-b"})

	if a != 2 || b != 1 {
		t.Errorf("expected a=2 b=1, got a=%d b=%d", a, b)
	}
}
