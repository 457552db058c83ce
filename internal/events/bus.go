// Package events provides an in-process publish/subscribe bus used to signal
// history changes between otherwise independent views, replacing ambient
// global refresh callbacks.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Topic identifies a class of change notifications.
type Topic string

const (
	// TopicFeedingHistoryChanged fires after a feeding record is stored.
	TopicFeedingHistoryChanged Topic = "feeding-history-changed"
	// TopicNapHistoryChanged fires after a nap record is stored.
	TopicNapHistoryChanged Topic = "nap-history-changed"
	// TopicSleepHistoryChanged fires after a sleep record is stored.
	TopicSleepHistoryChanged Topic = "sleep-history-changed"
	// TopicChatMessage fires after a chat message is stored.
	TopicChatMessage Topic = "chat-message"
)

// Event carries the topic and the entity the change applies to.
type Event struct {
	Topic    Topic
	EntityID string // child id for history topics, room id for chat
	At       time.Time
}

// Bus routes published events to topic subscribers. Subscribers are invoked
// synchronously in the publisher's goroutine; handlers must not block.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[int]func(Event)
	nextID int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]func(Event))}
}

// Subscribe registers a handler for a topic and returns a cancel function.
// Cancel is idempotent.
func (b *Bus) Subscribe(topic Topic, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func(Event))
	}
	b.nextID++
	id := b.nextID
	b.subs[topic][id] = fn

	slog.Debug("Bus.Subscribe: handler registered", "topic", topic, "id", id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			slog.Debug("Bus.Subscribe: handler removed", "topic", topic, "id", id)
		})
	}
}

// Publish delivers an event to every subscriber of its topic.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[e.Topic]))
	for _, fn := range b.subs[e.Topic] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	slog.Debug("Bus.Publish: delivering event", "topic", e.Topic, "entity", e.EntityID, "handlers", len(handlers))
	for _, fn := range handlers {
		fn(e)
	}
}
