// Package store provides storage backends for CradleLog.
//
// It includes an in-memory store for tests, an SQLite store for single-node
// deployments, and a PostgreSQL store for hosted ones. All three share the
// Store interface; the backend is selected by DSN at startup.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NestNote/CradleLog/internal/models"
)

// Store is the persistence contract shared by all backends.
type Store interface {
	// Profiles and children
	AddProfile(p models.Profile) (string, error)
	GetProfile(id string) (*models.Profile, error)
	ListCaregivers() ([]models.Profile, error)
	AddChild(c models.Child) (string, error)
	GetChild(id string) (*models.Child, error)

	// Recordings
	AddFeeding(rec models.FeedingRecord) (string, error)
	ListFeedings(childID string) ([]models.FeedingRecord, error)
	AddNap(rec models.NapRecord) (string, error)
	ListNaps(childID string) ([]models.NapRecord, error)
	AddSleep(rec models.SleepRecord) (string, error)
	ListSleeps(childID string) ([]models.SleepRecord, error)

	// Chat
	ResolveRoom(specialistID, caregiverID string) (models.ChatRoom, error)
	AddMessage(m models.ChatMessage) (string, error)
	ListMessages(roomID string) ([]models.ChatMessage, error)
	MarkMessagesRead(roomID, readerID string) error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN configures an SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". File paths are
// assumed to be SQLite.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a mutex-guarded map-backed Store used by tests and by
// deployments that have not configured a database.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
	children map[string]models.Child
	feedings []models.FeedingRecord
	naps     []models.NapRecord
	sleeps   []models.SleepRecord
	rooms    []models.ChatRoom
	messages []models.ChatMessage
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]models.Profile),
		children: make(map[string]models.Child),
	}
}

func (s *InMemoryStore) AddProfile(p models.Profile) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.profiles[p.ID] = p
	return p.ID, nil
}

func (s *InMemoryStore) GetProfile(id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) ListCaregivers() ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Profile
	for _, p := range s.profiles {
		if p.Role == models.RoleCaregiver {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) AddChild(c models.Child) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.children[c.ID] = c
	return c.ID, nil
}

func (s *InMemoryStore) GetChild(id string) (*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.children[id]
	if !ok {
		return nil, models.ErrChildNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) AddFeeding(rec models.FeedingRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.feedings = append(s.feedings, rec)
	return rec.ID, nil
}

func (s *InMemoryStore) ListFeedings(childID string) ([]models.FeedingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FeedingRecord
	for _, r := range s.feedings {
		if r.ChildID == childID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddNap(rec models.NapRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.naps = append(s.naps, rec)
	return rec.ID, nil
}

func (s *InMemoryStore) ListNaps(childID string) ([]models.NapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.NapRecord
	for _, r := range s.naps {
		if r.ChildID == childID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddSleep(rec models.SleepRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.sleeps = append(s.sleeps, rec)
	return rec.ID, nil
}

func (s *InMemoryStore) ListSleeps(childID string) ([]models.SleepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SleepRecord
	for _, r := range s.sleeps {
		if r.ChildID == childID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ResolveRoom returns the existing room for the pair or creates one. The
// same pair always resolves to the same room.
func (s *InMemoryStore) ResolveRoom(specialistID, caregiverID string) (models.ChatRoom, error) {
	if specialistID == "" || caregiverID == "" {
		return models.ChatRoom{}, models.ErrEmptyParticipant
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.SpecialistID == specialistID && r.CaregiverID == caregiverID {
			return r, nil
		}
	}
	room := models.ChatRoom{
		ID:           uuid.NewString(),
		SpecialistID: specialistID,
		CaregiverID:  caregiverID,
		CreatedAt:    time.Now(),
	}
	s.rooms = append(s.rooms, room)
	return room, nil
}

func (s *InMemoryStore) AddMessage(m models.ChatMessage) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.Pending = false
	m.Failed = false
	s.messages = append(s.messages, m)
	return m.ID, nil
}

// ListMessages returns a room's messages in arrival (insertion) order.
func (s *InMemoryStore) ListMessages(roomID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ChatMessage
	for _, m := range s.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MarkMessagesRead marks every message in the room not sent by the reader.
func (s *InMemoryStore) MarkMessagesRead(roomID, readerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].RoomID == roomID && s.messages[i].SenderID != readerID {
			s.messages[i].Read = true
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
