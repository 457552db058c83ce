// Package chat implements the live message-thread session between one
// specialist and one caregiver.
//
// A Session bridges a remote realtime event stream into a local,
// arrival-ordered message cache. The backing room resolution, history fetch,
// send, and subscription primitives are supplied by a Backend; the store and
// realtime hub implement it in production, mocks in tests.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/util"
)

// Backend is the collaborator contract a Session consumes. Room resolution
// must be idempotent: the same (specialist, caregiver) pair always yields the
// same room id.
type Backend interface {
	ResolveRoom(ctx context.Context, specialistID, caregiverID string) (string, error)
	History(ctx context.Context, roomID string) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, roomID, readerID string) error
	Send(ctx context.Context, roomID, senderID, content string) (string, error)
	Subscribe(roomID string, onInsert func(models.ChatMessage)) (func(), error)
}

// State is the lifecycle phase of a Session.
type State string

const (
	// StateConnecting is the initial state while the room is resolved and
	// history is fetched.
	StateConnecting State = "connecting"
	// StateReady means history is loaded and the subscription is live.
	StateReady State = "ready"
	// StateError means room resolution or history fetch failed; the thread
	// stays visible in a degraded state.
	StateError State = "error"
	// StateClosed means the window was closed and the subscription torn down.
	StateClosed State = "closed"
)

// Session is one open chat window. The session holds a cached copy of the
// thread ordered by arrival; the backend remains the source of truth.
type Session struct {
	backend      Backend
	localID      string
	specialistID string
	caregiverID  string

	mu          sync.Mutex
	state       State
	roomID      string
	messages    []models.ChatMessage
	unsubscribe func()
	sending     bool
}

// NewSession creates a session for the (specialist, caregiver) pair. localID
// identifies the party running this session and drives the self-echo filter.
func NewSession(backend Backend, localID, specialistID, caregiverID string) (*Session, error) {
	if backend == nil || localID == "" || specialistID == "" || caregiverID == "" {
		return nil, models.ErrEmptyParticipant
	}
	return &Session{
		backend:      backend,
		localID:      localID,
		specialistID: specialistID,
		caregiverID:  caregiverID,
		state:        StateConnecting,
	}, nil
}

// Open resolves the room, loads history, marks it read, and subscribes to new
// inserts. Any failure before the subscription transitions the session to
// StateError; the thread stays usable in a degraded history-only state.
func (s *Session) Open(ctx context.Context) error {
	roomID, err := s.backend.ResolveRoom(ctx, s.specialistID, s.caregiverID)
	if err != nil {
		slog.Error("Session.Open: room resolution failed", "specialist", s.specialistID, "caregiver", s.caregiverID, "error", err)
		s.setState(StateError)
		return err
	}

	history, err := s.backend.History(ctx, roomID)
	if err != nil {
		slog.Error("Session.Open: history fetch failed", "room", roomID, "error", err)
		s.mu.Lock()
		s.roomID = roomID
		s.state = StateError
		s.mu.Unlock()
		return err
	}

	if err := s.backend.MarkRead(ctx, roomID, s.localID); err != nil {
		// Read marking is best effort; the thread still opens.
		slog.Warn("Session.Open: mark read failed", "room", roomID, "error", err)
	}

	unsubscribe, err := s.backend.Subscribe(roomID, s.handleInsert)
	if err != nil {
		slog.Error("Session.Open: subscribe failed", "room", roomID, "error", err)
		s.mu.Lock()
		s.roomID = roomID
		s.messages = history
		s.state = StateError
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.roomID = roomID
	s.messages = history
	s.unsubscribe = unsubscribe
	s.state = StateReady
	s.mu.Unlock()

	slog.Info("Session.Open: ready", "room", roomID, "history", len(history))
	return nil
}

// handleInsert merges a realtime insert into the local cache. Inserts from
// the local party are treated as confirmations of the optimistic copy rather
// than appended a second time.
func (s *Session) handleInsert(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		// Events delivered after close must never touch disposed state.
		slog.Debug("Session.handleInsert: dropped, session closed", "room", s.roomID)
		return
	}

	if msg.SenderID == s.localID {
		s.reconcile(msg)
		return
	}

	s.messages = append(s.messages, msg)
	slog.Debug("Session.handleInsert: appended", "room", s.roomID, "sender", msg.SenderID)
}

// reconcile replaces the oldest pending optimistic copy with the server's
// message. Must be called with s.mu held.
func (s *Session) reconcile(msg models.ChatMessage) {
	for i := range s.messages {
		if s.messages[i].Pending && s.messages[i].SenderID == s.localID && s.messages[i].Content == msg.Content {
			s.messages[i] = msg
			slog.Debug("Session.reconcile: optimistic copy confirmed", "room", s.roomID, "id", msg.ID)
			return
		}
	}
	// No pending copy matched (e.g. sent from another window); self-echo is
	// still not appended twice unless it is genuinely unknown.
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			return
		}
	}
	s.messages = append(s.messages, msg)
}

// Send validates, optimistically appends, and submits a message. The send
// control stays disabled (ErrSendInFlight) until the remote call settles. A
// failed send leaves the optimistic copy in the list flagged Failed so the
// gap is visible rather than silent.
func (s *Session) Send(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.ErrEmptyContent
	}
	if len(content) > models.MaxMessageLength {
		return "", models.ErrMessageTooLong
	}

	s.mu.Lock()
	switch {
	case s.state == StateClosed:
		s.mu.Unlock()
		return "", models.ErrSessionClosed
	case s.state != StateReady:
		s.mu.Unlock()
		return "", models.ErrSessionNotReady
	case s.sending:
		s.mu.Unlock()
		slog.Warn("Session.Send: refused, send already in flight", "room", s.roomID)
		return "", models.ErrSendInFlight
	}
	s.sending = true
	roomID := s.roomID
	tempID := util.TempID(16)
	s.messages = append(s.messages, models.ChatMessage{
		ID:        tempID,
		RoomID:    roomID,
		SenderID:  s.localID,
		Content:   content,
		CreatedAt: time.Now(),
		Pending:   true,
	})
	s.mu.Unlock()

	msgID, err := s.backend.Send(ctx, roomID, s.localID, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false // re-enabled regardless of outcome

	if s.state == StateClosed {
		slog.Debug("Session.Send: completed after close", "room", roomID)
		return msgID, err
	}

	for i := range s.messages {
		if s.messages[i].ID != tempID {
			continue
		}
		if err != nil {
			s.messages[i].Pending = false
			s.messages[i].Failed = true
		} else {
			s.messages[i].ID = msgID
			s.messages[i].Pending = false
		}
		break
	}

	if err != nil {
		slog.Error("Session.Send: send failed", "room", roomID, "error", err)
		return "", err
	}
	slog.Debug("Session.Send: sent", "room", roomID, "id", msgID)
	return msgID, nil
}

// Messages returns a copy of the cached thread in arrival order.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID returns the resolved room id, empty until Open succeeds far enough.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Close tears down the subscription. Safe to call multiple times; after the
// first call no further session mutation happens.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	slog.Debug("Session closed", "room", s.roomID)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
