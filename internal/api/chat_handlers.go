// Package api provides chat and summary handlers for CradleLog endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NestNote/CradleLog/internal/events"
	"github.com/NestNote/CradleLog/internal/models"
)

// resolveRoomHandler handles POST /chat/rooms. Resolution is idempotent: the
// same pair always receives the same room.
func (s *Server) resolveRoomHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.resolveRoomHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.resolveRoomHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SpecialistID string `json:"specialist_id"`
		CaregiverID  string `json:"caregiver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.resolveRoomHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	room, err := s.st.ResolveRoom(req.SpecialistID, req.CaregiverID)
	if errors.Is(err, models.ErrEmptyParticipant) {
		slog.Warn("Server.resolveRoomHandler: missing participant", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err != nil {
		slog.Error("Server.resolveRoomHandler: failed to resolve room", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to resolve chat room"))
		return
	}
	slog.Info("Server.resolveRoomHandler: room resolved", "room", room.ID)
	writeJSONResponse(w, http.StatusOK, models.Success(room))
}

// roomHandler dispatches room-scoped operations:
//
//	GET  /chat/rooms/{roomID}/messages
//	POST /chat/rooms/{roomID}/messages
//	POST /chat/rooms/{roomID}/read
func (s *Server) roomHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.roomHandler: processing request", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/chat/rooms/")
	segments := strings.Split(path, "/")
	if len(segments) != 2 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown chat endpoint"))
		return
	}
	roomID := segments[0]

	switch segments[1] {
	case "messages":
		switch r.Method {
		case http.MethodGet:
			s.listMessagesHandler(w, r, roomID)
		case http.MethodPost:
			s.sendMessageHandler(w, r, roomID)
		default:
			w.Header().Set("Allow", "GET, POST")
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
	case "read":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		s.markReadHandler(w, r, roomID)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown chat endpoint"))
	}
}

// listMessagesHandler handles GET /chat/rooms/{roomID}/messages.
func (s *Server) listMessagesHandler(w http.ResponseWriter, r *http.Request, roomID string) {
	msgs, err := s.st.ListMessages(roomID)
	if err != nil {
		slog.Error("Server.listMessagesHandler: failed to fetch messages", "error", err, "room", roomID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch messages"))
		return
	}
	slog.Debug("Server.listMessagesHandler: messages fetched", "room", roomID, "count", len(msgs))
	writeJSONResponse(w, http.StatusOK, models.Success(msgs))
}

// sendMessageHandler handles POST /chat/rooms/{roomID}/messages. The message
// is persisted first and then fanned out to realtime subscribers.
func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request, roomID string) {
	var req struct {
		SenderID string `json:"sender_id"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.sendMessageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), DefaultRequestTimeout)
	defer cancel()

	id, err := s.backend.Send(ctx, roomID, req.SenderID, req.Content)
	if errors.Is(err, models.ErrEmptyContent) || errors.Is(err, models.ErrMessageTooLong) || errors.Is(err, models.ErrEmptyParticipant) {
		slog.Warn("Server.sendMessageHandler: invalid message", "error", err, "room", roomID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err != nil {
		slog.Error("Server.sendMessageHandler: failed to send message", "error", err, "room", roomID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send message"))
		return
	}
	s.bus.Publish(events.Event{Topic: events.TopicChatMessage, EntityID: roomID, At: time.Now()})
	slog.Info("Server.sendMessageHandler: message sent", "id", id, "room", roomID)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Message sent", map[string]string{"id": id}))
}

// markReadHandler handles POST /chat/rooms/{roomID}/read.
func (s *Server) markReadHandler(w http.ResponseWriter, r *http.Request, roomID string) {
	var req struct {
		ReaderID string `json:"reader_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.markReadHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ReaderID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: reader_id"))
		return
	}
	if err := s.st.MarkMessagesRead(roomID, req.ReaderID); err != nil {
		slog.Error("Server.markReadHandler: failed to mark read", "error", err, "room", roomID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to mark messages read"))
		return
	}
	slog.Debug("Server.markReadHandler: messages marked read", "room", roomID, "reader", req.ReaderID)
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// wsHandler handles GET /chat/ws?room_id={roomID} by upgrading to a
// websocket that streams the room's new messages.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.wsHandler: processing websocket request", "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required query parameter: room_id"))
		return
	}
	s.hub.ServeRoom(w, r, roomID)
}

// summaryHandler handles GET /summary/{childID} by generating an AI digest of
// the child's last week of records.
func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.summaryHandler: processing summary request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.gaClient == nil {
		slog.Warn("Server.summaryHandler: GenAI client not configured")
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Summary generation not configured"))
		return
	}
	childID := strings.TrimPrefix(r.URL.Path, "/summary/")
	if childID == "" || strings.Contains(childID, "/") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown summary endpoint"))
		return
	}
	child, err := s.st.GetChild(childID)
	if errors.Is(err, models.ErrChildNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Child not found"))
		return
	}
	if err != nil {
		slog.Error("Server.summaryHandler: failed to fetch child", "error", err, "child", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch child"))
		return
	}

	feedings, err := s.st.ListFeedings(childID)
	if err != nil {
		slog.Error("Server.summaryHandler: failed to fetch feedings", "error", err, "child", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch history"))
		return
	}
	naps, err := s.st.ListNaps(childID)
	if err != nil {
		slog.Error("Server.summaryHandler: failed to fetch naps", "error", err, "child", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch history"))
		return
	}
	sleeps, err := s.st.ListSleeps(childID)
	if err != nil {
		slog.Error("Server.summaryHandler: failed to fetch sleeps", "error", err, "child", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch history"))
		return
	}

	cutoff := time.Now().AddDate(0, 0, -7)
	feedings = filterFeedingsSince(feedings, cutoff)
	naps = filterNapsSince(naps, cutoff)
	sleeps = filterSleepsSince(sleeps, cutoff)

	ctx, cancel := context.WithTimeout(r.Context(), DefaultRequestTimeout)
	defer cancel()

	summary, err := s.gaClient.SummarizeWeek(ctx, child.Name, feedings, naps, sleeps)
	if err != nil {
		slog.Error("Server.summaryHandler: failed to generate summary", "error", err, "child", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate summary"))
		return
	}
	slog.Info("Server.summaryHandler: summary generated", "child", childID)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"summary": summary}))
}

func filterFeedingsSince(records []models.FeedingRecord, cutoff time.Time) []models.FeedingRecord {
	var out []models.FeedingRecord
	for _, r := range records {
		if r.StartTime.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func filterNapsSince(records []models.NapRecord, cutoff time.Time) []models.NapRecord {
	var out []models.NapRecord
	for _, r := range records {
		if r.StartTime.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func filterSleepsSince(records []models.SleepRecord, cutoff time.Time) []models.SleepRecord {
	var out []models.SleepRecord
	for _, r := range records {
		if r.StartTime.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
