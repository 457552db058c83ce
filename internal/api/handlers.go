// Package api provides HTTP handlers for CradleLog endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NestNote/CradleLog/internal/events"
	"github.com/NestNote/CradleLog/internal/models"
)

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// profilesHandler handles POST /profiles.
func (s *Server) profilesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.profilesHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.profilesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p models.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		slog.Warn("Server.profilesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := p.Validate(); err != nil {
		slog.Warn("Server.profilesHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	id, err := s.st.AddProfile(p)
	if err != nil {
		slog.Error("Server.profilesHandler: failed to store profile", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store profile"))
		return
	}
	slog.Info("Server.profilesHandler: profile created", "id", id, "role", p.Role)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Profile created", map[string]string{"id": id}))
}

// profileHandler handles GET /profiles/{id}.
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.profileHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/profiles/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown profile endpoint"))
		return
	}
	p, err := s.st.GetProfile(id)
	if errors.Is(err, models.ErrProfileNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Profile not found"))
		return
	}
	if err != nil {
		slog.Error("Server.profileHandler: failed to fetch profile", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch profile"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(p))
}

// childrenHandler handles POST /children.
func (s *Server) childrenHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.childrenHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var c models.Child
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		slog.Warn("Server.childrenHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := c.Validate(); err != nil {
		slog.Warn("Server.childrenHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	id, err := s.st.AddChild(c)
	if err != nil {
		slog.Error("Server.childrenHandler: failed to store child", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store child"))
		return
	}
	slog.Info("Server.childrenHandler: child created", "id", id)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Child created", map[string]string{"id": id}))
}

// childHandler handles GET /children/{id}.
func (s *Server) childHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.childHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/children/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown child endpoint"))
		return
	}
	c, err := s.st.GetChild(id)
	if errors.Is(err, models.ErrChildNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Child not found"))
		return
	}
	if err != nil {
		slog.Error("Server.childHandler: failed to fetch child", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch child"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(c))
}

// recordHandler dispatches POST /record/{feeding|nap|sleep}.
func (s *Server) recordHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.recordHandler: processing record request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.recordHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	kind := strings.TrimPrefix(r.URL.Path, "/record/")
	switch kind {
	case "feeding":
		s.recordFeedingHandler(w, r)
	case "nap":
		s.recordNapHandler(w, r)
	case "sleep":
		s.recordSleepHandler(w, r)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown record endpoint"))
	}
}

func (s *Server) recordFeedingHandler(w http.ResponseWriter, r *http.Request) {
	var rec models.FeedingRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		slog.Warn("Server.recordFeedingHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := rec.Validate(); err != nil {
		slog.Warn("Server.recordFeedingHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	id, err := s.st.AddFeeding(rec)
	if err != nil {
		slog.Error("Server.recordFeedingHandler: failed to store record", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store feeding record"))
		return
	}
	s.bus.Publish(events.Event{Topic: events.TopicFeedingHistoryChanged, EntityID: rec.ChildID, At: time.Now()})
	slog.Info("Server.recordFeedingHandler: feeding recorded", "id", id, "child", rec.ChildID, "kind", rec.Kind)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(id))
}

func (s *Server) recordNapHandler(w http.ResponseWriter, r *http.Request) {
	var rec models.NapRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		slog.Warn("Server.recordNapHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := rec.Validate(); err != nil {
		slog.Warn("Server.recordNapHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	id, err := s.st.AddNap(rec)
	if err != nil {
		slog.Error("Server.recordNapHandler: failed to store record", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store nap record"))
		return
	}
	s.bus.Publish(events.Event{Topic: events.TopicNapHistoryChanged, EntityID: rec.ChildID, At: time.Now()})
	slog.Info("Server.recordNapHandler: nap recorded", "id", id, "child", rec.ChildID)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(id))
}

func (s *Server) recordSleepHandler(w http.ResponseWriter, r *http.Request) {
	var rec models.SleepRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		slog.Warn("Server.recordSleepHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := rec.Validate(); err != nil {
		slog.Warn("Server.recordSleepHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	id, err := s.st.AddSleep(rec)
	if err != nil {
		slog.Error("Server.recordSleepHandler: failed to store record", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store sleep record"))
		return
	}
	s.bus.Publish(events.Event{Topic: events.TopicSleepHistoryChanged, EntityID: rec.ChildID, At: time.Now()})
	slog.Info("Server.recordSleepHandler: sleep recorded", "id", id, "child", rec.ChildID)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(id))
}

// historyHandler dispatches GET /history/{feeding|nap|sleep}/{childID}.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.historyHandler: processing history request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.historyHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/history/")
	segments := strings.Split(path, "/")
	if len(segments) != 2 || segments[1] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown history endpoint"))
		return
	}
	kind, childID := segments[0], segments[1]

	switch kind {
	case "feeding":
		records, err := s.st.ListFeedings(childID)
		if err != nil {
			slog.Error("Server.historyHandler: failed to fetch feedings", "error", err, "child", childID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch feeding history"))
			return
		}
		slog.Debug("Server.historyHandler: feedings fetched", "child", childID, "count", len(records))
		writeJSONResponse(w, http.StatusOK, models.Success(records))
	case "nap":
		records, err := s.st.ListNaps(childID)
		if err != nil {
			slog.Error("Server.historyHandler: failed to fetch naps", "error", err, "child", childID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch nap history"))
			return
		}
		slog.Debug("Server.historyHandler: naps fetched", "child", childID, "count", len(records))
		writeJSONResponse(w, http.StatusOK, models.Success(records))
	case "sleep":
		records, err := s.st.ListSleeps(childID)
		if err != nil {
			slog.Error("Server.historyHandler: failed to fetch sleeps", "error", err, "child", childID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch sleep history"))
			return
		}
		slog.Debug("Server.historyHandler: sleeps fetched", "child", childID, "count", len(records))
		writeJSONResponse(w, http.StatusOK, models.Success(records))
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown history endpoint"))
	}
}
