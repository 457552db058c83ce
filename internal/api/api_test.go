package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NestNote/CradleLog/internal/events"
	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/realtime"
	"github.com/NestNote/CradleLog/internal/store"
)

type testEnv struct {
	server *Server
	hub    *realtime.Hub
	bus    *events.Bus
	st     *store.InMemoryStore
}

func newTestEnv() *testEnv {
	st := store.NewInMemoryStore()
	hub := realtime.NewHub()
	bus := events.NewBus()
	return &testEnv{
		server: NewServer(st, hub, bus, nil),
		hub:    hub,
		bus:    bus,
		st:     st,
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestRecordNapAndListHistory(t *testing.T) {
	env := newTestEnv()
	handler := env.server.Handler()

	napEvents := 0
	cancel := env.bus.Subscribe(events.TopicNapHistoryChanged, func(events.Event) { napEvents++ })
	defer cancel()

	start := time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC)
	rec := postJSON(t, handler, "/record/nap", models.NapRecord{
		ChildID:      "child-1",
		StartTime:    start,
		EndTime:      start.Add(90 * time.Minute),
		Location:     "Crib",
		Environment:  "Dark",
		Onset:        "Put down awake",
		SleepLatency: 10,
		Restfulness:  "Restful",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != string(models.APIStatusRecorded) {
		t.Errorf("expected recorded status, got %s", resp.Status)
	}
	if napEvents != 1 {
		t.Errorf("expected 1 nap history event, got %d", napEvents)
	}

	hist := getJSON(t, handler, "/history/nap/child-1")
	if hist.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", hist.Code)
	}
	histResp := decodeResponse(t, hist)
	records, ok := histResp.Result.([]interface{})
	if !ok || len(records) != 1 {
		t.Fatalf("expected 1 nap in history, got %v", histResp.Result)
	}
}

func TestRecordFeedingRejectsInvalidAmount(t *testing.T) {
	env := newTestEnv()
	handler := env.server.Handler()

	rec := postJSON(t, handler, "/record/feeding", models.FeedingRecord{
		ChildID:   "child-1",
		Kind:      models.WizardBottle,
		StartTime: time.Now(),
		AmountML:  900,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range amount, got %d", rec.Code)
	}
}

func TestRecordUnknownKind(t *testing.T) {
	env := newTestEnv()
	rec := postJSON(t, env.server.Handler(), "/record/burp", map[string]string{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown record kind, got %d", rec.Code)
	}
}

func TestRecordRequiresPost(t *testing.T) {
	env := newTestEnv()
	rec := getJSON(t, env.server.Handler(), "/record/nap")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("expected Allow: POST, got %q", allow)
	}
}

func TestResolveRoomIdempotentOverHTTP(t *testing.T) {
	env := newTestEnv()
	handler := env.server.Handler()

	body := map[string]string{"specialist_id": "spec-1", "caregiver_id": "care-1"}
	first := decodeResponse(t, postJSON(t, handler, "/chat/rooms", body))
	second := decodeResponse(t, postJSON(t, handler, "/chat/rooms", body))

	firstRoom := first.Result.(map[string]interface{})
	secondRoom := second.Result.(map[string]interface{})
	if firstRoom["id"] != secondRoom["id"] {
		t.Errorf("same pair resolved to different rooms: %v vs %v", firstRoom["id"], secondRoom["id"])
	}
}

func TestResolveRoomRejectsMissingParticipant(t *testing.T) {
	env := newTestEnv()
	rec := postJSON(t, env.server.Handler(), "/chat/rooms", map[string]string{"specialist_id": "spec-1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSendAndListMessages(t *testing.T) {
	env := newTestEnv()
	handler := env.server.Handler()

	room, err := env.st.ResolveRoom("spec-1", "care-1")
	if err != nil {
		t.Fatalf("ResolveRoom: %v", err)
	}

	chatEvents := 0
	cancel := env.bus.Subscribe(events.TopicChatMessage, func(events.Event) { chatEvents++ })
	defer cancel()

	send := postJSON(t, handler, "/chat/rooms/"+room.ID+"/messages", map[string]string{
		"sender_id": "care-1",
		"content":   "she slept through the night",
	})
	if send.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", send.Code, send.Body.String())
	}
	if chatEvents != 1 {
		t.Errorf("expected 1 chat event, got %d", chatEvents)
	}

	empty := postJSON(t, handler, "/chat/rooms/"+room.ID+"/messages", map[string]string{
		"sender_id": "care-1",
		"content":   "   ",
	})
	if empty.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty content, got %d", empty.Code)
	}

	list := getJSON(t, handler, "/chat/rooms/"+room.ID+"/messages")
	listResp := decodeResponse(t, list)
	msgs, ok := listResp.Result.([]interface{})
	if !ok || len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %v", listResp.Result)
	}
}

func TestMarkReadOverHTTP(t *testing.T) {
	env := newTestEnv()
	handler := env.server.Handler()

	room, _ := env.st.ResolveRoom("spec-1", "care-1")
	env.st.AddMessage(models.ChatMessage{RoomID: room.ID, SenderID: "spec-1", Content: "how were naps today?"})

	rec := postJSON(t, handler, "/chat/rooms/"+room.ID+"/read", map[string]string{"reader_id": "care-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	msgs, _ := env.st.ListMessages(room.ID)
	if len(msgs) != 1 || !msgs[0].Read {
		t.Errorf("expected message marked read, got %+v", msgs)
	}
}

func TestSummaryUnavailableWithoutGenAI(t *testing.T) {
	env := newTestEnv()
	rec := getJSON(t, env.server.Handler(), "/summary/child-1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without GenAI client, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv()
	rec := getJSON(t, env.server.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestWebsocketStreamsRoomMessages(t *testing.T) {
	env := newTestEnv()
	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	room, err := env.st.ResolveRoom("spec-1", "care-1")
	if err != nil {
		t.Fatalf("ResolveRoom: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws?room_id=" + room.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	// Wait for the server side to register the subscription.
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.SubscriberCount(room.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(srv.URL+"/chat/rooms/"+room.ID+"/messages", "application/json",
		strings.NewReader(`{"sender_id":"spec-1","content":"try an earlier bedtime"}`))
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.ChatMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	if msg.Content != "try an earlier bedtime" || msg.RoomID != room.ID {
		t.Errorf("unexpected websocket message: %+v", msg)
	}
}
