// Package testutil provides common test utilities and helpers for CradleLog tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NestNote/CradleLog/internal/api"
	"github.com/NestNote/CradleLog/internal/events"
	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/realtime"
	"github.com/NestNote/CradleLog/internal/store"
)

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer() *api.Server {
	st := store.NewInMemoryStore()
	hub := realtime.NewHub()
	bus := events.NewBus()
	return api.NewServer(st, hub, bus, nil)
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// SeedTestData adds a caregiver, a child, and a few records for testing.
// It returns the caregiver and child ids.
func SeedTestData(t *testing.T, st store.Store) (caregiverID, childID string) {
	t.Helper()

	caregiverID, err := st.AddProfile(models.Profile{Role: models.RoleCaregiver, Name: "Dana", Phone: "+15550100"})
	if err != nil {
		t.Fatalf("failed to add test caregiver: %v", err)
	}
	childID, err = st.AddChild(models.Child{CaregiverID: caregiverID, Name: "Sam", BirthDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("failed to add test child: %v", err)
	}

	start := time.Now().Add(-6 * time.Hour)
	if _, err := st.AddFeeding(models.FeedingRecord{
		ChildID: childID, Kind: models.WizardBottle, StartTime: start,
		AmountML: 120, AmountOz: 4.1, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("failed to add test feeding: %v", err)
	}
	if _, err := st.AddNap(models.NapRecord{
		ChildID: childID, StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour),
		Location: "Crib", Environment: "Dark", Onset: "Put down awake",
		SleepLatency: 10, Restfulness: "Restful", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("failed to add test nap: %v", err)
	}
	return caregiverID, childID
}

// AssertMessageEquals compares the persisted fields of two chat messages.
func AssertMessageEquals(t *testing.T, expected, actual models.ChatMessage, context string) {
	t.Helper()
	if actual.RoomID != expected.RoomID ||
		actual.SenderID != expected.SenderID ||
		actual.Content != expected.Content ||
		actual.Edited != expected.Edited ||
		actual.Deleted != expected.Deleted ||
		actual.Read != expected.Read {
		t.Errorf("%s: messages don't match\nexpected: %+v\nactual: %+v", context, expected, actual)
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
