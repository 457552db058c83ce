package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/NestNote/CradleLog/internal/events"
	"github.com/NestNote/CradleLog/internal/models"
)

// mockSubmitter records submissions and can be made to fail or block.
type mockSubmitter struct {
	mu       sync.Mutex
	feedings []models.FeedingRecord
	naps     []models.NapRecord
	sleeps   []models.SleepRecord
	err      error
	started  chan struct{} // closed-signal per call when non-nil
	release  chan struct{} // blocks calls until closed when non-nil
}

func (m *mockSubmitter) begin() error {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	return m.err
}

func (m *mockSubmitter) SubmitFeeding(ctx context.Context, rec models.FeedingRecord) (string, error) {
	if err := m.begin(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedings = append(m.feedings, rec)
	return fmt.Sprintf("feeding-%d", len(m.feedings)), nil
}

func (m *mockSubmitter) SubmitNap(ctx context.Context, rec models.NapRecord) (string, error) {
	if err := m.begin(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.naps = append(m.naps, rec)
	return fmt.Sprintf("nap-%d", len(m.naps)), nil
}

func (m *mockSubmitter) SubmitSleep(ctx context.Context, rec models.SleepRecord) (string, error) {
	if err := m.begin(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, rec)
	return fmt.Sprintf("sleep-%d", len(m.sleeps)), nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// driveNapWizard walks the nap wizard through its happy path.
func driveNapWizard(t *testing.T, w *Wizard, start, end time.Time) {
	t.Helper()
	steps := []struct {
		field string
		value interface{}
		next  bool // explicit continue needed (multi-field / typed steps)
	}{
		{"start_time", start, true},
		{"end_time", end, true},
		{"location", "Crib", false},
		{"environment", "Dark/Quiet", false},
		{"onset", "Rocked", false},
		{"sleep_latency", 10, true},
		{"restfulness", "Restful", false},
		{"sleep_debt", false, false},
		{"notes", "", false},
	}
	for _, s := range steps {
		if err := w.SetField(s.field, s.value); err != nil {
			t.Fatalf("SetField(%s): %v", s.field, err)
		}
		if s.next {
			if err := w.Next(); err != nil {
				t.Fatalf("Next after %s: %v", s.field, err)
			}
		}
	}
}

func TestNapWizardHappyPath(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	start := day.Add(20 * time.Hour)    // 20:00
	end := start.Add(30 * time.Minute)  // 20:30

	sub := &mockSubmitter{}
	bus := events.NewBus()
	var published []events.Event
	cancel := bus.Subscribe(events.TopicNapHistoryChanged, func(e events.Event) {
		published = append(published, e)
	})
	defer cancel()

	w, err := New(models.WizardNap, "child-1", sub, WithClock(fixedClock(day)), WithBus(bus))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if w.CurrentStepID() != "start" {
		t.Fatalf("expected to open on start step, got %s", w.CurrentStepID())
	}

	driveNapWizard(t, w, start, end)
	if w.CurrentStepID() != "notes" {
		t.Fatalf("expected to be on notes step, got %s", w.CurrentStepID())
	}

	recordID, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if recordID == "" {
		t.Errorf("expected a record id")
	}
	if len(sub.naps) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(sub.naps))
	}
	rec := sub.naps[0]
	if !rec.EndTime.After(rec.StartTime) {
		t.Errorf("expected end_time > start_time")
	}
	if rec.SleepLatency != 10 {
		t.Errorf("expected sleep_latency 10, got %d", rec.SleepLatency)
	}
	if len(published) != 1 || published[0].EntityID != "child-1" {
		t.Errorf("expected one nap-history-changed event for child-1, got %v", published)
	}

	// Successful submit resets to documented defaults.
	if w.CurrentStepID() != "start" {
		t.Errorf("expected reset to start step, got %s", w.CurrentStepID())
	}
	if w.Field("sleep_latency") != DefaultSleepLatency {
		t.Errorf("expected default latency %d after reset, got %v", DefaultSleepLatency, w.Field("sleep_latency"))
	}
	if w.Field("sleep_debt") != false {
		t.Errorf("expected sleep_debt default false after reset")
	}
}

func TestBreastfeedingRightSideOnly(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sub := &mockSubmitter{}

	w, err := New(models.WizardBreastfeeding, "child-1", sub, WithClock(fixedClock(start)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := w.Next(); err != nil { // start step has defaulted start_time
		t.Fatalf("Next from start: %v", err)
	}
	if err := w.SetField("right_duration", 15); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := w.Next(); err != nil {
		t.Fatalf("Next from sides: %v", err)
	}

	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(sub.feedings) != 1 {
		t.Fatalf("expected one feeding, got %d", len(sub.feedings))
	}
	rec := sub.feedings[0]
	if rec.TotalDuration != 15 {
		t.Errorf("expected total duration 15, got %d", rec.TotalDuration)
	}
	if len(rec.FeedingOrder) != 1 || rec.FeedingOrder[0] != "Right" {
		t.Errorf("expected feeding_order [Right], got %v", rec.FeedingOrder)
	}
}

func TestSubmitRefusedBeforeLastStep(t *testing.T) {
	sub := &mockSubmitter{}
	w, _ := New(models.WizardNap, "child-1", sub)

	_, err := w.Submit(context.Background())
	if !errors.Is(err, models.ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid before last step, got %v", err)
	}
	if len(sub.naps) != 0 {
		t.Errorf("no submission may be issued before the last step")
	}
}

func TestDoubleSubmitGuard(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := &mockSubmitter{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	w, _ := New(models.WizardNap, "child-1", sub, WithClock(fixedClock(day)))
	driveNapWizard(t, w, day.Add(20*time.Hour), day.Add(20*time.Hour+30*time.Minute))

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()

	<-sub.started // first submission is now in flight

	_, err := w.Submit(context.Background())
	if !errors.Is(err, models.ErrSubmissionInFlight) {
		t.Errorf("expected ErrSubmissionInFlight on rapid re-trigger, got %v", err)
	}

	close(sub.release)
	if err := <-done; err != nil {
		t.Fatalf("first submission should succeed: %v", err)
	}
	if len(sub.naps) != 1 {
		t.Errorf("expected exactly one logical submission, got %d", len(sub.naps))
	}
}

func TestSubmitFailureKeepsValuesAndReenables(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := &mockSubmitter{err: errors.New("backend unavailable")}
	w, _ := New(models.WizardNap, "child-1", sub, WithClock(fixedClock(day)))
	driveNapWizard(t, w, day.Add(20*time.Hour), day.Add(20*time.Hour+30*time.Minute))

	if _, err := w.Submit(context.Background()); err == nil {
		t.Fatalf("expected submission failure")
	}

	// Entered values survive the failure so the user can retry.
	if w.Field("location") != "Crib" {
		t.Errorf("expected location preserved after failure, got %v", w.Field("location"))
	}
	if w.CurrentStepID() != "notes" {
		t.Errorf("expected to remain on notes step, got %s", w.CurrentStepID())
	}

	// Retry succeeds once the backend recovers.
	sub.err = nil
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if len(sub.naps) != 1 {
		t.Errorf("expected one stored nap after retry, got %d", len(sub.naps))
	}
}

func TestSubmitAfterCloseDiscardsResult(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := &mockSubmitter{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	bus := events.NewBus()
	eventsSeen := 0
	cancel := bus.Subscribe(events.TopicNapHistoryChanged, func(events.Event) { eventsSeen++ })
	defer cancel()

	w, _ := New(models.WizardNap, "child-1", sub, WithClock(fixedClock(day)), WithBus(bus))
	driveNapWizard(t, w, day.Add(20*time.Hour), day.Add(20*time.Hour+30*time.Minute))

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	<-sub.started

	w.Close()
	w.Close() // idempotent
	close(sub.release)

	if err := <-done; err != nil {
		t.Fatalf("in-flight submission should complete: %v", err)
	}
	if eventsSeen != 0 {
		t.Errorf("no observer signal may fire after close")
	}
	if _, err := w.Submit(context.Background()); !errors.Is(err, models.ErrWizardClosed) {
		t.Errorf("expected ErrWizardClosed, got %v", err)
	}
}

func TestAutoAdvanceOnSingleChoiceSteps(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	w, _ := New(models.WizardNap, "child-1", &mockSubmitter{}, WithClock(fixedClock(day)))

	w.SetField("start_time", day.Add(20*time.Hour))
	w.Next()
	w.SetField("end_time", day.Add(20*time.Hour+30*time.Minute))
	w.Next()

	if w.CurrentStepID() != "location" {
		t.Fatalf("expected location step, got %s", w.CurrentStepID())
	}
	w.SetField("location", "Crib")
	if w.CurrentStepID() != "environment" {
		t.Errorf("selecting a location should auto-advance, still on %s", w.CurrentStepID())
	}
}

func TestPrevKeepsValues(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	w, _ := New(models.WizardNap, "child-1", &mockSubmitter{}, WithClock(fixedClock(day)))

	w.SetField("start_time", day.Add(20*time.Hour))
	w.Next()
	w.SetField("end_time", day.Add(21*time.Hour))

	if err := w.Prev(); err != nil {
		t.Fatalf("Prev: %v", err)
	}
	if w.Field("end_time") == nil {
		t.Errorf("Prev must not clear the value of the step left")
	}
}

func TestAmountOzTracksLive(t *testing.T) {
	w, _ := New(models.WizardBottle, "child-1", &mockSubmitter{})

	if oz := w.AmountOz(); oz != 0 {
		t.Errorf("expected 0 oz before any amount, got %g", oz)
	}
	w.SetField("amount_ml", 60.0)
	if oz := w.AmountOz(); oz != 2.0 {
		t.Errorf("expected 2.0 oz for 60 mL, got %g", oz)
	}
	w.SetField("amount_ml", "150")
	if oz := w.AmountOz(); oz != 5.1 {
		t.Errorf("expected 5.1 oz for 150 mL, got %g", oz)
	}
}

func TestNewRejectsBadArguments(t *testing.T) {
	sub := &mockSubmitter{}
	if _, err := New("diaper", "child-1", sub); !errors.Is(err, models.ErrInvalidWizardKind) {
		t.Errorf("expected ErrInvalidWizardKind, got %v", err)
	}
	if _, err := New(models.WizardNap, "", sub); !errors.Is(err, models.ErrEmptyChildID) {
		t.Errorf("expected ErrEmptyChildID, got %v", err)
	}
	if _, err := New(models.WizardNap, "child-1", nil); err == nil {
		t.Errorf("expected error for nil submitter")
	}
}
