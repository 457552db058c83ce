package models

import (
	"errors"
	"testing"
	"time"
)

func TestIsValidWizardKind(t *testing.T) {
	valid := []WizardKind{WizardBreastfeeding, WizardBottle, WizardFormula, WizardSolids, WizardNap, WizardSleep}
	for _, k := range valid {
		if !IsValidWizardKind(k) {
			t.Errorf("expected %s to be valid", k)
		}
	}
	if IsValidWizardKind("diaper") {
		t.Errorf("expected unknown kind to be invalid")
	}
}

func TestFeedingRecordValidate(t *testing.T) {
	base := FeedingRecord{ChildID: "child-1", Kind: WizardBottle, AmountML: 120,
		StartTime: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid bottle record, got %v", err)
	}

	r := base
	r.AmountML = 0
	if err := r.Validate(); !errors.Is(err, ErrAmountOutOfRange) {
		t.Errorf("expected ErrAmountOutOfRange for 0 mL, got %v", err)
	}
	r.AmountML = 501
	if err := r.Validate(); !errors.Is(err, ErrAmountOutOfRange) {
		t.Errorf("expected ErrAmountOutOfRange for 501 mL, got %v", err)
	}

	bf := FeedingRecord{ChildID: "child-1", Kind: WizardBreastfeeding}
	if err := bf.Validate(); !errors.Is(err, ErrNoSideUsed) {
		t.Errorf("expected ErrNoSideUsed, got %v", err)
	}
	bf.RightDuration = 15
	if err := bf.Validate(); err != nil {
		t.Errorf("expected right-only session to be valid, got %v", err)
	}
	bf.RightDuration = 90
	if err := bf.Validate(); !errors.Is(err, ErrDurationOutOfRange) {
		t.Errorf("expected ErrDurationOutOfRange, got %v", err)
	}

	r = base
	r.ChildID = ""
	if err := r.Validate(); !errors.Is(err, ErrEmptyChildID) {
		t.Errorf("expected ErrEmptyChildID, got %v", err)
	}
}

func TestNapRecordValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	r := NapRecord{ChildID: "child-1", StartTime: start, EndTime: start.Add(30 * time.Minute),
		Location: "Crib", SleepLatency: 10}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid nap record, got %v", err)
	}

	r.EndTime = start
	if err := r.Validate(); !errors.Is(err, ErrEndBeforeStart) {
		t.Errorf("expected ErrEndBeforeStart, got %v", err)
	}

	r.EndTime = start.Add(30 * time.Minute)
	r.SleepLatency = 61
	if err := r.Validate(); !errors.Is(err, ErrLatencyOutOfRange) {
		t.Errorf("expected ErrLatencyOutOfRange, got %v", err)
	}
}

func TestChatMessageValidate(t *testing.T) {
	m := ChatMessage{RoomID: "room-1", SenderID: "user-1", Content: "hello"}
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	m.Content = ""
	if err := m.Validate(); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
	m.Content = "hi"
	m.SenderID = ""
	if err := m.Validate(); !errors.Is(err, ErrEmptyParticipant) {
		t.Errorf("expected ErrEmptyParticipant, got %v", err)
	}
}
