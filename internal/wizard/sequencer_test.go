package wizard

import (
	"errors"
	"strings"
	"testing"

	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/validate"
)

func testSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "first", Prompt: "Please pick a color", Required: []string{"color"},
			Constraints: map[string]validate.Constraint{"color": {Required: true, OneOf: []string{"red", "blue"}}}},
		{ID: "second", Prompt: "Please enter a size", Required: []string{"size"}},
		{ID: "third", Prompt: "Add any notes"},
	}
}

func TestNewSequencerRejectsBadStepLists(t *testing.T) {
	if _, err := NewSequencer(nil); err == nil {
		t.Errorf("expected error for empty step list")
	}
	if _, err := NewSequencer([]StepDefinition{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Errorf("expected error for duplicate step ids")
	}
	if _, err := NewSequencer([]StepDefinition{{ID: ""}}); err == nil {
		t.Errorf("expected error for empty step id")
	}
}

func TestNextGatedOnValidity(t *testing.T) {
	seq, err := NewSequencer(testSteps())
	if err != nil {
		t.Fatalf("NewSequencer: %v", err)
	}
	values := map[string]interface{}{}

	err = seq.Next(values)
	if !errors.Is(err, models.ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "Please") {
		t.Errorf("refusal must carry a human-readable reason, got %q", err.Error())
	}
	if seq.Index() != 0 {
		t.Errorf("refused Next must not move the pointer")
	}

	values["color"] = "green"
	if err := seq.Next(values); !errors.Is(err, models.ErrStepInvalid) {
		t.Errorf("expected constraint failure for out-of-set value, got %v", err)
	}

	values["color"] = "red"
	if err := seq.Next(values); err != nil {
		t.Fatalf("expected Next to succeed with valid step, got %v", err)
	}
	if seq.Current().ID != "second" {
		t.Errorf("expected to be on second, got %s", seq.Current().ID)
	}
}

func TestNextBlockedAtLastStep(t *testing.T) {
	seq, _ := NewSequencer(testSteps())
	values := map[string]interface{}{"color": "blue", "size": "M"}

	if err := seq.Next(values); err != nil {
		t.Fatalf("Next to second: %v", err)
	}
	if err := seq.Next(values); err != nil {
		t.Fatalf("Next to third: %v", err)
	}
	if !seq.AtLast() {
		t.Fatalf("expected to be at last step")
	}
	if err := seq.Next(values); !errors.Is(err, models.ErrAtLastStep) {
		t.Errorf("expected ErrAtLastStep, got %v", err)
	}
	if seq.Current().ID != "third" {
		t.Errorf("blocked Next must not corrupt position, got %s", seq.Current().ID)
	}
}

func TestPrevAndReset(t *testing.T) {
	seq, _ := NewSequencer(testSteps())
	values := map[string]interface{}{"color": "blue", "size": "M"}

	if err := seq.Prev(); !errors.Is(err, models.ErrAtFirstStep) {
		t.Errorf("expected ErrAtFirstStep, got %v", err)
	}

	seq.Next(values)
	seq.Next(values)
	if err := seq.Prev(); err != nil {
		t.Fatalf("Prev: %v", err)
	}
	if seq.Current().ID != "second" {
		t.Errorf("expected second after Prev, got %s", seq.Current().ID)
	}
	// Prev never clears values for the step being left.
	if values["size"] != "M" {
		t.Errorf("Prev must not clear entered values")
	}

	seq.Reset()
	if !seq.AtFirst() {
		t.Errorf("Reset must return to the first step")
	}
}

func TestAllValidFindsFirstFailingStep(t *testing.T) {
	seq, _ := NewSequencer(testSteps())
	values := map[string]interface{}{"color": "red"}
	err := seq.AllValid(values)
	if !errors.Is(err, models.ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "size") {
		t.Errorf("expected the size step's reason, got %q", err.Error())
	}

	values["size"] = "L"
	if err := seq.AllValid(values); err != nil {
		t.Errorf("expected all steps valid, got %v", err)
	}
}

func TestWizardStepTables(t *testing.T) {
	// Every wizard kind has a fixed, well-formed step list.
	kinds := []models.WizardKind{
		models.WizardBreastfeeding, models.WizardBottle, models.WizardFormula,
		models.WizardSolids, models.WizardNap, models.WizardSleep,
	}
	for _, kind := range kinds {
		steps, err := Steps(kind)
		if err != nil {
			t.Fatalf("Steps(%s): %v", kind, err)
		}
		if _, err := NewSequencer(steps); err != nil {
			t.Errorf("Steps(%s) produced an invalid sequence: %v", kind, err)
		}
	}
	if _, err := Steps("unknown"); !errors.Is(err, models.ErrInvalidWizardKind) {
		t.Errorf("expected ErrInvalidWizardKind, got %v", err)
	}

	napIDs := []string{"start", "end", "location", "environment", "onset", "sleep_latency", "restfulness", "sleep_debt", "notes"}
	steps, _ := Steps(models.WizardNap)
	seq, _ := NewSequencer(steps)
	got := seq.StepIDs()
	if len(got) != len(napIDs) {
		t.Fatalf("nap wizard: expected %d steps, got %d", len(napIDs), len(got))
	}
	for i, id := range napIDs {
		if got[i] != id {
			t.Errorf("nap step %d: expected %s, got %s", i, id, got[i])
		}
	}
}
