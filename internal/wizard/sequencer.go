// Package wizard implements the multi-step recording flows used to log
// feeding, nap, and sleep events.
//
// A Sequencer walks a fixed, ordered list of steps and gates advancement on
// per-step validity. A Wizard composes a Sequencer with field validation and
// turns the collected values into exactly one submission.
package wizard

import (
	"fmt"
	"log/slog"

	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/validate"
)

// StepDefinition describes one step of a wizard flow. Step definitions are
// immutable; they are declared once per wizard kind.
type StepDefinition struct {
	// ID names the step, e.g. "location" or "sleep_latency".
	ID string
	// Prompt is the human-readable ask, surfaced when advancement is refused.
	Prompt string
	// Required lists field names that must be present before leaving the step.
	Required []string
	// Constraints are per-field checks applied to this step's fields.
	Constraints map[string]validate.Constraint
	// Check optionally validates cross-field conditions (e.g. end after start).
	Check func(values map[string]interface{}) error
	// AutoAdvance marks single-choice steps that move on as soon as a valid
	// value is selected.
	AutoAdvance bool
}

// Valid reports whether the step's requirements hold for the given values.
// On failure it returns a step-specific human-readable error.
func (d StepDefinition) Valid(values map[string]interface{}) error {
	for _, name := range d.Required {
		v, present := values[name]
		if !present || v == nil {
			return fmt.Errorf("%w: %s", models.ErrStepInvalid, d.Prompt)
		}
		if s, isString := v.(string); isString && s == "" {
			return fmt.Errorf("%w: %s", models.ErrStepInvalid, d.Prompt)
		}
	}
	for name, c := range d.Constraints {
		if res := validate.Field(name, values[name], c); !res.Valid {
			return fmt.Errorf("%w: %s", models.ErrStepInvalid, res.Message)
		}
	}
	if d.Check != nil {
		if err := d.Check(values); err != nil {
			return fmt.Errorf("%w: %v", models.ErrStepInvalid, err)
		}
	}
	return nil
}

// Sequencer tracks the current position in a fixed step list. Navigation is
// strictly sequential: there is no jump-to-step, so required clinical context
// cannot be skipped.
type Sequencer struct {
	steps []StepDefinition
	idx   int
}

// NewSequencer creates a Sequencer positioned at the first step.
func NewSequencer(steps []StepDefinition) (*Sequencer, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("sequencer requires at least one step")
	}
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.ID == "" {
			return nil, fmt.Errorf("step id cannot be empty")
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return &Sequencer{steps: steps}, nil
}

// Current returns the step the sequencer is positioned on.
func (s *Sequencer) Current() StepDefinition {
	return s.steps[s.idx]
}

// Index returns the zero-based position of the current step.
func (s *Sequencer) Index() int { return s.idx }

// Len returns the number of steps in the flow.
func (s *Sequencer) Len() int { return len(s.steps) }

// AtFirst reports whether the sequencer is on the first step.
func (s *Sequencer) AtFirst() bool { return s.idx == 0 }

// AtLast reports whether the sequencer is on the last step. The last step's
// action is submit, never next.
func (s *Sequencer) AtLast() bool { return s.idx == len(s.steps)-1 }

// StepValid checks the current step against the given values.
func (s *Sequencer) StepValid(values map[string]interface{}) error {
	return s.Current().Valid(values)
}

// Next advances to the following step. It is refused with a human-readable
// reason while the current step is invalid, and blocked on the last step.
func (s *Sequencer) Next(values map[string]interface{}) error {
	if s.AtLast() {
		slog.Debug("Sequencer.Next: blocked at last step", "step", s.Current().ID)
		return models.ErrAtLastStep
	}
	if err := s.StepValid(values); err != nil {
		slog.Debug("Sequencer.Next: current step invalid", "step", s.Current().ID, "error", err)
		return err
	}
	s.idx++
	slog.Debug("Sequencer.Next: advanced", "step", s.Current().ID, "index", s.idx)
	return nil
}

// Prev moves back one step. Values entered for the step being left are kept.
func (s *Sequencer) Prev() error {
	if s.AtFirst() {
		return models.ErrAtFirstStep
	}
	s.idx--
	slog.Debug("Sequencer.Prev: moved back", "step", s.Current().ID, "index", s.idx)
	return nil
}

// Reset returns the sequencer to the first step.
func (s *Sequencer) Reset() {
	s.idx = 0
}

// AllValid checks every step against the given values, returning the first
// step-specific failure. Submission requires this to pass.
func (s *Sequencer) AllValid(values map[string]interface{}) error {
	for _, step := range s.steps {
		if err := step.Valid(values); err != nil {
			return err
		}
	}
	return nil
}

// StepIDs returns the ordered step ids of the flow.
func (s *Sequencer) StepIDs() []string {
	ids := make([]string, len(s.steps))
	for i, step := range s.steps {
		ids[i] = step.ID
	}
	return ids
}
