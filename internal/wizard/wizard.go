package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/NestNote/CradleLog/internal/events"
	"github.com/NestNote/CradleLog/internal/models"
)

// Submitter persists one assembled recording payload. The store-backed
// recorder implements it in production; tests supply mocks.
type Submitter interface {
	SubmitFeeding(ctx context.Context, rec models.FeedingRecord) (string, error)
	SubmitNap(ctx context.Context, rec models.NapRecord) (string, error)
	SubmitSleep(ctx context.Context, rec models.SleepRecord) (string, error)
}

// Wizard orchestrates one recording flow: a step sequencer over collected
// field values, culminating in exactly one submission. Safe for use from the
// UI event loop and network-callback goroutines.
type Wizard struct {
	kind      models.WizardKind
	childID   string
	submitter Submitter
	bus       *events.Bus
	now       func() time.Time

	mu         sync.Mutex
	seq        *Sequencer
	values     map[string]interface{}
	submitting bool
	closed     bool
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithClock overrides the wizard's time source (for tests and defaults).
func WithClock(fn func() time.Time) Option {
	return func(w *Wizard) { w.now = fn }
}

// WithBus attaches an event bus; a history-changed event is published after
// each successful submission.
func WithBus(b *events.Bus) Option {
	return func(w *Wizard) { w.bus = b }
}

// New creates a wizard of the given kind, positioned at the first step with
// the kind's default values.
func New(kind models.WizardKind, childID string, submitter Submitter, opts ...Option) (*Wizard, error) {
	if !models.IsValidWizardKind(kind) {
		return nil, models.ErrInvalidWizardKind
	}
	if childID == "" {
		return nil, models.ErrEmptyChildID
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}

	steps, err := Steps(kind)
	if err != nil {
		return nil, err
	}
	seq, err := NewSequencer(steps)
	if err != nil {
		return nil, err
	}

	w := &Wizard{
		kind:      kind,
		childID:   childID,
		submitter: submitter,
		now:       time.Now,
		seq:       seq,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.values = Defaults(kind, w.now())

	slog.Debug("Wizard created", "kind", kind, "child", childID, "steps", seq.Len())
	return w, nil
}

// Kind returns the wizard's flow kind.
func (w *Wizard) Kind() models.WizardKind { return w.kind }

// CurrentStepID returns the id of the step the wizard is on.
func (w *Wizard) CurrentStepID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq.Current().ID
}

// Field returns the current value of a field.
func (w *Wizard) Field(name string) interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.values[name]
}

// Values returns a copy of all collected field values.
func (w *Wizard) Values() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]interface{}, len(w.values))
	for k, v := range w.values {
		out[k] = v
	}
	return out
}

// SetField records a field value. On single-choice steps a valid selection
// auto-advances to the next step to reduce taps in linear flows.
func (w *Wizard) SetField(name string, value interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return models.ErrWizardClosed
	}
	w.values[name] = value
	slog.Debug("Wizard.SetField", "kind", w.kind, "step", w.seq.Current().ID, "field", name)

	step := w.seq.Current()
	if step.AutoAdvance && !w.seq.AtLast() && step.Valid(w.values) == nil {
		if err := w.seq.Next(w.values); err == nil {
			slog.Debug("Wizard.SetField: auto-advanced", "kind", w.kind, "step", w.seq.Current().ID)
		}
	}
	return nil
}

// Next advances to the following step; refused with a step-specific reason
// while the current step is invalid. Multi-field steps use this as their
// explicit continue action.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return models.ErrWizardClosed
	}
	return w.seq.Next(w.values)
}

// Prev moves back one step without clearing the values of the step left.
func (w *Wizard) Prev() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return models.ErrWizardClosed
	}
	return w.seq.Prev()
}

// Reset returns to the first step and restores the kind's defaults,
// discarding any in-progress partial entry.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
}

// reset must be called with w.mu held.
func (w *Wizard) reset() {
	w.seq.Reset()
	w.values = Defaults(w.kind, w.now())
	slog.Debug("Wizard reset to defaults", "kind", w.kind)
}

// AmountOz exposes the live ounce conversion of the amount field so displays
// can track the raw mL input as it is typed.
func (w *Wizard) AmountOz() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	ml := toFloat(w.values["amount_ml"])
	if ml <= 0 {
		return 0
	}
	return MlToOz(ml)
}

// Submit validates every step, assembles the payload, and issues exactly one
// submission. While a submission is in flight further Submit calls are
// refused, so a rapid double trigger yields one logical submission. On
// failure the collected values are kept so the user can retry; on success the
// wizard resets to defaults and interested observers are notified.
func (w *Wizard) Submit(ctx context.Context) (string, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return "", models.ErrWizardClosed
	}
	if w.submitting {
		w.mu.Unlock()
		slog.Warn("Wizard.Submit: refused, submission already in flight", "kind", w.kind)
		return "", models.ErrSubmissionInFlight
	}
	if !w.seq.AtLast() {
		w.mu.Unlock()
		return "", fmt.Errorf("%w: remaining steps must be completed first", models.ErrStepInvalid)
	}
	if err := w.seq.AllValid(w.values); err != nil {
		w.mu.Unlock()
		return "", err
	}

	values := make(map[string]interface{}, len(w.values))
	for k, v := range w.values {
		values[k] = v
	}
	w.submitting = true
	w.mu.Unlock()

	recordID, err := w.submit(ctx, values)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if err != nil {
		// Keep entered values so the dialog can surface the error and retry.
		slog.Error("Wizard.Submit: submission failed", "kind", w.kind, "child", w.childID, "error", err)
		return "", err
	}
	if w.closed {
		// The dialog went away while the call was in flight; drop the result
		// quietly rather than touching disposed state.
		slog.Debug("Wizard.Submit: completed after close, discarding result", "kind", w.kind)
		return recordID, nil
	}

	slog.Info("Wizard.Submit: recorded", "kind", w.kind, "child", w.childID, "record_id", recordID)
	w.reset()
	if w.bus != nil {
		w.bus.Publish(events.Event{Topic: w.topic(), EntityID: w.childID})
	}
	return recordID, nil
}

// submit assembles and persists the payload for the wizard's kind.
func (w *Wizard) submit(ctx context.Context, values map[string]interface{}) (string, error) {
	now := w.now()
	switch w.kind {
	case models.WizardNap:
		rec := assembleNap(w.childID, values, now)
		if err := rec.Validate(); err != nil {
			return "", err
		}
		return w.submitter.SubmitNap(ctx, rec)
	case models.WizardSleep:
		rec := assembleSleep(w.childID, values, now)
		if err := rec.Validate(); err != nil {
			return "", err
		}
		return w.submitter.SubmitSleep(ctx, rec)
	default:
		rec := assembleFeeding(w.kind, w.childID, values, now)
		if err := rec.Validate(); err != nil {
			return "", err
		}
		return w.submitter.SubmitFeeding(ctx, rec)
	}
}

func (w *Wizard) topic() events.Topic {
	switch w.kind {
	case models.WizardNap:
		return events.TopicNapHistoryChanged
	case models.WizardSleep:
		return events.TopicSleepHistoryChanged
	default:
		return events.TopicFeedingHistoryChanged
	}
}

// Close marks the wizard's dialog as dismissed. In-flight submissions that
// complete afterwards are discarded instead of mutating disposed state.
// Close is idempotent.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	slog.Debug("Wizard closed", "kind", w.kind)
}
