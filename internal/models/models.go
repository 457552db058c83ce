// Package models defines the core data structures for CradleLog.
//
// It includes types for recording wizards (feeding, nap, sleep), chat rooms and
// messages, and caregiver/specialist profiles, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// WizardKind identifies which multi-step recording flow is being run.
type WizardKind string

const (
	// WizardBreastfeeding records a breastfeeding session with per-side durations.
	WizardBreastfeeding WizardKind = "breastfeeding"
	// WizardBottle records a pumped-milk bottle feeding.
	WizardBottle WizardKind = "bottle"
	// WizardFormula records a formula feeding.
	WizardFormula WizardKind = "formula"
	// WizardSolids records a solid-food feeding.
	WizardSolids WizardKind = "solids"
	// WizardNap records a daytime nap.
	WizardNap WizardKind = "nap"
	// WizardSleep records a night sleep session.
	WizardSleep WizardKind = "sleep"
)

// Validation constants for recording input
const (
	// MinFeedAmountML is the smallest accepted feed amount in milliliters.
	MinFeedAmountML = 1
	// MaxFeedAmountML is the largest accepted feed amount in milliliters.
	MaxFeedAmountML = 500
	// MinSleepLatencyMinutes is the smallest accepted sleep latency.
	MinSleepLatencyMinutes = 0
	// MaxSleepLatencyMinutes is the largest accepted sleep latency.
	MaxSleepLatencyMinutes = 60
	// MinSideDurationMinutes is the smallest accepted custom per-side duration.
	MinSideDurationMinutes = 1
	// MaxSideDurationMinutes is the largest accepted custom per-side duration.
	MaxSideDurationMinutes = 60
	// MaxNotesLength caps free-text notes on any recording.
	MaxNotesLength = 2000
	// MaxMessageLength caps chat message content.
	MaxMessageLength = 4096
)

// QuickSelectDurations lists the per-side breastfeeding durations offered as
// one-tap choices, in minutes.
var QuickSelectDurations = []int{5, 10, 15, 20, 25, 30}

// Error variables for better error handling and testability
var (
	ErrInvalidWizardKind    = errors.New("invalid wizard kind")
	ErrEmptyChildID         = errors.New("child id cannot be empty")
	ErrAmountOutOfRange     = errors.New("feed amount must be between 1 and 500 mL")
	ErrAmountNotNumeric     = errors.New("feed amount must be a number")
	ErrLatencyOutOfRange    = errors.New("sleep latency must be between 0 and 60 minutes")
	ErrDurationOutOfRange   = errors.New("side duration must be between 1 and 60 minutes")
	ErrNoSideUsed           = errors.New("at least one feeding side is required")
	ErrEndBeforeStart       = errors.New("end time must be after start time")
	ErrNotesTooLong         = errors.New("notes exceed maximum length")
	ErrEmptyContent         = errors.New("message content cannot be empty")
	ErrMessageTooLong       = errors.New("message content exceeds maximum length")
	ErrEmptyParticipant     = errors.New("participant id cannot be empty")
	ErrSubmissionInFlight   = errors.New("a submission is already in flight")
	ErrSendInFlight         = errors.New("a send is already in flight")
	ErrSessionClosed        = errors.New("chat session is closed")
	ErrSessionNotReady      = errors.New("chat session is not ready")
	ErrStepInvalid          = errors.New("current step is not valid")
	ErrAtLastStep           = errors.New("already at the last step")
	ErrAtFirstStep          = errors.New("already at the first step")
	ErrWizardClosed         = errors.New("wizard is closed")
	ErrInvalidRole          = errors.New("role must be caregiver or specialist")
	ErrEmptyName            = errors.New("name cannot be empty")
	ErrMissingBirthDate     = errors.New("birth date is required")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrRoomNotFound         = errors.New("chat room not found")
	ErrChildNotFound        = errors.New("child not found")
)

// IsValidWizardKind checks if the given wizard kind is supported.
func IsValidWizardKind(k WizardKind) bool {
	switch k {
	case WizardBreastfeeding, WizardBottle, WizardFormula, WizardSolids, WizardNap, WizardSleep:
		return true
	default:
		return false
	}
}

// Role distinguishes the two party types in the product.
type Role string

const (
	// RoleCaregiver is a parent or guardian logging events for a child.
	RoleCaregiver Role = "caregiver"
	// RoleSpecialist is a sleep specialist managing a client roster.
	RoleSpecialist Role = "specialist"
)

// IsValidRole checks if the given role is supported.
func IsValidRole(r Role) bool {
	switch r {
	case RoleCaregiver, RoleSpecialist:
		return true
	default:
		return false
	}
}

// Profile is a caregiver or specialist account as cached by this service.
type Profile struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"` // E.164, used for SMS notifications
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks a profile before it is stored.
func (p *Profile) Validate() error {
	if !IsValidRole(p.Role) {
		return ErrInvalidRole
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Child is an infant whose sleep and feeding events are being tracked.
type Child struct {
	ID          string    `json:"id"`
	CaregiverID string    `json:"caregiver_id"`
	Name        string    `json:"name"`
	BirthDate   time.Time `json:"birth_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks a child before it is stored.
func (c *Child) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.CaregiverID == "" {
		return ErrEmptyParticipant
	}
	if c.BirthDate.IsZero() {
		return ErrMissingBirthDate
	}
	return nil
}

// FeedingRecord is the assembled payload of a completed feeding wizard.
type FeedingRecord struct {
	ID            string     `json:"id,omitempty"`
	ChildID       string     `json:"child_id"`
	Kind          WizardKind `json:"kind"` // breastfeeding, bottle, formula, or solids
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	AmountML      float64    `json:"amount_ml,omitempty"`
	AmountOz      float64    `json:"amount_oz,omitempty"` // derived: round(mL * 0.033814, 1)
	LeftDuration  int        `json:"left_duration,omitempty"`
	RightDuration int        `json:"right_duration,omitempty"`
	TotalDuration int        `json:"total_duration,omitempty"` // derived: sum of used sides
	FeedingOrder  []string   `json:"feeding_order,omitempty"`  // sides actually used, in order
	FoodType      string     `json:"food_type,omitempty"`      // solids only
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NapRecord is the assembled payload of a completed nap wizard.
type NapRecord struct {
	ID           string    `json:"id,omitempty"`
	ChildID      string    `json:"child_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Location     string    `json:"location"`
	Environment  string    `json:"environment"`
	Onset        string    `json:"onset"` // how the child fell asleep
	SleepLatency int       `json:"sleep_latency"`
	Restfulness  string    `json:"restfulness"`
	SleepDebt    bool      `json:"sleep_debt"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SleepRecord is the assembled payload of a completed night-sleep wizard.
type SleepRecord struct {
	ID           string    `json:"id,omitempty"`
	ChildID      string    `json:"child_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Location     string    `json:"location"`
	Environment  string    `json:"environment"`
	Onset        string    `json:"onset"`
	SleepLatency int       `json:"sleep_latency"`
	NightWakings int       `json:"night_wakings"`
	Restfulness  string    `json:"restfulness"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChatRoom links one specialist and one caregiver. Resolution is idempotent:
// the same pair always maps to the same room.
type ChatRoom struct {
	ID           string    `json:"id"`
	SpecialistID string    `json:"specialist_id"`
	CaregiverID  string    `json:"caregiver_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChatMessage is one message in a room. The store is the source of truth;
// sessions hold an arrival-ordered cache for the lifetime of an open window.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Edited    bool      `json:"edited"`
	Deleted   bool      `json:"deleted"`
	Read      bool      `json:"read"`

	// Session-local delivery state for optimistic copies. Never persisted.
	Pending bool `json:"-"`
	Failed  bool `json:"-"`
}

// Validate performs basic validation on a ChatMessage before it is sent.
func (m *ChatMessage) Validate() error {
	if m.RoomID == "" {
		return ErrRoomNotFound
	}
	if m.SenderID == "" {
		return ErrEmptyParticipant
	}
	if m.Content == "" {
		return ErrEmptyContent
	}
	if len(m.Content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// Validate checks a FeedingRecord for internal consistency.
func (r *FeedingRecord) Validate() error {
	if r.ChildID == "" {
		return ErrEmptyChildID
	}
	switch r.Kind {
	case WizardBreastfeeding:
		if r.LeftDuration == 0 && r.RightDuration == 0 {
			return ErrNoSideUsed
		}
		for _, d := range []int{r.LeftDuration, r.RightDuration} {
			if d != 0 && (d < MinSideDurationMinutes || d > MaxSideDurationMinutes) {
				return ErrDurationOutOfRange
			}
		}
	case WizardBottle, WizardFormula:
		if r.AmountML < MinFeedAmountML || r.AmountML > MaxFeedAmountML {
			return ErrAmountOutOfRange
		}
	case WizardSolids:
		// Amount is optional for solids; range-check only when provided.
		if r.AmountML != 0 && (r.AmountML < MinFeedAmountML || r.AmountML > MaxFeedAmountML) {
			return ErrAmountOutOfRange
		}
	default:
		return ErrInvalidWizardKind
	}
	if !r.EndTime.IsZero() && !r.EndTime.After(r.StartTime) {
		return ErrEndBeforeStart
	}
	if len(r.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// Validate checks a NapRecord for internal consistency.
func (r *NapRecord) Validate() error {
	if r.ChildID == "" {
		return ErrEmptyChildID
	}
	if !r.EndTime.After(r.StartTime) {
		return ErrEndBeforeStart
	}
	if r.SleepLatency < MinSleepLatencyMinutes || r.SleepLatency > MaxSleepLatencyMinutes {
		return ErrLatencyOutOfRange
	}
	if len(r.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// Validate checks a SleepRecord for internal consistency.
func (r *SleepRecord) Validate() error {
	if r.ChildID == "" {
		return ErrEmptyChildID
	}
	if !r.EndTime.After(r.StartTime) {
		return ErrEndBeforeStart
	}
	if r.SleepLatency < MinSleepLatencyMinutes || r.SleepLatency > MaxSleepLatencyMinutes {
		return ErrLatencyOutOfRange
	}
	if len(r.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}
