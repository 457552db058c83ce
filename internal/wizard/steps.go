package wizard

import (
	"time"

	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/validate"
)

// Choice sets offered by single-choice steps.
var (
	SleepLocations    = []string{"Crib", "Bassinet", "Stroller", "Carrier", "Arms", "Car Seat"}
	SleepEnvironments = []string{"Dark/Quiet", "Dim/Quiet", "Light/Noisy", "White Noise"}
	SleepOnsets       = []string{"Rocked", "Nursed", "Held", "Fed to Sleep", "Independent"}
	RestfulnessLevels = []string{"Restful", "Somewhat Restful", "Restless"}
	SolidFoodTypes    = []string{"Puree", "Mashed", "Finger Food", "Cereal"}
)

// DefaultSleepLatency is the slider midpoint shown when a sleep or nap wizard
// opens, in minutes.
const DefaultSleepLatency = 30

// Defaults returns the initial field values for a wizard kind. Every open
// after a successful submit starts from these, never from prior entries.
func Defaults(kind models.WizardKind, now time.Time) map[string]interface{} {
	start := now.Truncate(time.Minute)
	values := map[string]interface{}{
		"start_time": start,
		"notes":      "",
	}
	switch kind {
	case models.WizardNap:
		values["sleep_latency"] = DefaultSleepLatency
		values["sleep_debt"] = false
	case models.WizardSleep:
		values["sleep_latency"] = DefaultSleepLatency
		values["night_wakings"] = 0
	case models.WizardBreastfeeding:
		values["first_side"] = "Left"
	}
	return values
}

// Steps returns the immutable step list for a wizard kind.
func Steps(kind models.WizardKind) ([]StepDefinition, error) {
	switch kind {
	case models.WizardNap:
		return napSteps(), nil
	case models.WizardSleep:
		return sleepSteps(), nil
	case models.WizardBreastfeeding:
		return breastfeedingSteps(), nil
	case models.WizardBottle:
		return amountFeedingSteps(), nil
	case models.WizardFormula:
		return amountFeedingSteps(), nil
	case models.WizardSolids:
		return solidsSteps(), nil
	default:
		return nil, models.ErrInvalidWizardKind
	}
}

// checkEndAfterStart enforces chronological order across the two time steps.
func checkEndAfterStart(values map[string]interface{}) error {
	start, startOK := values["start_time"].(time.Time)
	end, endOK := values["end_time"].(time.Time)
	if !startOK || !endOK {
		return nil // presence is enforced by Required
	}
	if !end.After(start) {
		return models.ErrEndBeforeStart
	}
	return nil
}

// checkSidesUsed requires at least one breastfeeding side with an in-range duration.
func checkSidesUsed(values map[string]interface{}) error {
	left, _ := values["left_duration"].(int)
	right, _ := values["right_duration"].(int)
	if left == 0 && right == 0 {
		return models.ErrNoSideUsed
	}
	for _, d := range []int{left, right} {
		if d == 0 {
			continue
		}
		if res := validate.SideDuration(d, false); !res.Valid {
			return models.ErrDurationOutOfRange
		}
	}
	return nil
}

func napSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "start", Prompt: "Please set a start time", Required: []string{"start_time"}},
		{ID: "end", Prompt: "Please set an end time", Required: []string{"end_time"}, Check: checkEndAfterStart},
		{ID: "location", Prompt: "Please select a location", Required: []string{"location"},
			Constraints: map[string]validate.Constraint{"location": {Required: true, OneOf: SleepLocations}},
			AutoAdvance: true},
		{ID: "environment", Prompt: "Please select the sleep environment", Required: []string{"environment"},
			Constraints: map[string]validate.Constraint{"environment": {Required: true, OneOf: SleepEnvironments}},
			AutoAdvance: true},
		{ID: "onset", Prompt: "Please select how your child fell asleep", Required: []string{"onset"},
			Constraints: map[string]validate.Constraint{"onset": {Required: true, OneOf: SleepOnsets}},
			AutoAdvance: true},
		{ID: "sleep_latency", Prompt: "Please set how long it took to fall asleep", Required: []string{"sleep_latency"},
			Constraints: map[string]validate.Constraint{"sleep_latency": {
				Required: true,
				Min:      validate.Bound(models.MinSleepLatencyMinutes),
				Max:      validate.Bound(models.MaxSleepLatencyMinutes),
			}}},
		{ID: "restfulness", Prompt: "Please rate the nap's restfulness", Required: []string{"restfulness"},
			Constraints: map[string]validate.Constraint{"restfulness": {Required: true, OneOf: RestfulnessLevels}},
			AutoAdvance: true},
		{ID: "sleep_debt", Prompt: "Please indicate whether your child seemed overtired", Required: []string{"sleep_debt"},
			AutoAdvance: true},
		{ID: "notes", Prompt: "Add any notes"},
	}
}

func sleepSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "start", Prompt: "Please set a bedtime", Required: []string{"start_time"}},
		{ID: "end", Prompt: "Please set a wake time", Required: []string{"end_time"}, Check: checkEndAfterStart},
		{ID: "location", Prompt: "Please select a location", Required: []string{"location"},
			Constraints: map[string]validate.Constraint{"location": {Required: true, OneOf: SleepLocations}},
			AutoAdvance: true},
		{ID: "environment", Prompt: "Please select the sleep environment", Required: []string{"environment"},
			Constraints: map[string]validate.Constraint{"environment": {Required: true, OneOf: SleepEnvironments}},
			AutoAdvance: true},
		{ID: "onset", Prompt: "Please select how your child fell asleep", Required: []string{"onset"},
			Constraints: map[string]validate.Constraint{"onset": {Required: true, OneOf: SleepOnsets}},
			AutoAdvance: true},
		{ID: "sleep_latency", Prompt: "Please set how long it took to fall asleep", Required: []string{"sleep_latency"},
			Constraints: map[string]validate.Constraint{"sleep_latency": {
				Required: true,
				Min:      validate.Bound(models.MinSleepLatencyMinutes),
				Max:      validate.Bound(models.MaxSleepLatencyMinutes),
			}}},
		{ID: "night_wakings", Prompt: "Please set the number of night wakings", Required: []string{"night_wakings"},
			Constraints: map[string]validate.Constraint{"night_wakings": {
				Required: true,
				Min:      validate.Bound(0),
				Max:      validate.Bound(20),
			}}},
		{ID: "restfulness", Prompt: "Please rate the night's restfulness", Required: []string{"restfulness"},
			Constraints: map[string]validate.Constraint{"restfulness": {Required: true, OneOf: RestfulnessLevels}},
			AutoAdvance: true},
		{ID: "notes", Prompt: "Add any notes"},
	}
}

func breastfeedingSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "start", Prompt: "Please set a start time", Required: []string{"start_time"}},
		{ID: "sides", Prompt: "Please record at least one side's duration", Check: checkSidesUsed},
		{ID: "notes", Prompt: "Add any notes"},
	}
}

func amountFeedingSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "start", Prompt: "Please set a start time", Required: []string{"start_time"}},
		{ID: "amount", Prompt: "Please enter the amount in mL", Required: []string{"amount_ml"},
			Constraints: map[string]validate.Constraint{"amount_ml": {
				Required: true,
				Min:      validate.Bound(models.MinFeedAmountML),
				Max:      validate.Bound(models.MaxFeedAmountML),
			}}},
		{ID: "notes", Prompt: "Add any notes"},
	}
}

func solidsSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "start", Prompt: "Please set a start time", Required: []string{"start_time"}},
		{ID: "food_type", Prompt: "Please select a food type", Required: []string{"food_type"},
			Constraints: map[string]validate.Constraint{"food_type": {Required: true, OneOf: SolidFoodTypes}},
			AutoAdvance: true},
		{ID: "amount", Prompt: "Optionally enter the amount in mL",
			Constraints: map[string]validate.Constraint{"amount_ml": {
				Min: validate.Bound(models.MinFeedAmountML),
				Max: validate.Bound(models.MaxFeedAmountML),
			}}},
		{ID: "notes", Prompt: "Add any notes"},
	}
}
