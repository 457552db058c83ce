package wizard

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/NestNote/CradleLog/internal/models"
)

// MlPerOzFactor converts milliliters to US fluid ounces.
const MlPerOzFactor = 0.033814

// MlToOz converts milliliters to ounces rounded to one decimal place.
// 60 mL -> 2.0 oz, 150 mL -> 5.1 oz.
func MlToOz(ml float64) float64 {
	return math.Round(ml*MlPerOzFactor*10) / 10
}

// assembleFeeding builds the FeedingRecord from collected values. Derived
// fields are computed here, deterministically, at submit time.
func assembleFeeding(kind models.WizardKind, childID string, values map[string]interface{}, now time.Time) models.FeedingRecord {
	rec := models.FeedingRecord{
		ChildID:   childID,
		Kind:      kind,
		StartTime: toTime(values["start_time"]),
		Notes:     toString(values["notes"]),
		CreatedAt: now,
	}

	switch kind {
	case models.WizardBreastfeeding:
		rec.LeftDuration = toInt(values["left_duration"])
		rec.RightDuration = toInt(values["right_duration"])
		rec.TotalDuration = rec.LeftDuration + rec.RightDuration
		rec.FeedingOrder = feedingOrder(rec.LeftDuration, rec.RightDuration, toString(values["first_side"]))
		rec.EndTime = rec.StartTime.Add(time.Duration(rec.TotalDuration) * time.Minute)
	case models.WizardBottle, models.WizardFormula, models.WizardSolids:
		rec.AmountML = toFloat(values["amount_ml"])
		if rec.AmountML > 0 {
			rec.AmountOz = MlToOz(rec.AmountML)
		}
		rec.FoodType = toString(values["food_type"])
		if end := toTime(values["end_time"]); !end.IsZero() {
			rec.EndTime = end
		}
	}
	return rec
}

// feedingOrder lists the sides actually used. When both sides were used, the
// side nursed first leads.
func feedingOrder(left, right int, firstSide string) []string {
	switch {
	case left > 0 && right > 0:
		if firstSide == "Right" {
			return []string{"Right", "Left"}
		}
		return []string{"Left", "Right"}
	case left > 0:
		return []string{"Left"}
	case right > 0:
		return []string{"Right"}
	default:
		return nil
	}
}

func assembleNap(childID string, values map[string]interface{}, now time.Time) models.NapRecord {
	return models.NapRecord{
		ChildID:      childID,
		StartTime:    toTime(values["start_time"]),
		EndTime:      toTime(values["end_time"]),
		Location:     toString(values["location"]),
		Environment:  toString(values["environment"]),
		Onset:        toString(values["onset"]),
		SleepLatency: toInt(values["sleep_latency"]),
		Restfulness:  toString(values["restfulness"]),
		SleepDebt:    toBool(values["sleep_debt"]),
		Notes:        toString(values["notes"]),
		CreatedAt:    now,
	}
}

func assembleSleep(childID string, values map[string]interface{}, now time.Time) models.SleepRecord {
	return models.SleepRecord{
		ChildID:      childID,
		StartTime:    toTime(values["start_time"]),
		EndTime:      toTime(values["end_time"]),
		Location:     toString(values["location"]),
		Environment:  toString(values["environment"]),
		Onset:        toString(values["onset"]),
		SleepLatency: toInt(values["sleep_latency"]),
		NightWakings: toInt(values["night_wakings"]),
		Restfulness:  toString(values["restfulness"]),
		Notes:        toString(values["notes"]),
		CreatedAt:    now,
	}
}

// Loose coercions for values collected from form input. Fields arrive as the
// types the UI hands over: time.Time for pickers, int for sliders, string for
// everything typed.

func toTime(v interface{}) time.Time {
	t, _ := v.(time.Time)
	return t
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
