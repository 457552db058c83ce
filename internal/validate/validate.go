// Package validate provides declarative per-field constraint checking for
// wizard and form input.
//
// All functions are pure: they take a value and a constraint descriptor and
// return a validity result with a user-facing message. No side effects, so
// they are suitable for unit testing in isolation.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/NestNote/CradleLog/internal/models"
)

// Constraint describes the checks applied to a single field.
type Constraint struct {
	// Required rejects empty strings and nil values.
	Required bool
	// Min and Max bound numeric values when non-nil.
	Min *float64
	Max *float64
	// OneOf restricts string values to a fixed set when non-empty.
	OneOf []string
	// Pattern must match the full string value when non-nil.
	Pattern *regexp.Regexp
	// MatchField names another field whose value must be byte-equal.
	// The error for a mismatch attaches to THIS field, not the matched one.
	MatchField string
	// Message overrides the generated message on failure.
	Message string
}

// Result is the outcome of validating one field.
type Result struct {
	Valid   bool
	Message string
}

var ok = Result{Valid: true}

func fail(c Constraint, msg string) Result {
	if c.Message != "" {
		msg = c.Message
	}
	return Result{Valid: false, Message: msg}
}

// Bound returns a pointer to v, for use in Constraint Min/Max literals.
func Bound(v float64) *float64 { return &v }

// Field validates a single value against a constraint. The field name is used
// only in generated messages.
func Field(name string, value interface{}, c Constraint) Result {
	s, isString := value.(string)

	if value == nil || (isString && strings.TrimSpace(s) == "") {
		if c.Required {
			return fail(c, fmt.Sprintf("Please provide %s", name))
		}
		return ok
	}

	if c.Min != nil || c.Max != nil {
		n, err := toNumber(value)
		if err != nil {
			return fail(c, fmt.Sprintf("%s must be a number", name))
		}
		if c.Min != nil && n < *c.Min {
			return fail(c, fmt.Sprintf("%s must be at least %g", name, *c.Min))
		}
		if c.Max != nil && n > *c.Max {
			return fail(c, fmt.Sprintf("%s must be at most %g", name, *c.Max))
		}
	}

	if len(c.OneOf) > 0 {
		if !isString || !contains(c.OneOf, s) {
			return fail(c, fmt.Sprintf("Please select a valid %s", name))
		}
	}

	if c.Pattern != nil {
		if !isString || !c.Pattern.MatchString(s) {
			return fail(c, fmt.Sprintf("%s has an invalid format", name))
		}
	}

	return ok
}

// Fields validates a set of values against a set of constraints, resolving
// cross-field MatchField checks against the same value map. The returned map
// contains a Result for every constrained field.
func Fields(values map[string]interface{}, constraints map[string]Constraint) map[string]Result {
	results := make(map[string]Result, len(constraints))
	for name, c := range constraints {
		res := Field(name, values[name], c)
		if res.Valid && c.MatchField != "" {
			if !byteEqual(values[name], values[c.MatchField]) {
				res = fail(c, fmt.Sprintf("%s does not match %s", name, c.MatchField))
			}
		}
		results[name] = res
	}
	return results
}

// AllValid reports whether every result in the map passed.
func AllValid(results map[string]Result) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}

// FeedAmountML validates a feed amount field in milliliters. Non-numeric
// input is rejected with models.ErrAmountNotNumeric semantics.
func FeedAmountML(value interface{}) Result {
	return Field("amount", value, Constraint{
		Required: true,
		Min:      Bound(models.MinFeedAmountML),
		Max:      Bound(models.MaxFeedAmountML),
	})
}

// SleepLatency validates a sleep latency slider value in minutes.
func SleepLatency(value interface{}) Result {
	return Field("sleep latency", value, Constraint{
		Required: true,
		Min:      Bound(models.MinSleepLatencyMinutes),
		Max:      Bound(models.MaxSleepLatencyMinutes),
	})
}

// SideDuration validates a per-side breastfeeding duration in minutes. Quick
// select values must come from the fixed set; custom values are any integer
// in the allowed range.
func SideDuration(minutes int, quickSelect bool) Result {
	if quickSelect {
		for _, d := range models.QuickSelectDurations {
			if minutes == d {
				return ok
			}
		}
		return Result{Valid: false, Message: "Please pick one of the quick durations"}
	}
	if minutes < models.MinSideDurationMinutes || minutes > models.MaxSideDurationMinutes {
		return Result{Valid: false, Message: "Duration must be between 1 and 60 minutes"}
	}
	return ok
}

func toNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, models.ErrAmountNotNumeric
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func byteEqual(a, b interface{}) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	return aok && bok && as == bs
}
