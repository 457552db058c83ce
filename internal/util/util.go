// Package util provides small helpers shared across CradleLog components.
package util

import (
	"log/slog"
	"math/rand"
	"os"
	"strings"
)

// TempIDPrefix marks locally generated ids for optimistic chat messages.
// The store replaces these with durable ids on confirmation.
const TempIDPrefix = "tmp-"

const hexChars = "0123456789abcdef"

// TempID generates a random temporary id with the given suffix length.
// Non-cryptographic; these ids only need to be unique within one session.
func TempID(length int) string {
	var b strings.Builder
	b.Grow(len(TempIDPrefix) + length)
	b.WriteString(TempIDPrefix)
	for i := 0; i < length; i++ {
		b.WriteByte(hexChars[rand.Intn(16)])
	}
	return b.String()
}

// IsTempID reports whether an id was generated by TempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// ParseBoolEnv parses a boolean environment variable with a default value.
// Accepts: true/1/yes/on and false/0/no/off (case-insensitive). Invalid values return default.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}
