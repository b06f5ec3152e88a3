package normalizer

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// ExchangeZone is the trading timezone every bar and overlay timestamp is converted to.
const ExchangeZone = "America/New_York"

// LoadLocation resolves a configured zone name, defaulting to ExchangeZone.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		name = ExchangeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// FromEpochMillis converts a UTC epoch-millisecond timestamp to an instant in loc.
// A nil loc means UTC.
func FromEpochMillis(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc)
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
}

var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	// also accept zero-padded 01/02/2006
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// ParseLocal parses a timestamp string into loc. Strings that carry a zone
// offset are converted; naive strings are taken to already be in loc.
// A nil loc means UTC, as in Normalize.
func ParseLocal(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
