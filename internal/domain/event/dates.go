package event

import (
	"errors"
	"strings"
	"time"
)

// Form inputs carry naive wall-clock timestamps ("2025-03-07T20:00"). They are
// read as UTC by appending a zone marker, never resolved against a local
// timezone. The business runs in a single zone (Reykjavík is UTC year-round).
const FormDateLayout = "2006-01-02T15:04"

var ErrInvalidFormDate = errors.New("invalid date, expected YYYY-MM-DDTHH:MM")

// ParseFormDate interprets a naive form timestamp as a UTC instant.
func ParseFormDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidFormDate
	}

	// already zoned values (e.g. round-tripped ISO strings) parse as-is
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, raw+"Z"); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, ErrInvalidFormDate
}

// FormatFormDate renders an instant back into the naive form input value.
func FormatFormDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(FormDateLayout)
}
