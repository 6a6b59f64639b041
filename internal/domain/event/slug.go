package event

import (
	"regexp"
	"strings"
	"time"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives the public identifier from the event name and date:
// lowercased name, every run outside [a-z0-9] collapsed to one hyphen,
// then "-MM-dd" of the UTC date. Two events with the same name on the same
// month-day collide; the store rejects the second with ErrSlugTaken.
func Slug(name string, date time.Time) string {
	base := nonSlugRun.ReplaceAllString(strings.ToLower(name), "-")
	base = strings.Trim(base, "-")

	suffix := date.UTC().Format("01-02")
	if base == "" {
		return suffix
	}

	return base + "-" + suffix
}
