// Package calendar renders upcoming events as an iCalendar feed.
package calendar

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
)

const defaultDuration = 2 * time.Hour

type Feed struct {
	// BaseURL is the public site origin used for event links.
	BaseURL string
	Name    string
}

// Render serializes events. Events without a duration are given two hours.
func (f Feed) Render(events []event.Event) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//Mama Reykjavik//Events//EN")
	if f.Name != "" {
		cal.SetXWRCalName(f.Name)
	}

	base := strings.TrimRight(f.BaseURL, "/")

	for _, e := range events {
		start := e.Date.UTC()
		end := start.Add(duration(e))

		ve := cal.AddEvent(e.ID + "@mamareykjavik.is")
		ve.SetDtStampTime(e.UpdatedAt.UTC())
		ve.SetCreatedTime(e.CreatedAt.UTC())
		ve.SetModifiedAt(e.UpdatedAt.UTC())
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(e.Name)
		ve.SetDescription(e.ShortDescription)
		ve.SetLocation(e.Location)
		if base != "" {
			ve.SetURL(base + "/events/" + e.Slug)
		}
	}

	return cal.Serialize()
}

func duration(e event.Event) time.Duration {
	if e.Duration == nil || *e.Duration <= 0 {
		return defaultDuration
	}
	return time.Duration(*e.Duration * float64(time.Hour))
}
