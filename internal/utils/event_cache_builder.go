package utils

import (
	"strconv"
	"strings"
)

// BuildEventsListCacheKey keys one page of the public listing. The prefix is
// shared with listing invalidation.
func BuildEventsListCacheKey(limit int, cursor string) string {
	return "events:list:v1:limit=" + strconv.Itoa(limit) +
		":cursor=" + strings.TrimSpace(cursor)
}

func BuildEventCacheKey(slug string) string {
	return "events:slug:v1:" + strings.ToLower(strings.TrimSpace(slug))
}

const CalendarCacheKey = "calendar:ics:v1"
