package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// EventCursor is the keyset position of the last listed event.
type EventCursor struct {
	Date time.Time `json:"date"`
	ID   string    `json:"id"`
}

func EncodeEventCursor(date time.Time, id string) (string, error) {
	b, err := json.Marshal(EventCursor{Date: date.UTC(), ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeEventCursor(cursor string) (EventCursor, error) {
	if cursor == "" {
		return EventCursor{}, errors.Join(ErrInvalidCursor, errors.New("empty cursor"))
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return EventCursor{}, errors.Join(ErrInvalidCursor, err)
	}

	var c EventCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return EventCursor{}, errors.Join(ErrInvalidCursor, err)
	}
	if c.ID == "" || c.Date.IsZero() {
		return EventCursor{}, errors.Join(ErrInvalidCursor, errors.New("invalid cursor payload"))
	}
	return c, nil
}
