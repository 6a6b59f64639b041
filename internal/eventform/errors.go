package eventform

import (
	"errors"
	"strings"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindPricing       Kind = "pricing"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindUnavailable   Kind = "unavailable"
	KindUpload        Kind = "upload"
	KindSubmission    Kind = "submission"
	KindInFlight      Kind = "in_flight"
)

// ManageEventsPath is where aborted sessions send the operator.
const ManageEventsPath = "/admin/manage-events"

const (
	msgSlugTaken        = "An event with this name already exists on this date. Please change the name or the date."
	msgSubmissionFailed = "Failed to save the event. Please try again."
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error is the single failure type returned by sessions. Field is set for
// field-scoped failures; Detail keeps the raw backend message of a
// submission failure for support purposes.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Fields  []FieldError
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the session can no longer continue.
func (e *Error) Fatal() bool {
	return e.Kind == KindAuthorization || e.Kind == KindNotFound || e.Kind == KindUnavailable
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func validationError(fields []FieldError) *Error {
	e := &Error{
		Kind:    KindValidation,
		Message: "Please correct the highlighted fields.",
		Fields:  fields,
	}
	if len(fields) > 0 {
		e.Field = fields[0].Field
	}
	return e
}

func loadError(err error) *Error {
	if errors.Is(err, event.ErrNotFound) {
		return &Error{Kind: KindNotFound, Message: "Event not found.", Err: err}
	}
	return &Error{Kind: KindUnavailable, Message: "Could not load the event.", Detail: err.Error(), Err: err}
}

func forbidden() *Error {
	return &Error{Kind: KindAuthorization, Message: "You do not have permission to edit this event."}
}

// submissionError rewrites known backend failures into operator-facing text.
func submissionError(err error) *Error {
	if isSlugCollision(err) {
		return &Error{Kind: KindSubmission, Field: "name", Message: msgSlugTaken, Detail: err.Error(), Err: event.ErrSlugTaken}
	}
	return &Error{Kind: KindSubmission, Message: msgSubmissionFailed, Detail: err.Error(), Err: err}
}

func isSlugCollision(err error) bool {
	if errors.Is(err, event.ErrSlugTaken) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") && strings.Contains(msg, "slug")
}
