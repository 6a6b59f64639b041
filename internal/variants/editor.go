// Package variants edits the ordered ticket-variant list of an event form.
//
// Every mutation builds a fresh backing slice, so any list previously
// returned by List is never changed underneath its holder.
package variants

import (
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
)

const (
	FieldName     = "name"
	FieldPrice    = "price"
	FieldCapacity = "capacity"
	FieldMeta     = "meta"
)

var (
	ErrIndexOutOfRange = errors.New("variant index out of range")
	ErrUnknownField    = errors.New("unknown variant field")
	ErrInvalidValue    = errors.New("invalid variant value")
)

type Editor struct {
	items []event.TicketVariant
}

// NewEditor starts from a copy of initial.
func NewEditor(initial []event.TicketVariant) *Editor {
	e := &Editor{}
	if len(initial) > 0 {
		e.items = make([]event.TicketVariant, len(initial))
		copy(e.items, initial)
	}
	return e
}

func (e *Editor) Len() int { return len(e.items) }

// List returns a copy of the current variants.
func (e *Editor) List() []event.TicketVariant {
	out := make([]event.TicketVariant, len(e.items))
	copy(out, e.items)
	return out
}

// Payload is the outgoing shape: nil when there are no variants.
func (e *Editor) Payload() []event.TicketVariant {
	if len(e.items) == 0 {
		return nil
	}
	return e.List()
}

func (e *Editor) Add() {
	next := make([]event.TicketVariant, len(e.items), len(e.items)+1)
	copy(next, e.items)
	e.items = append(next, event.TicketVariant{Name: "", Price: 0, Capacity: nil, Meta: map[string]any{}})
}

func (e *Editor) Remove(index int) error {
	if index < 0 || index >= len(e.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	next := make([]event.TicketVariant, 0, len(e.items)-1)
	next = append(next, e.items[:index]...)
	next = append(next, e.items[index+1:]...)
	e.items = next
	return nil
}

// Update replaces the variant at index with a copy that has field set to value.
// Values arrive from decoded JSON, so numbers may be float64 or numeric strings.
func (e *Editor) Update(index int, field string, value any) error {
	if index < 0 || index >= len(e.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	v := e.items[index]
	v.Meta = maps.Clone(v.Meta)

	switch field {
	case FieldName:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: name must be a string", ErrInvalidValue)
		}
		v.Name = s
	case FieldPrice:
		n, ok := toInt(value)
		if !ok || n == nil {
			return fmt.Errorf("%w: price must be a number", ErrInvalidValue)
		}
		v.Price = *n
	case FieldCapacity:
		n, ok := toInt(value)
		if !ok {
			return fmt.Errorf("%w: capacity must be a number or empty", ErrInvalidValue)
		}
		v.Capacity = n
	case FieldMeta:
		m, ok := value.(map[string]any)
		if !ok && value != nil {
			return fmt.Errorf("%w: meta must be an object", ErrInvalidValue)
		}
		if m == nil {
			m = map[string]any{}
		}
		v.Meta = maps.Clone(m)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	next := make([]event.TicketVariant, len(e.items))
	copy(next, e.items)
	next[index] = v
	e.items = next
	return nil
}

// toInt accepts ints, whole floats and numeric strings. nil and "" mean unset.
func toInt(value any) (*int, bool) {
	switch x := value.(type) {
	case nil:
		return nil, true
	case int:
		return &x, true
	case int64:
		n := int(x)
		return &n, true
	case float64:
		if x != float64(int(x)) {
			return nil, false
		}
		n := int(x)
		return &n, true
	case string:
		if x == "" {
			return nil, true
		}
		n, err := strconv.Atoi(x)
		if err != nil {
			return nil, false
		}
		return &n, true
	default:
		return nil, false
	}
}
