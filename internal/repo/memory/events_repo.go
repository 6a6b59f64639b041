package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/utils"
)

// EventsRepo keeps events in process. Used for local runs without Postgres
// and by handler tests.
type EventsRepo struct {
	mu     sync.RWMutex
	items  map[string]event.Event // by id
	bySlug map[string]string
}

func NewEventsRepo() *EventsRepo {
	return &EventsRepo{
		items:  make(map[string]event.Event),
		bySlug: make(map[string]string),
	}
}

func (r *EventsRepo) Ping(context.Context) error {
	return nil
}

func (r *EventsRepo) Create(_ context.Context, p event.Payload) (event.Event, error) {
	e := event.NewFromPayload(p)
	e.TicketVariants = cloneVariants(p.TicketVariants)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.bySlug[e.Slug]; taken {
		return event.Event{}, event.ErrSlugTaken
	}

	r.items[e.ID] = e
	r.bySlug[e.Slug] = e.ID

	return withoutVariants(e), nil
}

func (r *EventsRepo) Update(_ context.Context, id string, p event.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok {
		return event.ErrNotFound
	}

	if owner, taken := r.bySlug[p.Slug]; taken && owner != id {
		return event.ErrSlugTaken
	}

	delete(r.bySlug, e.Slug)
	e.Apply(p)
	e.TicketVariants = cloneVariants(p.TicketVariants)

	r.items[id] = e
	r.bySlug[e.Slug] = id

	return nil
}

func (r *EventsRepo) GetBySlug(_ context.Context, slug string) (event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySlug[slug]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return withoutVariants(r.items[id]), nil
}

func (r *EventsRepo) GetByID(_ context.Context, id string) (event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return withoutVariants(e), nil
}

func (r *EventsRepo) ListVariants(_ context.Context, eventID string) ([]event.TicketVariant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneVariants(r.items[eventID].TicketVariants), nil
}

func (r *EventsRepo) ListUpcoming(_ context.Context, from time.Time, after *utils.EventCursor, limit int) ([]event.Event, error) {
	r.mu.RLock()
	out := make([]event.Event, 0, len(r.items))
	for _, e := range r.items {
		if e.Date.Before(from) {
			continue
		}
		if after != nil && !afterCursor(e, *after) {
			continue
		}
		e.TicketVariants = cloneVariants(e.TicketVariants)
		out = append(out, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b event.Event) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func afterCursor(e event.Event, c utils.EventCursor) bool {
	if !e.Date.Equal(c.Date) {
		return e.Date.After(c.Date)
	}
	return e.ID > c.ID
}

// per-event reads mirror Postgres, where variants come from ListVariants
func withoutVariants(e event.Event) event.Event {
	e.TicketVariants = nil
	return e
}

func cloneVariants(in []event.TicketVariant) []event.TicketVariant {
	if len(in) == 0 {
		return nil
	}
	out := make([]event.TicketVariant, len(in))
	for i, v := range in {
		v.Meta = maps.Clone(v.Meta)
		if v.Meta == nil {
			v.Meta = map[string]any{}
		}
		out[i] = v
	}
	return out
}
