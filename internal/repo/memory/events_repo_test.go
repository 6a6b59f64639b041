package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/utils"
)

func payload(name string, date time.Time) event.Payload {
	return event.Payload{
		Slug:    event.Slug(name, date),
		Name:    name,
		Date:    date,
		Payment: event.PaymentOnline,
		Host:    "host@mama.is",
	}
}

func TestEventsRepo_CreateGetUpdate(t *testing.T) {
	r := NewEventsRepo()
	ctx := context.Background()
	date := time.Date(2030, 3, 7, 20, 0, 0, 0, time.UTC)

	p := payload("Cacao", date)
	p.TicketVariants = []event.TicketVariant{{Name: "A", Price: 1000, Meta: map[string]any{"k": "v"}}}

	created, err := r.Create(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// caller mutations must not leak into the store
	p.TicketVariants[0].Meta["k"] = "changed"

	vs, _ := r.ListVariants(ctx, created.ID)
	if len(vs) != 1 || vs[0].Meta["k"] != "v" {
		t.Fatalf("variants = %+v", vs)
	}

	got, err := r.GetBySlug(ctx, "cacao-03-07")
	if err != nil || got.ID != created.ID {
		t.Fatalf("get by slug: %+v %v", got, err)
	}
	if got.TicketVariants != nil {
		t.Fatal("per-event reads should not carry variants")
	}

	p.Name = "Cacao Deluxe"
	p.Slug = event.Slug(p.Name, date)
	p.TicketVariants = nil
	if err := r.Update(ctx, created.ID, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := r.GetBySlug(ctx, "cacao-03-07"); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("old slug should be gone: %v", err)
	}
	vs, _ = r.ListVariants(ctx, created.ID)
	if vs != nil {
		t.Fatalf("variants should be cleared: %+v", vs)
	}
}

func TestEventsRepo_SlugTaken(t *testing.T) {
	r := NewEventsRepo()
	ctx := context.Background()
	date := time.Date(2030, 3, 7, 20, 0, 0, 0, time.UTC)

	a, _ := r.Create(ctx, payload("Dance", date))
	b, _ := r.Create(ctx, payload("Yoga", date))

	if _, err := r.Create(ctx, payload("Dance", date)); !errors.Is(err, event.ErrSlugTaken) {
		t.Fatalf("create dup: %v", err)
	}
	if err := r.Update(ctx, b.ID, payload("Dance", date)); !errors.Is(err, event.ErrSlugTaken) {
		t.Fatalf("update into taken slug: %v", err)
	}
	// keeping its own slug is fine
	if err := r.Update(ctx, a.ID, payload("Dance", date)); err != nil {
		t.Fatalf("self update: %v", err)
	}
}

func TestEventsRepo_NotFound(t *testing.T) {
	r := NewEventsRepo()
	ctx := context.Background()

	if _, err := r.GetByID(ctx, "nope"); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("get by id: %v", err)
	}
	if err := r.Update(ctx, "nope", payload("x", time.Now())); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("update: %v", err)
	}
}

func TestEventsRepo_ListUpcoming(t *testing.T) {
	r := NewEventsRepo()
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, n := range []string{"Past", "First", "Second", "Third"} {
		if _, err := r.Create(ctx, payload(n, now.AddDate(0, 0, i-1))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, _ := r.ListUpcoming(ctx, now, nil, 2)
	if len(page) != 2 || page[0].Name != "First" || page[1].Name != "Second" {
		t.Fatalf("first page %+v", page)
	}

	last := page[1]
	next, _ := r.ListUpcoming(ctx, now, &utils.EventCursor{Date: last.Date, ID: last.ID}, 2)
	if len(next) != 1 || next[0].Name != "Third" {
		t.Fatalf("second page %+v", next)
	}
}
