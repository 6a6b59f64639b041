package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victorjakob/mamareykjavik/internal/db"
	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/utils"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn, 2)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// variants cascade with their event
	if _, err := pool.Exec(ctx, `TRUNCATE events CASCADE`); err != nil {
		t.Fatalf("reset db: %v", err)
	}
	return pool
}

func payload(name string, date time.Time) event.Payload {
	return event.Payload{
		Slug:             event.Slug(name, date),
		Name:             name,
		ShortDescription: "short",
		Description:      "long",
		Date:             date,
		Location:         event.DefaultLocation,
		Price:            3000,
		Payment:          event.PaymentOnline,
		Host:             "host@mama.is",
		Image:            event.DefaultImageURL,
	}
}

func TestEventsRepo_CreateAndRead(t *testing.T) {
	pool := setupPool(t)
	repo := NewEventsRepo(pool, nil)
	ctx := context.Background()

	date := time.Date(2030, 3, 7, 20, 0, 0, 0, time.UTC)
	p := payload("Cacao Ceremony", date)
	cap20 := 20
	p.TicketVariants = []event.TicketVariant{
		{Name: "Standard", Price: 3000, Meta: map[string]any{}},
		{Name: "Supporter", Price: 5000, Capacity: &cap20, Meta: map[string]any{"tier": "high"}},
	}

	created, err := repo.Create(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetBySlug(ctx, "cacao-ceremony-03-07")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got.ID != created.ID || got.Payment != event.PaymentOnline || !got.Date.Equal(date) {
		t.Fatalf("unexpected event %+v", got)
	}

	vs, err := repo.ListVariants(ctx, created.ID)
	if err != nil {
		t.Fatalf("list variants: %v", err)
	}
	if len(vs) != 2 || vs[0].Name != "Standard" || vs[1].Name != "Supporter" {
		t.Fatalf("variant order lost: %+v", vs)
	}
	if vs[1].Capacity == nil || *vs[1].Capacity != 20 || vs[1].Meta["tier"] != "high" {
		t.Fatalf("variant fields lost: %+v", vs[1])
	}

	if _, err := repo.GetByID(ctx, created.ID); err != nil {
		t.Fatalf("get by id: %v", err)
	}
}

func TestEventsRepo_SlugTaken(t *testing.T) {
	pool := setupPool(t)
	repo := NewEventsRepo(pool, nil)
	ctx := context.Background()

	date := time.Date(2030, 3, 7, 20, 0, 0, 0, time.UTC)
	if _, err := repo.Create(ctx, payload("Ecstatic Dance", date)); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := repo.Create(ctx, payload("Ecstatic Dance", date.AddDate(1, 0, 0)))
	if !errors.Is(err, event.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestEventsRepo_UpdateReplacesVariants(t *testing.T) {
	pool := setupPool(t)
	repo := NewEventsRepo(pool, nil)
	ctx := context.Background()

	date := time.Date(2030, 3, 7, 20, 0, 0, 0, time.UTC)
	p := payload("Sound Bath", date)
	p.TicketVariants = []event.TicketVariant{{Name: "A", Price: 1000}, {Name: "B", Price: 2000}}

	created, err := repo.Create(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p.Name = "Sound Bath Deluxe"
	p.Slug = event.Slug(p.Name, date)
	p.TicketVariants = nil
	if err := repo.Update(ctx, created.ID, p); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Slug != "sound-bath-deluxe-03-07" {
		t.Fatalf("slug = %q", got.Slug)
	}

	vs, _ := repo.ListVariants(ctx, created.ID)
	if len(vs) != 0 {
		t.Fatalf("expected variants cleared, got %+v", vs)
	}
}

func TestEventsRepo_NotFound(t *testing.T) {
	pool := setupPool(t)
	repo := NewEventsRepo(pool, nil)
	ctx := context.Background()

	if _, err := repo.GetBySlug(ctx, "missing"); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("get by slug: %v", err)
	}
	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("get by id: %v", err)
	}
	if err := repo.Update(ctx, "7d0c1a8e-5b0b-4f43-9a8f-0f0f0f0f0f0f", payload("x", time.Now())); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("update: %v", err)
	}
}

func TestEventsRepo_ListUpcomingPages(t *testing.T) {
	pool := setupPool(t)
	repo := NewEventsRepo(pool, nil)
	ctx := context.Background()

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"Past", "First", "Second", "Third"}
	for i, n := range names {
		date := now.AddDate(0, 0, i-1) // "Past" is the day before now
		p := payload(n, date)
		if n == "Second" {
			p.TicketVariants = []event.TicketVariant{{Name: "Door", Price: 2500}}
		}
		if _, err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}

	page, err := repo.ListUpcoming(ctx, now, nil, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].Name != "First" || page[1].Name != "Second" {
		t.Fatalf("unexpected first page %+v", page)
	}
	if len(page[1].TicketVariants) != 1 {
		t.Fatalf("variants not attached: %+v", page[1])
	}

	last := page[len(page)-1]
	next, err := repo.ListUpcoming(ctx, now, &utils.EventCursor{Date: last.Date, ID: last.ID}, 2)
	if err != nil {
		t.Fatalf("list next: %v", err)
	}
	if len(next) != 1 || next[0].Name != "Third" {
		t.Fatalf("unexpected second page %+v", next)
	}
}
