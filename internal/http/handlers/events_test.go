package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victorjakob/mamareykjavik/internal/cache"
	"github.com/victorjakob/mamareykjavik/internal/calendar"
	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/http/handlers"
	"github.com/victorjakob/mamareykjavik/internal/utils"
)

type fakeEventsLister struct {
	listUpcomingFn func(ctx context.Context, from time.Time, after *utils.EventCursor, limit int) ([]event.Event, error)
	getBySlugFn    func(ctx context.Context, slug string) (event.Event, error)
	listVariantsFn func(ctx context.Context, eventID string) ([]event.TicketVariant, error)

	listCalls int
}

func (f *fakeEventsLister) ListUpcoming(ctx context.Context, from time.Time, after *utils.EventCursor, limit int) ([]event.Event, error) {
	f.listCalls++
	if f.listUpcomingFn == nil {
		return nil, nil
	}
	return f.listUpcomingFn(ctx, from, after, limit)
}

func (f *fakeEventsLister) GetBySlug(ctx context.Context, slug string) (event.Event, error) {
	if f.getBySlugFn == nil {
		return event.Event{}, event.ErrNotFound
	}
	return f.getBySlugFn(ctx, slug)
}

func (f *fakeEventsLister) ListVariants(ctx context.Context, eventID string) ([]event.TicketVariant, error) {
	if f.listVariantsFn == nil {
		return nil, nil
	}
	return f.listVariantsFn(ctx, eventID)
}

type cacheCounter struct {
	hits, misses int
}

func (c *cacheCounter) ObserveCache(_ string, hit bool) {
	if hit {
		c.hits++
		return
	}
	c.misses++
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupEventsRouter(repo handlers.EventsLister, metrics handlers.CacheObserver) *gin.Engine {
	h := handlers.NewEventsHandler(repo, handlers.EventsHandlerConfig{
		Cache:   cache.New(time.Minute),
		Metrics: metrics,
		Feed:    calendar.Feed{BaseURL: "https://mama.is"},
		Now:     func() time.Time { return fixedNow },
	})

	r := gin.New()
	r.GET("/events", h.ListEvents)
	r.GET("/events/:slug", h.GetEvent)
	r.GET("/calendar.ics", h.Calendar)
	return r
}

func sampleEvents(n int) []event.Event {
	out := make([]event.Event, 0, n)
	for i := 0; i < n; i++ {
		d := fixedNow.Add(time.Duration(i+1) * 24 * time.Hour)
		out = append(out, event.Event{
			ID:    "evt-" + string(rune('a'+i)),
			Slug:  "night-" + d.Format("01-02"),
			Name:  "Night",
			Date:  d,
			Price: 3000,
			Host:  "host@mama.is",
		})
	}
	return out
}

type listResponse struct {
	Items      []map[string]any `json:"items"`
	Count      int              `json:"count"`
	NextCursor string           `json:"nextCursor"`
}

func get(t *testing.T, r *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListEvents_InvalidLimit(t *testing.T) {
	r := setupEventsRouter(&fakeEventsLister{}, nil)

	for _, limit := range []string{"0", "101", "abc"} {
		if w := get(t, r, "/events?limit="+limit, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s status = %d", limit, w.Code)
		}
	}
}

func TestListEvents_InvalidCursor(t *testing.T) {
	r := setupEventsRouter(&fakeEventsLister{}, nil)

	if w := get(t, r, "/events?cursor=not-a-cursor", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListEvents_PagesWithCursor(t *testing.T) {
	all := sampleEvents(3)

	var gotLimit int
	var gotAfter *utils.EventCursor
	repo := &fakeEventsLister{
		listUpcomingFn: func(_ context.Context, from time.Time, after *utils.EventCursor, limit int) ([]event.Event, error) {
			if !from.Equal(fixedNow) {
				t.Fatalf("from = %v", from)
			}
			gotLimit, gotAfter = limit, after
			if after != nil {
				return all[2:], nil
			}
			return all, nil
		},
	}
	r := setupEventsRouter(repo, nil)

	w := get(t, r, "/events?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if gotLimit != 3 {
		t.Fatalf("repo limit = %d, want limit+1", gotLimit)
	}

	var page listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Count != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected page %+v", page)
	}
	if _, ok := page.Items[0]["host"]; ok {
		t.Fatal("host contact leaked into public listing")
	}

	w = get(t, r, "/events?limit=2&cursor="+page.NextCursor, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotAfter == nil || gotAfter.ID != all[1].ID {
		t.Fatalf("cursor not forwarded: %+v", gotAfter)
	}
	if page.Count != 1 || page.NextCursor != "" {
		t.Fatalf("last page %+v", page)
	}
}

func TestListEvents_CachedAndConditional(t *testing.T) {
	repo := &fakeEventsLister{
		listUpcomingFn: func(context.Context, time.Time, *utils.EventCursor, int) ([]event.Event, error) {
			return sampleEvents(1), nil
		},
	}
	metrics := &cacheCounter{}
	r := setupEventsRouter(repo, metrics)

	first := get(t, r, "/events", nil)
	etag := first.Header().Get("ETag")
	if first.Code != http.StatusOK || etag == "" {
		t.Fatalf("status = %d etag = %q", first.Code, etag)
	}
	if first.Header().Get("Cache-Control") != "public, max-age=30" {
		t.Fatalf("cache-control = %q", first.Header().Get("Cache-Control"))
	}

	second := get(t, r, "/events", map[string]string{"If-None-Match": etag})
	if second.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d", second.Code)
	}

	if repo.listCalls != 1 {
		t.Fatalf("repo calls = %d, want 1", repo.listCalls)
	}
	if metrics.hits != 1 || metrics.misses != 1 {
		t.Fatalf("cache metrics hits=%d misses=%d", metrics.hits, metrics.misses)
	}
}

func TestListEvents_StoreError(t *testing.T) {
	repo := &fakeEventsLister{
		listUpcomingFn: func(context.Context, time.Time, *utils.EventCursor, int) ([]event.Event, error) {
			return nil, errors.New("connection refused")
		},
	}
	r := setupEventsRouter(repo, nil)

	if w := get(t, r, "/events", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetEvent(t *testing.T) {
	e := sampleEvents(1)[0]
	e.Description = "Full description"

	repo := &fakeEventsLister{
		getBySlugFn: func(_ context.Context, slug string) (event.Event, error) {
			if slug != e.Slug {
				return event.Event{}, event.ErrNotFound
			}
			return e, nil
		},
		listVariantsFn: func(_ context.Context, id string) ([]event.TicketVariant, error) {
			return []event.TicketVariant{{Name: "Standard", Price: 2500}, {Name: "Supporter", Price: 5000}}, nil
		},
	}
	r := setupEventsRouter(repo, nil)

	w := get(t, r, "/events/"+e.Slug, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var got handlers.PublicEvent
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Description != "Full description" || len(got.TicketVariants) != 2 {
		t.Fatalf("unexpected event %+v", got)
	}
	if len(got.Pricing.Options) != 2 {
		t.Fatalf("pricing should list the variants: %+v", got.Pricing)
	}

	if w := get(t, r, "/events/unknown-01-01", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", w.Code)
	}
}

func TestCalendar(t *testing.T) {
	var gotLimit int
	repo := &fakeEventsLister{
		listUpcomingFn: func(_ context.Context, _ time.Time, _ *utils.EventCursor, limit int) ([]event.Event, error) {
			gotLimit = limit
			return sampleEvents(2), nil
		},
	}
	r := setupEventsRouter(repo, nil)

	w := get(t, r, "/calendar.ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	if gotLimit != 200 {
		t.Fatalf("calendar limit = %d", gotLimit)
	}
}

func TestReadyz(t *testing.T) {
	h := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"events": func(context.Context) error { return nil },
		"drafts": func(context.Context) error { return errors.New("redis down") },
	}, nil)

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if w := get(t, r, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}

	w := get(t, r, "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d", w.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "not_ready" || body.Checks["events"] != "ok" || body.Checks["drafts"] != "redis down" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestReadyz_ShuttingDown(t *testing.T) {
	down := false
	h := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"events": func(context.Context) error { return nil },
	}, func() bool { return down })

	r := gin.New()
	r.GET("/readyz", h.Readyz)

	if w := get(t, r, "/readyz", nil); w.Code != http.StatusOK {
		t.Fatalf("readyz = %d", w.Code)
	}

	down = true
	if w := get(t, r, "/readyz", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while draining = %d", w.Code)
	}
}
