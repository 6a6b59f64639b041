package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victorjakob/mamareykjavik/internal/cache"
	"github.com/victorjakob/mamareykjavik/internal/calendar"
	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/pricing"
	"github.com/victorjakob/mamareykjavik/internal/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	calendarLimit    = 200
)

type EventsLister interface {
	ListUpcoming(ctx context.Context, from time.Time, after *utils.EventCursor, limit int) ([]event.Event, error)
	GetBySlug(ctx context.Context, slug string) (event.Event, error)
	ListVariants(ctx context.Context, eventID string) ([]event.TicketVariant, error)
}

// CacheObserver counts listing cache hits; satisfied by observability.Prom.
type CacheObserver interface {
	ObserveCache(route string, hit bool)
}

// PublicEvent is the listing shape. Host contacts and the policy flag stay
// admin-only.
type PublicEvent struct {
	ID               string                `json:"id"`
	Slug             string                `json:"slug"`
	Name             string                `json:"name"`
	ShortDescription string                `json:"shortdescription"`
	Description      string                `json:"description,omitempty"`
	Date             time.Time             `json:"date"`
	Duration         *float64              `json:"duration,omitempty"`
	Location         string                `json:"location"`
	Payment          event.Payment         `json:"payment"`
	Capacity         *int                  `json:"capacity,omitempty"`
	Image            string                `json:"image"`
	FacebookLink     *string               `json:"facebook_link,omitempty"`
	TicketVariants   []event.TicketVariant `json:"ticket_variants,omitempty"`
	Pricing          pricing.Display       `json:"pricing"`
}

func publicEvent(e event.Event, now time.Time, withDescription bool) PublicEvent {
	pe := PublicEvent{
		ID:               e.ID,
		Slug:             e.Slug,
		Name:             e.Name,
		ShortDescription: e.ShortDescription,
		Date:             e.Date,
		Duration:         e.Duration,
		Location:         e.Location,
		Payment:          e.Payment,
		Capacity:         e.Capacity,
		Image:            e.Image,
		FacebookLink:     e.FacebookLink,
		TicketVariants:   e.TicketVariants,
		Pricing:          pricing.For(pricing.InputFromEvent(e), now),
	}
	if withDescription {
		pe.Description = e.Description
	}
	return pe
}

type EventsHandler struct {
	repo    EventsLister
	cache   *cache.Cache
	metrics CacheObserver
	feed    calendar.Feed
	log     *slog.Logger
	now     func() time.Time
}

type EventsHandlerConfig struct {
	Cache   *cache.Cache
	Metrics CacheObserver
	Feed    calendar.Feed
	Log     *slog.Logger
	Now     func() time.Time
}

func NewEventsHandler(repo EventsLister, cfg EventsHandlerConfig) *EventsHandler {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &EventsHandler{
		repo:    repo,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		feed:    cfg.Feed,
		log:     cfg.Log,
		now:     cfg.Now,
	}
}

func (h *EventsHandler) cached(route, key string) (cachedBody, bool) {
	if h.cache == nil {
		return cachedBody{}, false
	}
	v, ok := h.cache.Get(key)
	body, isBody := v.(cachedBody)
	hit := ok && isBody
	if h.metrics != nil {
		h.metrics.ObserveCache(route, hit)
	}
	return body, hit
}

func (h *EventsHandler) store(key string, body cachedBody) {
	if h.cache != nil {
		h.cache.Set(key, body)
	}
}

// ListEvents pages upcoming events in date order.
func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	limit := defaultListLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": "must be between 1 and " + strconv.Itoa(maxListLimit)})
			return
		}
		limit = n
	}

	rawCursor := ctx.Query("cursor")
	var after *utils.EventCursor
	if rawCursor != "" {
		c, err := utils.DecodeEventCursor(rawCursor)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}
		after = &c
	}

	key := utils.BuildEventsListCacheKey(limit, rawCursor)
	if body, ok := h.cached("events.list", key); ok {
		respondCached(ctx, body, "30")
		return
	}

	now := h.now()
	events, err := h.repo.ListUpcoming(ctx.Request.Context(), now, after, limit+1)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "events_list_failed", "err", err)
		RespondInternal(ctx, "Could not list events")
		return
	}

	var nextCursor string
	if len(events) > limit {
		events = events[:limit]
		last := events[len(events)-1]
		nextCursor, err = utils.EncodeEventCursor(last.Date, last.ID)
		if err != nil {
			RespondInternal(ctx, "Could not list events")
			return
		}
	}

	items := make([]PublicEvent, 0, len(events))
	for _, e := range events {
		items = append(items, publicEvent(e, now, false))
	}

	body, err := renderJSON(gin.H{
		"items":      items,
		"count":      len(items),
		"nextCursor": nextCursor,
	})
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	h.store(key, body)
	respondCached(ctx, body, "30")
}

// GetEvent returns one event with its ticket variants.
func (h *EventsHandler) GetEvent(ctx *gin.Context) {
	slug := ctx.Param("slug")
	key := utils.BuildEventCacheKey(slug)

	if body, ok := h.cached("events.get", key); ok {
		respondCached(ctx, body, "30")
		return
	}

	reqCtx := ctx.Request.Context()

	e, err := h.repo.GetBySlug(reqCtx, slug)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		h.log.ErrorContext(reqCtx, "event_get_failed", "slug", slug, "err", err)
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	variants, err := h.repo.ListVariants(reqCtx, e.ID)
	if err != nil {
		h.log.ErrorContext(reqCtx, "event_variants_failed", "id", e.ID, "err", err)
		RespondInternal(ctx, "Could not fetch event")
		return
	}
	e.TicketVariants = variants

	body, err := renderJSON(publicEvent(e, h.now(), true))
	if err != nil {
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	h.store(key, body)
	respondCached(ctx, body, "30")
}

// Calendar serves upcoming events as text/calendar.
func (h *EventsHandler) Calendar(ctx *gin.Context) {
	if body, ok := h.cached("calendar", utils.CalendarCacheKey); ok {
		respondCached(ctx, body, "300")
		return
	}

	events, err := h.repo.ListUpcoming(ctx.Request.Context(), h.now(), nil, calendarLimit)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "calendar_list_failed", "err", err)
		RespondInternal(ctx, "Could not build calendar")
		return
	}

	body := renderBytes("text/calendar; charset=utf-8", []byte(h.feed.Render(events)))
	h.store(utils.CalendarCacheKey, body)
	respondCached(ctx, body, "300")
}
