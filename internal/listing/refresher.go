// Package listing refreshes the public event listing after an event is created.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	RoutingKeyRefresh = "events.listing.refresh"

	ReasonCreated = "event_created"
	ReasonUpdated = "event_updated"

	// cache key prefixes owned by the public listing routes
	CachePrefixEvents   = "events:"
	CachePrefixCalendar = "calendar:"
)

type Invalidator interface {
	DeletePrefix(prefix string) int
}

// Publisher sends a message to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

type refreshMessage struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Refresher always drops the local listing cache and, when a broker is
// configured, tells other instances to do the same.
type Refresher struct {
	cache     Invalidator
	publisher Publisher
	log       *slog.Logger
	wait      func(attempt int) time.Duration
}

func NewRefresher(cache Invalidator, publisher Publisher, log *slog.Logger) *Refresher {
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{cache: cache, publisher: publisher, log: log, wait: backoff}
}

// Refresh drops every cached listing, detail page and calendar body, then
// broadcasts reason.
func (r *Refresher) Refresh(ctx context.Context, reason string) error {
	var dropped int
	if r.cache != nil {
		dropped = r.cache.DeletePrefix(CachePrefixEvents) + r.cache.DeletePrefix(CachePrefixCalendar)
	}
	r.log.Debug("listing_cache_invalidated", "entries", dropped, "reason", reason)

	if r.publisher == nil {
		return nil
	}

	body, err := json.Marshal(refreshMessage{Reason: reason, RequestedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	// one message id across retries so consumers can dedupe
	id := uuid.NewString()

	for attempt := 0; attempt < publishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.wait(attempt - 1)):
			case <-ctx.Done():
				return errors.Join(errors.New("publish listing refresh"), ctx.Err())
			}
		}
		if err = r.publisher.Publish(ctx, RoutingKeyRefresh, id, body); err == nil {
			return nil
		}
		r.log.Warn("listing_refresh_publish_failed", "attempt", attempt+1, "err", err)
	}
	return errors.Join(errors.New("publish listing refresh"), err)
}
