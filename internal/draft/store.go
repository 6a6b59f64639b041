// Package draft auto-saves in-progress event forms so they survive reloads
// and navigation.
package draft

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Backend is a string-keyed get/set/remove store.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

const keyPrefix = "event-draft:"

// CreateKey is the single create-draft slot for an operator.
func CreateKey(email string) string {
	return keyPrefix + email + ":create"
}

// EditKey is the per-event edit-draft slot for an operator.
func EditKey(email, slug string) string {
	return keyPrefix + email + ":edit:" + slug
}

type Store struct {
	backend Backend
	log     *slog.Logger
	now     func() time.Time
}

func NewStore(backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{backend: backend, log: log, now: time.Now}
}

// Save overwrites whatever is stored at key.
func (s *Store) Save(ctx context.Context, key string, snap Snapshot) error {
	snap.SavedAt = s.now().UTC()
	snap.Capacity = snap.Capacity.Normalize()

	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, key, string(b))
}

// Load returns nil when the draft is missing, unreadable or unparseable.
// It never fails: a broken draft only means the form starts from defaults.
func (s *Store) Load(ctx context.Context, key string) *Snapshot {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn("draft_load_failed", "key", key, "err", err)
		return nil
	}
	if !ok {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Warn("draft_parse_failed", "key", key, "err", err)
		return nil
	}
	return &snap
}

func (s *Store) Clear(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, key)
}

// Ping reports backend health when the backend supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
