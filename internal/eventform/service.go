// Package eventform runs create, duplicate and edit sessions of the event
// admin form: hydration from draft, record and defaults; draft auto-save;
// validation; image upload; and the final create or update call.
package eventform

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/domain/user"
	"github.com/victorjakob/mamareykjavik/internal/draft"
	"github.com/victorjakob/mamareykjavik/internal/media"
)

type EventReader interface {
	GetBySlug(ctx context.Context, slug string) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	ListVariants(ctx context.Context, eventID string) ([]event.TicketVariant, error)
}

type EventWriter interface {
	Create(ctx context.Context, p event.Payload) (event.Event, error)
	Update(ctx context.Context, id string, p event.Payload) error
}

type ImageUploader interface {
	Upload(ctx context.Context, f media.File) (string, error)
}

type DraftStore interface {
	Save(ctx context.Context, key string, snap draft.Snapshot) error
	Load(ctx context.Context, key string) *draft.Snapshot
	Clear(ctx context.Context, key string) error
}

// ListingRefresher invalidates public listing caches after a write.
type ListingRefresher interface {
	Refresh(ctx context.Context, reason string) error
}

type SubmissionObserver interface {
	ObserveSubmission(mode, result string)
}

type Deps struct {
	Reader   EventReader
	Writer   EventWriter
	Uploader ImageUploader
	Drafts   DraftStore

	// optional
	Listing ListingRefresher
	Metrics SubmissionObserver
	Log     *slog.Logger
	Now     func() time.Time
}

type Service struct {
	reader   EventReader
	writer   EventWriter
	uploader ImageUploader
	drafts   DraftStore
	listing  ListingRefresher
	metrics  SubmissionObserver
	log      *slog.Logger
	now      func() time.Time
	validate *validator.Validate

	// draft keys with a submission in progress
	inflight sync.Map
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		reader:   d.Reader,
		writer:   d.Writer,
		uploader: d.Uploader,
		drafts:   d.Drafts,
		listing:  d.Listing,
		metrics:  d.Metrics,
		log:      d.Log,
		now:      d.Now,
		validate: newValidator(),
	}
}

// NewSession returns an uninitialized session; call Hydrate before use.
func (s *Service) NewSession(actor user.Actor, mode Mode) *Session {
	return &Session{svc: s, actor: actor, mode: mode, state: StateUninitialized}
}

// Open creates and hydrates a session. On a fatal error the session is
// returned in StateAborted together with the error.
func (s *Service) Open(ctx context.Context, actor user.Actor, mode Mode) (*Session, error) {
	sess := s.NewSession(actor, mode)
	if err := sess.Hydrate(ctx); err != nil {
		return sess, err
	}
	return sess, nil
}

func (s *Service) acquire(key string) bool {
	_, busy := s.inflight.LoadOrStore(key, struct{}{})
	return !busy
}

func (s *Service) release(key string) {
	s.inflight.Delete(key)
}

func (s *Service) observe(mode Mode, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	s.metrics.ObserveSubmission(string(mode.Kind), result)
}
