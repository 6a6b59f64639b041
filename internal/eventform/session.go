package eventform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/domain/user"
	"github.com/victorjakob/mamareykjavik/internal/draft"
	"github.com/victorjakob/mamareykjavik/internal/listing"
	"github.com/victorjakob/mamareykjavik/internal/media"
	"github.com/victorjakob/mamareykjavik/internal/pricing"
	"github.com/victorjakob/mamareykjavik/internal/variants"
)

// Session is one operator's pass over one event form.
type Session struct {
	svc   *Service
	actor user.Actor
	mode  Mode

	mu        sync.Mutex
	state     State
	source    *event.Event
	values    FormValues
	editor    *variants.Editor
	fromDraft bool
	abortErr  error
}

// Form is the hydrated view of a session.
type Form struct {
	Mode      Mode            `json:"mode"`
	State     State           `json:"state"`
	EventID   string          `json:"eventId,omitempty"`
	Values    FormValues      `json:"values"`
	FromDraft bool            `json:"fromDraft"`
	Preview   pricing.Display `json:"preview"`
}

// Submitted describes a successful create or update.
type Submitted struct {
	EventID      string `json:"eventId"`
	Slug         string `json:"slug"`
	RedirectPath string `json:"redirect"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mode() Mode { return s.mode }

// DraftKey is the draft slot this session reads and writes.
func (s *Session) DraftKey() string {
	if s.mode.Kind == ModeEdit {
		return draft.EditKey(s.actor.Email, s.mode.Slug)
	}
	return draft.CreateKey(s.actor.Email)
}

// Hydrate loads the source record (edit and duplicate), checks access and
// fills the form from the draft, else the record, else defaults.
func (s *Session) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUninitialized:
	case StateAborted:
		return s.abortErr
	default:
		return nil
	}
	s.state = StateLoading

	if !s.actor.CanManageEvents() {
		return s.abortLocked(forbidden())
	}

	var values FormValues
	switch s.mode.Kind {
	case ModeCreate:
		values = defaultValues(s.actor)

	case ModeDuplicate:
		if s.mode.SourceID == "" {
			return s.abortLocked(loadError(event.ErrNotFound))
		}
		src, err := s.svc.reader.GetByID(ctx, s.mode.SourceID)
		if err != nil {
			return s.abortLocked(loadError(err))
		}
		values = duplicateValues(src)

	case ModeEdit:
		if s.mode.Slug == "" {
			return s.abortLocked(loadError(event.ErrNotFound))
		}
		src, err := s.svc.reader.GetBySlug(ctx, s.mode.Slug)
		if err != nil {
			return s.abortLocked(loadError(err))
		}
		if !s.actor.IsAdmin() && !src.HostedBy(s.actor.Email) {
			return s.abortLocked(forbidden())
		}
		vs, err := s.svc.reader.ListVariants(ctx, src.ID)
		if err != nil {
			return s.abortLocked(loadError(err))
		}
		src.TicketVariants = vs
		s.source = &src
		values = valuesFromEvent(src)

	default:
		return s.abortLocked(&Error{Kind: KindNotFound, Message: fmt.Sprintf("unknown form mode %q", s.mode.Kind)})
	}

	// a saved draft is newer operator intent than the record and replaces it whole
	if snap := s.svc.drafts.Load(ctx, s.DraftKey()); snap != nil && s.draftApplies(snap) {
		values = valuesFromSnapshot(*snap)
		s.fromDraft = true
	}

	if values.Host == "" {
		values.Host = s.actor.Email
	}

	s.values = values
	s.editor = variants.NewEditor(values.TicketVariants)
	s.state = StateHydrated
	return nil
}

func (s *Session) draftApplies(snap *draft.Snapshot) bool {
	switch s.mode.Kind {
	case ModeCreate:
		return snap.SourceID == ""
	case ModeDuplicate:
		return snap.SourceID == s.mode.SourceID
	default:
		return true
	}
}

func (s *Session) abortLocked(err *Error) error {
	s.state = StateAborted
	s.abortErr = err
	return err
}

func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.values
	if s.editor != nil {
		values.TicketVariants = s.editor.List()
	}

	f := Form{
		Mode:      s.mode,
		State:     s.state,
		Values:    values,
		FromDraft: s.fromDraft,
		Preview:   pricing.For(previewInput(values), s.svc.now()),
	}
	if s.source != nil {
		f.EventID = s.source.ID
	}
	return f
}

// previewInput prices the form as entered, ignoring inputs that do not parse.
func previewInput(v FormValues) pricing.Input {
	in := pricing.Input{Price: v.Price}
	if v.ShowEarlyBird && v.EarlyBirdPrice != nil {
		if d, err := event.ParseFormDate(v.EarlyBirdDate); err == nil {
			in.EarlyBirdPrice = v.EarlyBirdPrice
			in.EarlyBirdDate = &d
		}
	}
	if v.ShowSlidingScale {
		in.HasSlidingScale = true
		in.SlidingScaleMin = v.SlidingScaleMin
		in.SlidingScaleMax = v.SlidingScaleMax
	}
	if v.ShowVariants {
		in.TicketVariants = v.TicketVariants
	}
	return in
}

func (s *Session) ready() error {
	switch s.state {
	case StateHydrated:
		return nil
	case StateAborted:
		return s.abortErr
	case StateSubmitting:
		return &Error{Kind: KindInFlight, Message: "A submission is already in progress."}
	default:
		return fmt.Errorf("form session is %s", s.state)
	}
}

// SaveDraft replaces the session's values and persists them.
func (s *Session) SaveDraft(ctx context.Context, values FormValues) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.values = values
	s.editor = variants.NewEditor(values.TicketVariants)
	return s.persistLocked(ctx)
}

// DiscardDraft drops the stored draft without touching the session values.
func (s *Session) DiscardDraft(ctx context.Context) error {
	return s.svc.drafts.Clear(ctx, s.DraftKey())
}

func (s *Session) AddVariant(ctx context.Context) error {
	return s.editVariants(ctx, func(e *variants.Editor) error {
		e.Add()
		return nil
	})
}

func (s *Session) RemoveVariant(ctx context.Context, index int) error {
	return s.editVariants(ctx, func(e *variants.Editor) error {
		return e.Remove(index)
	})
}

func (s *Session) UpdateVariant(ctx context.Context, index int, field string, value any) error {
	return s.editVariants(ctx, func(e *variants.Editor) error {
		return e.Update(index, field, value)
	})
}

func (s *Session) editVariants(ctx context.Context, fn func(*variants.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if err := fn(s.editor); err != nil {
		return validationError([]FieldError{{Field: "ticket_variants", Rule: "variant", Message: err.Error()}})
	}
	return s.persistLocked(ctx)
}

func (s *Session) persistLocked(ctx context.Context) error {
	snap := s.values.snapshot()
	snap.TicketVariants = s.editor.List()
	if s.mode.Kind == ModeDuplicate {
		snap.SourceID = s.mode.SourceID
	}
	return s.svc.drafts.Save(ctx, s.DraftKey(), snap)
}

// Close ends the session. A submission still running completes, but its
// outcome no longer changes session state.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

// Submit validates values, uploads img when given, and creates or updates
// the event. On failure the session returns to StateHydrated with values
// kept and saved as the draft.
func (s *Session) Submit(ctx context.Context, values FormValues, img *media.File) (Submitted, error) {
	s.mu.Lock()
	if s.state == StateSucceeded {
		s.mu.Unlock()
		return Submitted{}, &Error{Kind: KindInFlight, Message: "This event was already saved."}
	}
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Submitted{}, err
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	key := s.DraftKey()
	if !s.svc.acquire(key) {
		s.setState(StateSubmitting, StateHydrated)
		return Submitted{}, &Error{Kind: KindInFlight, Message: "A submission is already in progress."}
	}
	defer s.svc.release(key)

	res, err := s.submit(ctx, values, img)
	s.svc.observe(s.mode, err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return res, err
	}

	if err != nil {
		s.state = StateHydrated
		s.values = values
		s.editor = variants.NewEditor(values.TicketVariants)
		if perr := s.persistLocked(context.WithoutCancel(ctx)); perr != nil {
			s.svc.log.Warn("draft_save_failed", "key", key, "err", perr)
		}
		return Submitted{}, err
	}

	s.state = StateSucceeded
	return res, nil
}

func (s *Session) setState(from, to State) {
	s.mu.Lock()
	if s.state == from {
		s.state = to
	}
	s.mu.Unlock()
}

func (s *Session) submit(ctx context.Context, values FormValues, img *media.File) (Submitted, error) {
	log := s.svc.log.With("mode", s.mode.Kind, "actor", s.actor.Email)

	p, fields := s.svc.check(values)
	if len(fields) > 0 {
		return Submitted{}, validationError(fields)
	}

	if values.ShowSlidingScale {
		if err := pricing.ValidateSlidingScale(values.Price, *values.SlidingScaleMin, *values.SlidingScaleMax); err != nil {
			var ve *pricing.ValidationError
			if errors.As(err, &ve) {
				return Submitted{}, &Error{
					Kind:    KindPricing,
					Field:   ve.Field,
					Message: ve.Error(),
					Fields:  []FieldError{{Field: ve.Field, Rule: string(ve.Kind), Message: ve.Error()}},
					Err:     err,
				}
			}
			return Submitted{}, err
		}
	}

	if img != nil {
		url, err := s.upload(ctx, *img)
		if err != nil {
			log.Warn("image_upload_failed", "file", img.Name, "err", err)
			return Submitted{}, err
		}
		values.Image = url
	}

	payload := buildPayload(values, p, s.actor)

	var res Submitted
	if s.mode.creates() {
		created, err := s.svc.writer.Create(ctx, payload)
		if err != nil {
			log.Error("event_create_failed", "slug", payload.Slug, "err", err)
			return Submitted{}, submissionError(err)
		}
		res = Submitted{EventID: created.ID, Slug: created.Slug}
	} else {
		if err := s.svc.writer.Update(ctx, s.source.ID, payload); err != nil {
			log.Error("event_update_failed", "id", s.source.ID, "slug", payload.Slug, "err", err)
			return Submitted{}, submissionError(err)
		}
		res = Submitted{EventID: s.source.ID, Slug: payload.Slug}
	}
	if res.Slug == "" {
		res.Slug = payload.Slug
	}
	res.RedirectPath = "/events/" + res.Slug

	// the write is done; what follows must not turn success into failure
	after := context.WithoutCancel(ctx)
	if err := s.svc.drafts.Clear(after, s.DraftKey()); err != nil {
		log.Warn("draft_clear_failed", "key", s.DraftKey(), "err", err)
	}
	if s.svc.listing != nil {
		reason := listing.ReasonUpdated
		if s.mode.creates() {
			reason = listing.ReasonCreated
		}
		if err := s.svc.listing.Refresh(after, reason); err != nil {
			log.Warn("listing_refresh_failed", "reason", reason, "err", err)
		}
	}

	log.Info("event_saved", "id", res.EventID, "slug", res.Slug)
	return res, nil
}

func (s *Session) upload(ctx context.Context, img media.File) (string, error) {
	if s.svc.uploader == nil {
		return "", &Error{Kind: KindUpload, Field: "image", Message: "Image uploads are not configured."}
	}
	url, err := s.svc.uploader.Upload(ctx, img)
	if err != nil {
		return "", &Error{
			Kind:    KindUpload,
			Field:   "image",
			Message: "Image upload failed: " + err.Error(),
			Fields:  []FieldError{{Field: "image", Rule: "upload", Message: err.Error()}},
			Err:     err,
		}
	}
	return url, nil
}
