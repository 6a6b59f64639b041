package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victorjakob/mamareykjavik/internal/domain/user"
	"github.com/victorjakob/mamareykjavik/internal/eventform"
	"github.com/victorjakob/mamareykjavik/internal/http/middlewares"
	"github.com/victorjakob/mamareykjavik/internal/media"
)

type FormService interface {
	NewSession(actor user.Actor, mode eventform.Mode) *eventform.Session
	Open(ctx context.Context, actor user.Actor, mode eventform.Mode) (*eventform.Session, error)
}

// EventFormHandler serves the admin create, duplicate and edit screens and
// their draft auto-save.
type EventFormHandler struct {
	svc            FormService
	maxUploadBytes int64
	log            *slog.Logger
}

func NewEventFormHandler(svc FormService, maxUploadBytes int64, log *slog.Logger) *EventFormHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventFormHandler{svc: svc, maxUploadBytes: maxUploadBytes, log: log}
}

type variantPatch struct {
	Field string `json:"field" binding:"required,oneof=name price capacity meta"`
	Value any    `json:"value"`
}

// modeFrom picks the session mode: a :slug route edits, ?duplicate=<id>
// copies an existing event, anything else is a blank create.
func modeFrom(ctx *gin.Context) eventform.Mode {
	if slug := ctx.Param("slug"); slug != "" {
		return eventform.Edit(slug)
	}
	if id := strings.TrimSpace(ctx.Query("duplicate")); id != "" {
		return eventform.Duplicate(id)
	}
	return eventform.Create()
}

func (h *EventFormHandler) open(ctx *gin.Context) (*eventform.Session, bool) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return nil, false
	}

	sess, err := h.svc.Open(ctx.Request.Context(), actor, modeFrom(ctx))
	if err != nil {
		if sess != nil {
			sess.Close()
		}
		RespondFormError(ctx, err)
		return nil, false
	}
	return sess, true
}

// Hydrate returns the form as the operator should see it: draft first, then
// the stored event, then defaults.
func (h *EventFormHandler) Hydrate(ctx *gin.Context) {
	sess, ok := h.open(ctx)
	if !ok {
		return
	}
	defer sess.Close()

	ctx.JSON(http.StatusOK, sess.Form())
}

// Submit creates (POST) or updates (PUT) the event.
func (h *EventFormHandler) Submit(ctx *gin.Context) {
	values, img, ok := h.readSubmission(ctx)
	if !ok {
		return
	}

	sess, ok := h.open(ctx)
	if !ok {
		return
	}
	defer sess.Close()

	res, err := sess.Submit(ctx.Request.Context(), values, img)
	if err != nil {
		RespondFormError(ctx, err)
		return
	}

	status := http.StatusOK
	if ctx.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}
	ctx.JSON(status, res)
}

// SaveDraft stores the posted values as the operator's draft.
func (h *EventFormHandler) SaveDraft(ctx *gin.Context) {
	var values eventform.FormValues
	if !DecodeJSON(ctx, &values) {
		return
	}

	sess, ok := h.open(ctx)
	if !ok {
		return
	}
	defer sess.Close()

	if err := sess.SaveDraft(ctx.Request.Context(), values); err != nil {
		h.respondDraftError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sess.Form())
}

// DiscardDraft drops the draft. It needs no hydration: the slot belongs to
// the caller whatever state the event is in.
func (h *EventFormHandler) DiscardDraft(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	sess := h.svc.NewSession(actor, modeFrom(ctx))
	if err := sess.DiscardDraft(ctx.Request.Context()); err != nil {
		h.respondDraftError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *EventFormHandler) AddVariant(ctx *gin.Context) {
	h.editVariants(ctx, func(s *eventform.Session) error {
		return s.AddVariant(ctx.Request.Context())
	})
}

func (h *EventFormHandler) UpdateVariant(ctx *gin.Context) {
	index, ok := variantIndex(ctx)
	if !ok {
		return
	}

	var patch variantPatch
	if !BindJSON(ctx, &patch) {
		return
	}

	h.editVariants(ctx, func(s *eventform.Session) error {
		return s.UpdateVariant(ctx.Request.Context(), index, patch.Field, patch.Value)
	})
}

func (h *EventFormHandler) RemoveVariant(ctx *gin.Context) {
	index, ok := variantIndex(ctx)
	if !ok {
		return
	}

	h.editVariants(ctx, func(s *eventform.Session) error {
		return s.RemoveVariant(ctx.Request.Context(), index)
	})
}

func (h *EventFormHandler) editVariants(ctx *gin.Context, fn func(*eventform.Session) error) {
	sess, ok := h.open(ctx)
	if !ok {
		return
	}
	defer sess.Close()

	if err := fn(sess); err != nil {
		h.respondDraftError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sess.Form())
}

func (h *EventFormHandler) respondDraftError(ctx *gin.Context, err error) {
	if eventform.KindOf(err) != "" {
		RespondFormError(ctx, err)
		return
	}
	h.log.ErrorContext(ctx.Request.Context(), "draft_save_failed", "err", err)
	RespondError(ctx, http.StatusServiceUnavailable, "draft_unavailable", "Could not save the draft", nil)
}

func variantIndex(ctx *gin.Context) (int, bool) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || index < 0 {
		RespondBadRequest(ctx, "Invalid variant index", gin.H{"index": ctx.Param("index")})
		return 0, false
	}
	return index, true
}

// readSubmission accepts a JSON body, or multipart with a "payload" JSON
// part and an optional "image" file part.
func (h *EventFormHandler) readSubmission(ctx *gin.Context) (eventform.FormValues, *media.File, bool) {
	var values eventform.FormValues

	if !strings.HasPrefix(strings.ToLower(ctx.GetHeader("Content-Type")), "multipart/form-data") {
		return values, nil, DecodeJSON(ctx, &values)
	}

	raw, ok := ctx.GetPostForm("payload")
	if !ok {
		if err := multipartError(ctx); err != nil {
			respondDecodeError(ctx, err, &values)
			return values, nil, false
		}
		RespondBadRequest(ctx, "Missing payload part", gin.H{"fields": []FieldError{{Field: "payload", Rule: "required", Message: "is required"}}})
		return values, nil, false
	}
	if err := decodeStrict(strings.NewReader(raw), &values); err != nil {
		respondDecodeError(ctx, err, &values)
		return values, nil, false
	}

	fh, err := ctx.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return values, nil, true
	}
	if err != nil {
		respondDecodeError(ctx, err, &values)
		return values, nil, false
	}

	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "image_too_large",
			fmt.Sprintf("Image exceeds %d bytes", h.maxUploadBytes),
			gin.H{"fields": []FieldError{{Field: "image", Rule: "max", Param: strconv.FormatInt(h.maxUploadBytes, 10)}}})
		return values, nil, false
	}

	f, err := fh.Open()
	if err != nil {
		RespondBadRequest(ctx, "Could not read image", nil)
		return values, nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		RespondBadRequest(ctx, "Could not read image", nil)
		return values, nil, false
	}

	return values, &media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

// multipartError surfaces a parse failure hidden behind GetPostForm.
func multipartError(ctx *gin.Context) error {
	if ctx.Request.MultipartForm != nil {
		return nil
	}
	return ctx.Request.ParseMultipartForm(32 << 20)
}
