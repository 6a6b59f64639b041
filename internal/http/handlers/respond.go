package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/eventform"
	"github.com/victorjakob/mamareykjavik/internal/http/middlewares"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string, details interface{}) {
	RespondError(ctx, http.StatusConflict, code, message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, "unauthorized", message, nil)
}

// RespondFormError maps an event form failure onto the error envelope.
// Fatal session errors carry the path the operator is sent back to.
func RespondFormError(ctx *gin.Context, err error) {
	var fe *eventform.Error
	if !errors.As(err, &fe) {
		RespondInternal(ctx, "Could not process the event form")
		return
	}

	redirect := gin.H{"redirect": eventform.ManageEventsPath}

	switch fe.Kind {
	case eventform.KindValidation:
		RespondError(ctx, http.StatusUnprocessableEntity, "validation_failed", fe.Message, fieldDetails(fe))
	case eventform.KindPricing:
		RespondError(ctx, http.StatusUnprocessableEntity, "invalid_pricing", fe.Message, fieldDetails(fe))
	case eventform.KindUpload:
		RespondError(ctx, http.StatusUnprocessableEntity, "upload_failed", fe.Message, fieldDetails(fe))
	case eventform.KindAuthorization:
		RespondError(ctx, http.StatusForbidden, "forbidden", fe.Message, redirect)
	case eventform.KindNotFound:
		RespondError(ctx, http.StatusNotFound, "not_found", fe.Message, redirect)
	case eventform.KindUnavailable:
		RespondError(ctx, http.StatusServiceUnavailable, "unavailable", fe.Message, redirect)
	case eventform.KindInFlight:
		RespondConflict(ctx, "submission_in_progress", fe.Message, nil)
	case eventform.KindSubmission:
		if errors.Is(fe, event.ErrSlugTaken) {
			RespondConflict(ctx, "slug_taken", fe.Message, gin.H{
				"fields": []eventform.FieldError{{Field: fe.Field, Rule: "unique", Message: fe.Message}},
			})
			return
		}
		RespondError(ctx, http.StatusBadGateway, "submission_failed", fe.Message, gin.H{"detail": fe.Detail})
	default:
		RespondInternal(ctx, fe.Message)
	}
}

func fieldDetails(fe *eventform.Error) gin.H {
	fields := fe.Fields
	if len(fields) == 0 && fe.Field != "" {
		fields = []eventform.FieldError{{Field: fe.Field, Message: fe.Message}}
	}
	return gin.H{"fields": fields}
}
