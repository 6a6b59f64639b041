package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// cachedBody is a rendered response kept in the listing cache so that hits
// skip both the store and serialization.
type cachedBody struct {
	ETag        string
	ContentType string
	Body        []byte
}

func renderJSON(payload interface{}) (cachedBody, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return cachedBody{}, err
	}
	return cachedBody{ETag: etagOf(b), ContentType: "application/json; charset=utf-8", Body: b}, nil
}

func renderBytes(contentType string, b []byte) cachedBody {
	return cachedBody{ETag: etagOf(b), ContentType: contentType, Body: b}
}

// respondCached writes body, or 304 when the client already holds it.
func respondCached(ctx *gin.Context, body cachedBody, maxAge string) {
	ctx.Header("ETag", body.ETag)
	if maxAge != "" {
		ctx.Header("Cache-Control", "public, max-age="+maxAge)
	}

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), body.ETag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(http.StatusOK, body.ContentType, body.Body)
}

func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	body, err := renderJSON(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", body.ETag)

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), body.ETag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, body.ContentType, body.Body)
}

func etagOf(b []byte) string {
	sum := sha256.Sum256(b)

	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	if strings.TrimSpace(headerValue) == "" || strings.TrimSpace(currentETag) == "" {
		return false
	}

	if strings.TrimSpace(headerValue) == "*" {
		return true
	}

	current := normalizeETag(currentETag)

	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}

	return false
}

func normalizeETag(raw string) string {
	v := strings.TrimSpace(raw)

	// RFC allows weak validators like W/"abc".
	if strings.HasPrefix(v, "W/") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "W/"))
	}

	return v
}
