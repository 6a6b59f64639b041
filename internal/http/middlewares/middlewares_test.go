package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victorjakob/mamareykjavik/internal/actorctx"
	"github.com/victorjakob/mamareykjavik/internal/auth"
	"github.com/victorjakob/mamareykjavik/internal/domain/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	return f.verifyFn(token)
}

func hostVerifier() fakeVerifier {
	return fakeVerifier{verifyFn: func(token string) (*auth.Claims, error) {
		switch token {
		case "host-token":
			return &auth.Claims{UserID: "u1", Email: "host@mama.is", Role: "host"}, nil
		case "guest-token":
			return &auth.Claims{UserID: "u2", Email: "guest@mama.is", Role: "authenticated"}, nil
		}
		return nil, errors.New("bad token")
	}}
}

func TestRequireAuthAndRole(t *testing.T) {
	m := NewAuthMiddleware(hostVerifier())

	r := gin.New()
	r.GET("/admin", m.RequireAuth(), m.RequireRole(user.RoleAdmin, user.RoleHost), func(c *gin.Context) {
		a, ok := actorctx.From(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, a.Email)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"role not allowed", "Bearer guest-token", http.StatusForbidden},
		{"host allowed", "Bearer host-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != "host@mama.is" {
				t.Fatalf("actor not on request context: %q", w.Body.String())
			}
		})
	}
}

func TestRequireJSONOrMultipart(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSONOrMultipart())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name       string
		ct         string
		body       string
		wantStatus int
	}{
		{"json", "application/json; charset=utf-8", "{}", http.StatusNoContent},
		{"multipart", "multipart/form-data; boundary=x", "--x--", http.StatusNoContent},
		{"empty body", "", "", http.StatusNoContent},
		{"text", "text/plain", "hi", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/x", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	hit()
	hit()
	w := hit()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third hit status = %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", w.Header().Get("Retry-After"))
	}

	now = now.Add(61 * time.Second)
	if w := hit(); w.Code != http.StatusNoContent {
		t.Fatalf("after window status = %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		id, _ := actorctx.RequestIDFrom(c.Request.Context())
		c.String(http.StatusOK, id)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") != "abc" || w.Body.String() != "abc" {
		t.Fatalf("request id not propagated: header=%q body=%q", w.Header().Get("X-Request-Id"), w.Body.String())
	}
}
