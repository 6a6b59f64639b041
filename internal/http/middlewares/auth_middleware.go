package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victorjakob/mamareykjavik/internal/actorctx"
	"github.com/victorjakob/mamareykjavik/internal/auth"
	"github.com/victorjakob/mamareykjavik/internal/domain/user"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		actor := claims.Actor()
		c.Set(CtxActor, actor)
		c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actor))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

// ActorFromContext returns the operator stored by RequireAuth.
func ActorFromContext(c *gin.Context) (user.Actor, bool) {
	v, ok := c.Get(CtxActor)
	if !ok {
		return user.Actor{}, false
	}
	a, ok := v.(user.Actor)
	return a, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	a, ok := ActorFromContext(c)
	if !ok {
		return "", false
	}
	return a.Role, true
}
