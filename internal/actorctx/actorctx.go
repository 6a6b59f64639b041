// Package actorctx carries the authenticated operator and the request id on
// a context.Context so that services and log handlers can read them without
// knowing about gin.
package actorctx

import (
	"context"

	"github.com/victorjakob/mamareykjavik/internal/domain/user"
)

type ctxKey string

const (
	keyActor     ctxKey = "actor"
	keyRequestID ctxKey = "request_id"
)

func With(ctx context.Context, a user.Actor) context.Context {
	return context.WithValue(ctx, keyActor, a)
}

func From(ctx context.Context) (user.Actor, bool) {
	a, ok := ctx.Value(keyActor).(user.Actor)

	return a, ok && a.Email != ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)

	return v, ok && v != ""
}
