package actorctx

import (
	"context"
	"testing"

	"github.com/victorjakob/mamareykjavik/internal/domain/user"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := With(context.Background(), user.Actor{ID: "u1", Email: "host@mama.is", Role: user.RoleHost})

	a, ok := From(ctx)
	if !ok {
		t.Fatal("expected actor on context")
	}
	if a.Email != "host@mama.is" || a.Role != user.RoleHost {
		t.Fatalf("unexpected actor %+v", a)
	}
}

func TestFrom_EmptyEmailIsAbsent(t *testing.T) {
	ctx := With(context.Background(), user.Actor{ID: "u1"})
	if _, ok := From(ctx); ok {
		t.Fatal("actor without email should not count as authenticated")
	}
	if _, ok := From(context.Background()); ok {
		t.Fatal("bare context should carry no actor")
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	id, ok := RequestIDFrom(ctx)
	if !ok || id != "req-1" {
		t.Fatalf("got %q %v", id, ok)
	}
	if _, ok := RequestIDFrom(WithRequestID(context.Background(), "")); ok {
		t.Fatal("empty id should be absent")
	}
}
