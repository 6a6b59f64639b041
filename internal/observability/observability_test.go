package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/victorjakob/mamareykjavik/internal/actorctx"
	"github.com/victorjakob/mamareykjavik/internal/domain/user"
)

func TestLogger_StampsTraceAndActor(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = actorctx.With(ctx, user.Actor{Email: "host@mama.is", Role: user.RoleHost})
	ctx = actorctx.WithRequestID(ctx, "req-1")

	log.With("component", "test").InfoContext(ctx, "event_saved", "slug", "cacao-03-07")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "event_saved", rec["msg"])
	assert.Equal(t, "test", rec["component"])
	assert.Equal(t, traceID.String(), rec["trace_id"])
	assert.Equal(t, spanID.String(), rec["span_id"])
	assert.Equal(t, "host@mama.is", rec["actor_email"])
	assert.Equal(t, "req-1", rec["request_id"])
}

func TestLogger_LevelByEnv(t *testing.T) {
	var buf bytes.Buffer
	newLogger("prod", &buf).Debug("hidden")
	assert.Zero(t, buf.Len())

	newLogger("dev", &buf).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestObserveDB(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	require.NoError(t, p.ObserveDB("events.get", func() error { return nil }))
	assert.ErrorIs(t, p.ObserveDB("events.get", func() error { return pgx.ErrNoRows }), pgx.ErrNoRows)
	_ = p.ObserveDB("events.create", func() error {
		return fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	})
	_ = p.ObserveDB("events.list", func() error { return errors.New("dial tcp: connection refused") })

	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("events.create", "unique_violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("events.list", "connection")))
	assert.Equal(t, 2, testutil.CollectAndCount(p.DbErrorsTotal))
}

func TestClassifyDBErr(t *testing.T) {
	cases := map[string]error{
		"foreign_key_violation": &pgconn.PgError{Code: "23503"},
		"check_violation":       &pgconn.PgError{Code: "23514"},
		"query_canceled":        &pgconn.PgError{Code: "57014"},
		"pg_42P01":              &pgconn.PgError{Code: "42P01"},
		"timeout":               context.DeadlineExceeded,
	}
	for want, err := range cases {
		assert.Equal(t, want, classifyDBErr(err), want)
	}
}

func TestObserveCacheAndSubmission(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.ObserveCache("events.list", false)
	p.ObserveCache("events.list", true)
	p.ObserveCache("events.list", true)
	p.ObserveSubmission("create", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.ListingCache.WithLabelValues("events.list", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ListingCache.WithLabelValues("events.list", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.SubmissionsTotal.WithLabelValues("create", "ok")))
}

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "mamareykjavik", "test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
