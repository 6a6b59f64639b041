package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/victorjakob/mamareykjavik/internal/cache"
	"github.com/victorjakob/mamareykjavik/internal/calendar"
	"github.com/victorjakob/mamareykjavik/internal/domain/user"
	"github.com/victorjakob/mamareykjavik/internal/http/handlers"
	"github.com/victorjakob/mamareykjavik/internal/http/middlewares"
	"github.com/victorjakob/mamareykjavik/internal/observability"
)

type RouterDeps struct {
	Env         string
	ServiceName string
	Log         *slog.Logger

	// optional; nil disables /metrics and request metrics
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Tracing  bool

	Events   handlers.EventsLister
	Form     handlers.FormService
	Verifier middlewares.TokenVerifier
	Cache    *cache.Cache
	Feed     calendar.Feed
	Checks   map[string]handlers.Pinger

	// ShuttingDown flips /readyz to 503 during graceful shutdown
	ShuttingDown func() bool

	CORSOrigins        []string
	MaxBodyBytes       int64
	MaxUploadBytes     int64
	RateLimitPerMinute int
}

func NewRouter(d RouterDeps) *gin.Engine {
	switch d.Env {
	case "dev":
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	if d.Tracing {
		r.Use(otelgin.Middleware(d.ServiceName))
	}

	// health
	h := handlers.NewHealthHandler(d.Checks, d.ShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// public listing
	var cacheMetrics handlers.CacheObserver
	if d.Prom != nil {
		cacheMetrics = d.Prom
	}
	events := handlers.NewEventsHandler(d.Events, handlers.EventsHandlerConfig{
		Cache:   d.Cache,
		Metrics: cacheMetrics,
		Feed:    d.Feed,
		Log:     d.Log,
	})
	r.GET("/events", events.ListEvents)
	r.GET("/events/:slug", events.GetEvent)
	r.GET("/calendar.ics", events.Calendar)

	// admin
	authMw := middlewares.NewAuthMiddleware(d.Verifier)
	limit := d.RateLimitPerMinute
	if limit <= 0 {
		limit = 120
	}
	limiter := middlewares.NewRateLimiter(limit, time.Minute)

	admin := r.Group("/admin",
		middlewares.MaxBodyBytes(d.MaxBodyBytes),
		middlewares.RequireJSONOrMultipart(),
		authMw.RequireAuth(),
		authMw.RequireRole(user.RoleAdmin, user.RoleHost),
		limiter.RateLimiterMiddleware(middlewares.KeyByActorOrIP),
	)

	form := handlers.NewEventFormHandler(d.Form, d.MaxUploadBytes, d.Log)

	admin.GET("/events/new", form.Hydrate)
	admin.GET("/events/:slug/edit", form.Hydrate)
	admin.POST("/events", form.Submit)
	admin.PUT("/events/:slug", form.Submit)

	for _, prefix := range []string{"/drafts/new", "/drafts/events/:slug"} {
		drafts := admin.Group(prefix)
		drafts.GET("", form.Hydrate)
		drafts.PUT("", form.SaveDraft)
		drafts.DELETE("", form.DiscardDraft)
		drafts.POST("/variants", form.AddVariant)
		drafts.PATCH("/variants/:index", form.UpdateVariant)
		drafts.DELETE("/variants/:index", form.RemoveVariant)
	}

	return r
}
