package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/victorjakob/mamareykjavik/internal/auth"
	"github.com/victorjakob/mamareykjavik/internal/cache"
	"github.com/victorjakob/mamareykjavik/internal/calendar"
	"github.com/victorjakob/mamareykjavik/internal/config"
	"github.com/victorjakob/mamareykjavik/internal/db"
	"github.com/victorjakob/mamareykjavik/internal/draft"
	"github.com/victorjakob/mamareykjavik/internal/eventform"
	httpx "github.com/victorjakob/mamareykjavik/internal/http"
	"github.com/victorjakob/mamareykjavik/internal/http/handlers"
	"github.com/victorjakob/mamareykjavik/internal/listing"
	"github.com/victorjakob/mamareykjavik/internal/media"
	"github.com/victorjakob/mamareykjavik/internal/observability"
	"github.com/victorjakob/mamareykjavik/internal/redisclient"
	"github.com/victorjakob/mamareykjavik/internal/repo/memory"
	"github.com/victorjakob/mamareykjavik/internal/repo/postgres"
)

const serviceName = "mamareykjavik-api"

// eventStore is what both the postgres and in-memory repos provide.
type eventStore interface {
	eventform.EventReader
	eventform.EventWriter
	handlers.EventsLister
	Ping(ctx context.Context) error
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	startCtx, cancelStart := config.WithTimeout(15 * time.Second)
	defer cancelStart()

	shutdownTracer, err := observability.InitTracer(startCtx, serviceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// event store
	var store eventStore
	var closeStore func()

	switch cfg.EventStore {
	case config.StoreMemory:
		log.Warn("using in-memory event store, data is lost on restart")
		store = memory.NewEventsRepo()
		closeStore = func() {}
	default:
		pool, err := db.NewPool(startCtx, cfg.DBURL, int32(cfg.DBMaxConns))
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		if cfg.DBAutoMigrate {
			if err := db.Migrate(startCtx, pool); err != nil {
				log.Error("db migrate failed", "err", err)
				os.Exit(1)
			}
		}
		store = postgres.NewEventsRepo(pool, prom)
		closeStore = pool.Close
	}
	defer closeStore()

	// drafts
	drafts, closeDrafts := newDraftStore(startCtx, cfg, log)
	defer closeDrafts()

	// listing cache and cross-instance refresh
	listingCache := cache.New(cfg.ListingCacheTTL)

	var refresher *listing.Refresher
	if cfg.RabbitURL != "" {
		pub, err := listing.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Error("rabbitmq connect failed", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		refresher = listing.NewRefresher(listingCache, pub, log)
	} else {
		refresher = listing.NewRefresher(listingCache, nil, log)
	}

	deps := eventform.Deps{
		Reader:  store,
		Writer:  store,
		Drafts:  drafts,
		Listing: refresher,
		Metrics: prom,
		Log:     log,
	}

	// image uploads are only wired when a bucket is configured
	if cfg.S3Bucket != "" {
		s3Store, err := media.NewS3Store(startCtx, media.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicBaseURL:   cfg.CDNBaseURL,
		})
		if err != nil {
			log.Error("s3 init failed", "err", err)
			os.Exit(1)
		}

		proc := media.Processor{
			MaxWidth:           cfg.ImageMaxWidth,
			MaxBytes:           cfg.MaxUploadBytes,
			MaxSourceDimension: cfg.ImageMaxSource,
		}
		deps.Uploader = media.NewProtectedUploader(media.NewUploader(proc, s3Store), media.ProtectedUploaderConfig{
			Timeout:          cfg.UploadTimeout,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
			HalfOpenMaxCalls: 1,
		})
	} else {
		log.Warn("S3_BUCKET not set, image uploads are disabled")
	}

	var shuttingDown atomic.Bool

	// set up routers with the log
	router := httpx.NewRouter(httpx.RouterDeps{
		Env:         cfg.Env,
		ServiceName: serviceName,
		Log:         log,
		Prom:        prom,
		Gatherer:    reg,
		Tracing:     cfg.OTLPEndpoint != "",
		Events:      store,
		Form:        eventform.NewService(deps),
		Verifier:    auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, 0),
		Cache:       listingCache,
		Feed:        calendar.Feed{BaseURL: cfg.SiteBaseURL, Name: "Mama Reykjavik"},
		Checks: map[string]handlers.Pinger{
			"events": store.Ping,
			"drafts": drafts.Ping,
		},
		ShuttingDown:       shuttingDown.Load,
		CORSOrigins:        cfg.CORSOrigins,
		MaxBodyBytes:       cfg.MaxUploadBytes + 1<<20,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.EventStore)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	shuttingDown.Store(true)

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// newDraftStore uses Redis when configured so drafts survive restarts and
// are shared between instances.
func newDraftStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*draft.Store, func()) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, drafts are kept in memory")
		return draft.NewStore(draft.NewMemoryBackend(), log), func() {}
	}

	client, err := redisclient.Connect(ctx, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Error("redis connect failed", "err", err)
		os.Exit(1)
	}

	return draft.NewStore(draft.NewRedisBackend(client.Raw(), cfg.DraftTTL), log), func() { _ = client.Close() }
}
