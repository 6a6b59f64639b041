package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// event store
	EventStore    string // postgres|memory
	DBURL         string
	DBMaxConns    int
	DBAutoMigrate bool

	// drafts
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DraftTTL      time.Duration

	// auth provider
	JWTSecret string
	JWTIssuer string

	// image upload
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3UsePathStyle    bool
	CDNBaseURL        string
	UploadTimeout     time.Duration
	MaxUploadBytes    int64
	ImageMaxWidth     int
	ImageMaxSource    int

	// listing refresh
	RabbitURL       string
	RabbitExchange  string
	ListingCacheTTL time.Duration

	// public site
	SiteBaseURL string

	CORSOrigins        []string
	OTLPEndpoint       string
	RateLimitPerMinute int
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv_load_failed", "err", err)
	}

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		EventStore:    strings.ToLower(getEnv("EVENT_STORE", StorePostgres)),
		DBURL:         buildDBURL(),
		DBMaxConns:    getEnvInt("DB_MAX_CONNS", 5),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		DraftTTL:      getEnvDuration("DRAFT_TTL", 720*time.Hour),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "eu-west-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
		CDNBaseURL:        getEnv("CDN_BASE_URL", ""),
		UploadTimeout:     getEnvDuration("UPLOAD_TIMEOUT", 20*time.Second),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 15<<20)),
		ImageMaxWidth:     getEnvInt("IMAGE_MAX_WIDTH", 1600),
		ImageMaxSource:    getEnvInt("IMAGE_MAX_SOURCE_DIMENSION", 12000),

		RabbitURL:       getEnv("RABBIT_URL", ""),
		RabbitExchange:  getEnv("RABBIT_EXCHANGE", "mama.events"),
		ListingCacheTTL: getEnvDuration("LISTING_CACHE_TTL", 30*time.Second),

		SiteBaseURL: getEnv("SITE_BASE_URL", "https://mamareykjavik.is"),

		CORSOrigins:        getEnvList("CORS_ORIGINS"),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.EventStore != StorePostgres && c.EventStore != StoreMemory {
		errs = append(errs, errors.New("EVENT_STORE must be postgres or memory"))
	}
	if c.EventStore == StoreMemory && c.Env == "prod" {
		errs = append(errs, errors.New("EVENT_STORE=memory is not allowed in prod"))
	}
	if c.S3Bucket != "" && (c.S3AccessKeyID == "" || c.S3SecretAccessKey == "") {
		errs = append(errs, errors.New("S3_BUCKET needs S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "mama")
	pass := getEnv("DB_PASSWORD", "mama")
	name := getEnv("DB_NAME", "mama")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid_env_int", "key", key, "value", v)
			return fallback
		}
		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid_env_bool", "key", key, "value", v)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid_env_duration", "key", key, "value", v)
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
