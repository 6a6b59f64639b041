package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("EVENT_STORE", "")
	t.Setenv("DRAFT_TTL", "")
	t.Setenv("DATABASE_URL", "")

	cfg := Load()

	if cfg.Env != "dev" || cfg.Port != 8080 || cfg.EventStore != StorePostgres {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DraftTTL != 720*time.Hour {
		t.Fatalf("DraftTTL = %v", cfg.DraftTTL)
	}
	if cfg.MaxUploadBytes != 15<<20 {
		t.Fatalf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EVENT_STORE", "Memory")
	t.Setenv("UPLOAD_TIMEOUT", "5s")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("CORS_ORIGINS", "https://mama.is, https://admin.mama.is,,")
	t.Setenv("DATABASE_URL", "postgres://x@db/mama")

	cfg := Load()

	if cfg.Port != 9090 || cfg.EventStore != StoreMemory || cfg.UploadTimeout != 5*time.Second || !cfg.S3UsePathStyle {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.mama.is" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.DBURL != "postgres://x@db/mama" {
		t.Fatalf("DBURL = %q", cfg.DBURL)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("DRAFT_TTL", "forever")

	cfg := Load()
	if cfg.Port != 8080 || cfg.DraftTTL != 720*time.Hour {
		t.Fatalf("fallbacks not used: port=%d ttl=%v", cfg.Port, cfg.DraftTTL)
	}
}

func TestValidate(t *testing.T) {
	ok := Config{Env: "prod", EventStore: StorePostgres, JWTSecret: "s", MaxUploadBytes: 1}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := Config{Env: "prod", EventStore: StoreMemory, S3Bucket: "b"}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected errors")
	}
}
