package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Env != "development" || !cfg.IsDevelopment() {
		t.Errorf("expected development env, got %q", cfg.Env)
	}
	if cfg.Database.URL == "" {
		t.Error("expected a default DATABASE_URL")
	}
	if !cfg.Database.Migrate {
		t.Error("expected migrations enabled by default")
	}
	if cfg.Redis.Addr != "" || cfg.Mongo.URI != "" {
		t.Error("optional bindings must be disabled by default")
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected 15s shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":               "9090",
		"ENVIRONMENT":        "production",
		"DATABASE_URL":       "postgres://u:p@db:5432/users",
		"DB_MAX_OPEN_CONNS":  "50",
		"REDIS_ADDR":         "redis:6379",
		"MONGO_URI":          "mongodb://mongo:27017",
		"BACKGROUND_WORKERS": "2",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "9090" || cfg.IsDevelopment() {
		t.Errorf("unexpected port/env: %q %q", cfg.Port, cfg.Env)
	}
	if cfg.Database.URL != "postgres://u:p@db:5432/users" || cfg.Database.MaxOpenConns != 50 {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Mongo.URI != "mongodb://mongo:27017" {
		t.Errorf("unexpected binding config: %+v %+v", cfg.Redis, cfg.Mongo)
	}
	if cfg.Background.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Background.Workers)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"DB_MAX_OPEN_CONNS": "many",
	}))
	if err == nil {
		t.Fatal("expected error for non-numeric DB_MAX_OPEN_CONNS")
	}
}
