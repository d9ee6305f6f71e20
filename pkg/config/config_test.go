package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if cfg.Backend.BaseURL != "http://backend.local/api" {
		t.Fatalf("unexpected backend url %q", cfg.Backend.BaseURL)
	}
	if got := cfg.Backend.Timeout; got != 10*time.Second {
		t.Fatalf("expected default backend timeout 10s, got %v", got)
	}
	if got := cfg.Backend.RefreshBackoff; got != time.Second {
		t.Fatalf("expected default refresh backoff 1s, got %v", got)
	}
	if cfg.Catalog.Locale != "ru" {
		t.Fatalf("expected default locale ru, got %q", cfg.Catalog.Locale)
	}
	if cfg.Cart.ProductCacheTTL != 0 {
		t.Fatalf("product cache should never expire by default, got %v", cfg.Cart.ProductCacheTTL)
	}
	if len(cfg.App.CORSOrigins) != 2 {
		t.Fatalf("expected two cors origins, got %v", cfg.App.CORSOrigins)
	}
	if cfg.Session.UsesRedis() {
		t.Fatalf("memory session store expected by default")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsRelativeBackendURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvBackendURL, "/api")

	if _, err := Load(); err == nil {
		t.Fatal("expected relative backend url to be rejected")
	}
}

func TestLoad_RejectsUnknownSessionStore(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvSessionStore, "sqlite")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown session store to be rejected")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvBackendURL, "http://backend.local/api")
	t.Setenv(EnvCORSOrigins, "http://localhost:5173,https://blakitny.example")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
