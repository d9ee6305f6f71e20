package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Session SessionConfig
	Redis   RedisConfig
	Catalog CatalogConfig
	Cart    CartConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BackendConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_BACKEND_URL" required:"true"`
	Timeout        time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"10s"`
	RefreshBackoff time.Duration `envconfig:"STOREFRONT_BACKEND_REFRESH_BACKOFF" default:"1s"`
	// MediaOrigins are absolute origins whose image URLs get rewritten to relative paths.
	MediaOrigins []string `envconfig:"STOREFRONT_BACKEND_MEDIA_ORIGINS" default:"http://127.0.0.1:8000,http://localhost:8000"`
}

func (b BackendConfig) validate() error {
	parsed, err := url.Parse(b.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvBackendURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvBackendURL)
	}
	return nil
}

type SessionConfig struct {
	// Store selects the token backend: "memory" or "redis".
	Store    string        `envconfig:"STOREFRONT_SESSION_STORE" default:"memory"`
	TokenTTL time.Duration `envconfig:"STOREFRONT_SESSION_TOKEN_TTL" default:"720h"`
	IdleTTL  time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_TTL" default:"2h"`
}

func (s SessionConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(s.Store), SessionStoreRedis)
}

func (s SessionConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Store)) {
	case SessionStoreMemory, SessionStoreRedis:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q", EnvSessionStore, SessionStoreMemory, SessionStoreRedis)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CatalogConfig struct {
	Locale   string        `envconfig:"STOREFRONT_CATALOG_LOCALE" default:"ru"`
	CacheTTL time.Duration `envconfig:"STOREFRONT_CATALOG_TTL" default:"1m"`
}

type CartConfig struct {
	ProductCacheTTL  time.Duration `envconfig:"STOREFRONT_PRODUCT_CACHE_TTL" default:"0s"`
	FetchConcurrency int           `envconfig:"STOREFRONT_PRODUCT_FETCH_CONCURRENCY" default:"8"`
}
