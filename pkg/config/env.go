package config

// EnvPrefix namespaces storefront settings for envconfig.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

const (
	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvPort            = "STOREFRONT_APP_PORT"
	EnvCORSOrigins     = "STOREFRONT_CORS_ORIGINS"
	EnvBackendURL      = "STOREFRONT_BACKEND_URL"
	EnvBackendTimeout  = "STOREFRONT_BACKEND_TIMEOUT"
	EnvSessionStore    = "STOREFRONT_SESSION_STORE"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvCatalogLocale   = "STOREFRONT_CATALOG_LOCALE"
	EnvProductCacheTTL = "STOREFRONT_PRODUCT_CACHE_TTL"
)
