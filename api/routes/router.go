package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blakitny/storefront/api/controllers"
	"github.com/blakitny/storefront/api/middleware"
	"github.com/blakitny/storefront/internal/auth"
	"github.com/blakitny/storefront/pkg/config"
	"github.com/blakitny/storefront/pkg/logger"
	"github.com/blakitny/storefront/pkg/metrics"
	"github.com/blakitny/storefront/pkg/redis"
)

// Dependencies collects what the router hands to controllers. Redis is nil for
// memory-backed sessions.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       redis.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	Carts       controllers.CartEngines
	Catalog     controllers.CatalogService
	Auth        auth.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Session(logg),
		middleware.Logging(logg),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Redis))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, logg))
			r.Post("/reload", controllers.CartReload(deps.Carts, logg))
			r.Post("/items", controllers.CartAddItem(deps.Carts, logg))
			r.Put("/items/{variantId}", controllers.CartUpdateItem(deps.Carts, logg))
			r.Delete("/items/{variantId}", controllers.CartRemoveItem(deps.Carts, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
			r.Get("/products/{productId}", controllers.CatalogProduct(deps.Catalog, logg))
			r.Get("/facets", controllers.CatalogFacets(deps.Catalog, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.Get("/me", controllers.AuthMe(deps.Auth, logg))
		})
	})

	return r
}
