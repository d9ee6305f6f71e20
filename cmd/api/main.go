package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/blakitny/storefront/api/routes"
	"github.com/blakitny/storefront/internal/auth"
	"github.com/blakitny/storefront/internal/cart"
	"github.com/blakitny/storefront/internal/catalog"
	"github.com/blakitny/storefront/internal/gateway"
	"github.com/blakitny/storefront/internal/productcache"
	"github.com/blakitny/storefront/internal/tokens"
	"github.com/blakitny/storefront/pkg/config"
	"github.com/blakitny/storefront/pkg/logger"
	"github.com/blakitny/storefront/pkg/metrics"
	"github.com/blakitny/storefront/pkg/redis"
)

const (
	serviceName     = "storefront-api"
	pruneInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := routes.Dependencies{Config: cfg, Logger: logg}

	var store tokens.Store = tokens.NewMemoryStore()
	if cfg.Session.UsesRedis() {
		redisClient, err := redis.New(runCtx, cfg.Redis, logg)
		if err != nil {
			logg.Error(runCtx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		store, err = tokens.NewRedisStore(redisClient, cfg.Session.TokenTTL)
		if err != nil {
			logg.Error(runCtx, "failed to create token store", err)
			os.Exit(1)
		}
		deps.Redis = redisClient
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(reg)
	deps.Gatherer = reg
	deps.HTTPMetrics = metrics.NewHTTPMetrics(reg)

	client, err := gateway.NewFromConfig(cfg.Backend, logg)
	if err != nil {
		logg.Error(runCtx, "failed to create backend client", err)
		os.Exit(1)
	}

	products := productcache.NewFromConfig(client, cfg.Cart, cfg.Backend, logg, cartMetrics)
	registry := cart.NewRegistry(
		func(p tokens.Provider) cart.Backend { return client.ForSession(p) },
		store,
		products,
		cfg.Session.IdleTTL,
		logg,
		cartMetrics,
	)
	go registry.Run(runCtx, pruneInterval)
	deps.Carts = registry

	deps.Catalog = catalog.NewService(client, cfg.Catalog, logg)

	deps.Auth, err = auth.NewService(auth.ServiceParams{
		Backend:  client,
		Profiles: func(p tokens.Provider) auth.ProfileFetcher { return client.ForSession(p) },
		Carts:    registry,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(runCtx, "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(runCtx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"backend":       cfg.Backend.BaseURL,
		"session_store": cfg.Session.Store,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
