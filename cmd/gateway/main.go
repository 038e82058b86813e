package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hzplatform/storefront-gateway/internal/admission"
	"github.com/hzplatform/storefront-gateway/internal/config"
	"github.com/hzplatform/storefront-gateway/internal/counter"
	"github.com/hzplatform/storefront-gateway/internal/metrics"
	"github.com/hzplatform/storefront-gateway/internal/origintrust"
	"github.com/hzplatform/storefront-gateway/internal/server"
	"github.com/hzplatform/storefront-gateway/internal/session"
	"github.com/hzplatform/storefront-gateway/internal/storage/sqlite"
	"github.com/hzplatform/storefront-gateway/internal/telemetry"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer("storefront-gateway", cfg.Platform.Environment, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	gatewayMetrics := metrics.New(prometheus.DefaultRegisterer)

	// Tenant directory: SQLite for shared deployments, config-seeded
	// memory otherwise.
	var directory tenant.Directory
	switch cfg.Storage.Type {
	case "sqlite":
		store, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open tenant database: %v", err)
		}
		defer store.Close()
		directory = store
	default:
		directory = tenant.LoadDirectory(cfg.Tenants)
	}

	resolver := tenant.NewResolver(directory, logger, tenant.ResolverOptions{
		RootDomain: cfg.Platform.RootDomain,
		Production: cfg.IsProduction(),
		CacheTTL:   cfg.Cache.TTL,
		CacheSize:  cfg.Cache.Size,
		Metrics:    gatewayMetrics,
	})

	// Counter store: Redis shares windows across replicas; a single local
	// instance can run without it.
	var counters counter.Store
	if cfg.Redis.Addr != "" {
		redisStore := counter.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), logger)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable at startup, limiters will fail open until it recovers",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()),
			)
		}
		cancel()
		counters = redisStore
	} else {
		logger.Warn("no redis configured, using process-local counters; quotas will not be shared across replicas")
		counters = counter.NewMemoryStore()
	}

	if !cfg.Security.EnforceOriginTrust {
		logger.Warn("origin trust enforcement is DISABLED; unsigned requests to data endpoints will be accepted")
	}

	srv := server.New(server.Options{
		Config:    cfg,
		Resolver:  resolver,
		Directory: directory,
		Sessions:  session.NewCookieStore(cfg.Security.SessionSecret, session.DefaultTTL, cfg.IsProduction()),
		Limiter:   admission.NewLimiter(counters, logger, gatewayMetrics),
		Verifier:  origintrust.NewVerifier(cfg.Security.OriginSecret, cfg.Security.EnforceOriginTrust),
		IPLimiter: origintrust.NewIPLimiter(counters, logger),
		TokenGate: origintrust.NewTokenGate(cfg.Security.InternalToken, cfg.IsProduction()),
		Metrics:   gatewayMetrics,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigChan:
		logger.Info("shutdown signal received, draining requests...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("gateway shutdown complete")
}
