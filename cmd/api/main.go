package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/cache"
	"cosmetics-shop-api/internal/config"
	"cosmetics-shop-api/internal/handler"
	"cosmetics-shop-api/internal/middleware"
	"cosmetics-shop-api/internal/repository"
	"cosmetics-shop-api/internal/router"
	"cosmetics-shop-api/internal/service"
	"cosmetics-shop-api/internal/upstream"
	"cosmetics-shop-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	log.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     cfg.App.Version,
	}).Info("Starting cosmetics shop API...")

	// Initialize store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := repository.Open(ctx, repository.Options{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN(),
	}, log)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize store")
	}
	defer store.Close()

	// Initialize cache
	memoryCache := func() cache.Cache {
		return cache.NewMemoryCacheWithOptions(cache.MemoryOptions{
			MaxEntries:     cfg.Cache.MaxEntries,
			PinnedPrefixes: []string{service.RevokedKeyPrefix},
		})
	}
	var c cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		}, log)
		if err != nil {
			log.WithError(err).Warn("Redis connection failed, falling back to memory cache")
			c = memoryCache()
		} else {
			c = rc
			log.WithField("addr", cfg.Cache.RedisAddress()).Info("Redis cache initialized")
		}
	default:
		c = memoryCache()
	}
	defer c.Close()
	cacheType := "memory"
	if _, ok := c.(*cache.RedisCache); ok {
		cacheType = "redis"
	}

	// Initialize services
	tokenService := service.NewTokenService(service.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	}, c, log)
	accountService := service.NewAccountService(store, tokenService, cfg.Ledger.StartingBalance, log)
	ledgerService := service.NewLedgerService(store, store, log)
	catalogService := service.NewCatalogService(store, c, cfg.Cache.TTL, log)

	client := upstream.NewClient(upstream.Config{
		BaseURL:  cfg.Upstream.BaseURL,
		APIKey:   cfg.Upstream.APIKey,
		Language: cfg.Upstream.Language,
		Timeout:  cfg.Upstream.Timeout,
	}, log)
	newsService := service.NewNewsService(client, c, cfg.Cache.TTL, log)

	var scheduler *service.SyncScheduler
	if cfg.Sync.Enabled {
		scheduler = service.NewSyncScheduler(
			client,
			service.NewReconciler(store, log),
			store,
			catalogService,
			service.SyncConfig{
				Interval:     cfg.Sync.Interval,
				StartupDelay: cfg.Sync.StartupDelay,
				CycleTimeout: cfg.Sync.CycleTimeout,
			},
			log,
		)
		scheduler.Start()
	} else {
		log.Warn("Catalog synchronization disabled")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, log)
		limiter.StartCleanup(time.Minute)
	}

	// Initialize handlers
	var syncTrigger handler.SyncTrigger
	if scheduler != nil {
		syncTrigger = scheduler
	}

	r := router.New(router.Config{
		Handler:         handler.New(cfg.App.Name, cfg.App.Version, store),
		CatalogHandler:  handler.NewCatalogHandler(catalogService),
		PurchaseHandler: handler.NewPurchaseHandler(ledgerService),
		AuthHandler:     handler.NewAuthHandler(accountService, tokenService),
		AdminHandler:    handler.NewAdminHandler(catalogService, syncTrigger, store, cfg.Store.Driver, cacheType),
		NewsHandler:     handler.NewNewsHandler(newsService),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{
			Tokens: tokenService,
			Logger: log,
		}),
		RateLimiter: limiter,
		LoginKey:    cfg.App.LoginKey,
		Logger:      log,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", cfg.Server.Address()).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop the scheduler first so no cycle writes during shutdown
	if scheduler != nil {
		scheduler.Stop()
	}
	if limiter != nil {
		limiter.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}

	log.Info("Server stopped")
}
