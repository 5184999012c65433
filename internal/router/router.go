package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/handler"
	"cosmetics-shop-api/internal/metrics"
	"cosmetics-shop-api/internal/middleware"
	"cosmetics-shop-api/pkg/apierror"
	"cosmetics-shop-api/pkg/response"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	CatalogHandler  *handler.CatalogHandler
	PurchaseHandler *handler.PurchaseHandler
	AuthHandler     *handler.AuthHandler
	AdminHandler    *handler.AdminHandler
	NewsHandler     *handler.NewsHandler
	AuthMiddleware  func(http.Handler) http.Handler
	RateLimiter     *middleware.RateLimiter
	LoginKey        string
	Logger          logrus.FieldLogger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound("No route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.MethodNotAllowed(r.Method))
	})

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// PUBLIC routes, limited per client IP
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}

			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Catalog endpoints
			if cfg.CatalogHandler != nil {
				r.Route("/cosmetics", func(r chi.Router) {
					r.Get("/", cfg.CatalogHandler.Search)
					r.Get("/new", cfg.CatalogHandler.New)
					r.Get("/shop", cfg.CatalogHandler.Shop)
					r.Get("/{id}", cfg.CatalogHandler.Get)
				})
			}

			if cfg.NewsHandler != nil {
				r.Get("/news", cfg.NewsHandler.Get)
			}

			if cfg.AuthHandler != nil {
				r.Post("/auth/register", cfg.AuthHandler.Register)
				r.Post("/auth/login", cfg.AuthHandler.Login)
			}
		})

		// AUTHENTICATED routes, limited per user
		r.Group(func(r chi.Router) {
			if cfg.AuthMiddleware != nil {
				r.Use(cfg.AuthMiddleware)
			}
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}

			if cfg.AuthHandler != nil {
				r.Post("/auth/revoke", cfg.AuthHandler.Revoke)
			}

			if cfg.PurchaseHandler != nil {
				r.Route("/purchases", func(r chi.Router) {
					r.Post("/", cfg.PurchaseHandler.Purchase)
					r.Post("/refund", cfg.PurchaseHandler.Refund)
					r.Get("/my-cosmetics", cfg.PurchaseHandler.MyCosmetics)
					r.Get("/history", cfg.PurchaseHandler.History)
					r.Get("/balance", cfg.PurchaseHandler.Balance)
					r.Get("/owns/{cosmetic_id}", cfg.PurchaseHandler.Owns)
				})
				r.Get("/users/{user_id}/profile", cfg.PurchaseHandler.Profile)
			}
		})

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireLoginKey(cfg.LoginKey))
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/sync", cfg.AdminHandler.TriggerSync)
				r.Get("/sync/runs", cfg.AdminHandler.ListSyncRuns)
			})
		}
	})

	return r
}
