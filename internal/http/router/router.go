package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/storedir/store-directory/internal/auth"
	"github.com/storedir/store-directory/internal/config"
	"github.com/storedir/store-directory/internal/database"
	"github.com/storedir/store-directory/internal/http/handler"
	"github.com/storedir/store-directory/internal/http/middleware"
	"github.com/storedir/store-directory/internal/metrics"
	"github.com/storedir/store-directory/internal/web"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/storedir/store-directory/docs" // Import generated swagger docs
)

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	storeHandler   *handler.StoreHandler
	pageHandler    *handler.PageHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	storeHandler *handler.StoreHandler,
	pageHandler *handler.PageHandler,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		storeHandler:   storeHandler,
		pageHandler:    pageHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	if rt.cfg.Server.EnableMetrics {
		r.Use(middleware.Metrics)
	}
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(rt.rateLimiter.LimitByIP)

	r.NotFound(rt.pageHandler.NotFound)

	// Health check (liveness)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Handle("/static/*", web.StaticHandler())

	// HTML pages
	r.Get("/", rt.pageHandler.Index)
	r.Route("/stores", func(r chi.Router) {
		r.Get("/{id}", rt.pageHandler.Detail)
		r.Get("/{id}/search", rt.pageHandler.Search)

		// Forms and writes
		r.Group(func(r chi.Router) {
			if rt.cfg.Auth.Enabled {
				r.Use(rt.authMiddleware.AuthenticateBrowser)
			}
			r.Use(rt.rateLimiter.LimitWrites)
			r.Use(middleware.Audit(rt.logger))

			r.Get("/new", rt.pageHandler.NewForm)
			r.Post("/", rt.pageHandler.Create)
			r.Get("/{id}/edit", rt.pageHandler.EditForm)
			r.Post("/{id}", rt.pageHandler.Update)
			r.Post("/{id}/delete", rt.pageHandler.Delete)
		})
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimiddleware.Timeout(timeout))
		}

		r.Route("/stores", func(r chi.Router) {
			// Public routes
			r.Get("/", rt.storeHandler.List)
			r.Get("/export", rt.storeHandler.Export)
			r.Get("/exports/latest", rt.storeHandler.LatestExport)
			r.Post("/search-template/derive", rt.storeHandler.DeriveTemplate)
			r.Get("/{id}", rt.storeHandler.GetByID)
			r.Get("/{id}/search", rt.storeHandler.Search)

			// Writes
			r.Group(func(r chi.Router) {
				if rt.cfg.Auth.Enabled {
					r.Use(rt.authMiddleware.Authenticate)
				}
				r.Use(rt.rateLimiter.LimitWrites)
				r.Use(middleware.Audit(rt.logger))

				r.Post("/", rt.storeHandler.Create)
				r.Put("/{id}", rt.storeHandler.Update)
				r.Delete("/{id}", rt.storeHandler.Delete)
			})
		})
	})

	return r
}

// databaseHealth reports readiness with connection pool stats
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"driver":  rt.cfg.Database.Driver,
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

// readiness checks every dependency the service needs to answer requests
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	status := http.StatusOK

	if err := database.HealthCheck(rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeHealth(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
