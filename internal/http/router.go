// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/evoris-app/go-capsule-backend/internal/config"
	"github.com/evoris-app/go-capsule-backend/internal/http/handlers"
	"github.com/evoris-app/go-capsule-backend/internal/http/middleware"
	"github.com/evoris-app/go-capsule-backend/internal/repo"
	"github.com/evoris-app/go-capsule-backend/internal/services"
	"github.com/evoris-app/go-capsule-backend/internal/storage"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability, idempotency and rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (multipart uploads included)
//  6. Gzip compression for JSON listings
//  7. Metrics
//  8. CORS and security headers
//
// The idempotency validator and the rate limiter are group middleware, not
// global: they run after RequireAuth so the replay lookup and the rate-limit
// key operate on the authenticated user id. Public auth endpoints get the
// same limiter keyed by client IP.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store storage.BlobStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (bearer tokens, emails, ids)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Api-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body cap sized for multipart uploads
	r.Use(limitBody(cfg.MaxUploadMB << 20))

	// 6) Compress JSON responses; listings with many capsules shrink well
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Idempotency validation and the token-bucket rate limiter are mounted
	// per group below, after authentication.
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  "capsule_create",
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/store
	capSvc := &services.CapsuleService{
		DB:          db,
		Store:       store,
		RecentLimit: cfg.RecentLimit,
	}
	userSvc := services.NewUserService(db, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	notifSvc := services.NewNotificationService(db, cfg.NotifyHorizon)
	h := handlers.New(capSvc, userSvc, notifSvc)
	h.IdempotencyTTL = cfg.IdempotencyTTL

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Identity (unauthenticated); rate limited by client IP
		public := api.Group("", rl.Handler())
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Everything else requires a bearer token. Authentication runs
		// first so the idempotency replay lookup and the rate-limit key
		// see the user id; a detected replay bypasses the limiter.
		auth := api.Group("", middleware.RequireAuth(userSvc), idem, rl.Handler())
		{
			// Profile
			auth.GET("/profile", h.GetProfile)
			auth.PUT("/profile", h.UpdateProfile)
			auth.PUT("/profile/password", h.ChangePassword)

			// Capsules
			auth.POST("/capsules", h.CreateCapsule)
			auth.GET("/capsules", h.ListCapsules)
			auth.GET("/capsules/stats", h.CapsuleStats)
			auth.GET("/capsules/:id", h.GetCapsule)
			auth.DELETE("/capsules/:id", h.DeleteCapsule)
			if cfg.ManualReveal {
				auth.POST("/capsules/:id/reveal", h.RevealCapsule)
			}

			// Notifications
			auth.GET("/notifications", h.ListNotifications)
			auth.GET("/notifications/:id", h.GetNotification)
		}
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints using http.MaxBytesReader. Requests exceeding the cap cause
// downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
