// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, idempotent replay, CORS and security headers.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Client records are PII: access logs are redacted unless disabled
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/client-tracker-backend/docs"
	"github.com/tbourn/client-tracker-backend/internal/config"
	"github.com/tbourn/client-tracker-backend/internal/domain"
	"github.com/tbourn/client-tracker-backend/internal/http/handlers"
	"github.com/tbourn/client-tracker-backend/internal/http/middleware"
	"github.com/tbourn/client-tracker-backend/internal/mailer"
	"github.com/tbourn/client-tracker-backend/internal/repo"
	"github.com/tbourn/client-tracker-backend/internal/services"
)

// clientRepoShim adapts the repository free functions to the
// services.ClientRepo interface expected by the ClientService.
type clientRepoShim struct{}

// ListClients proxies repo.ListClients.
func (clientRepoShim) ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	return repo.ListClients(ctx, db)
}

// CreateClient proxies repo.CreateClient.
func (clientRepoShim) CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return repo.CreateClient(ctx, db, c)
}

// GetClient proxies repo.GetClient.
func (clientRepoShim) GetClient(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error) {
	return repo.GetClient(ctx, db, id)
}

// UpdateClientFields proxies repo.UpdateClientFields.
func (clientRepoShim) UpdateClientFields(ctx context.Context, db *gorm.DB, c *domain.Client, fields map[string]any) error {
	return repo.UpdateClientFields(ctx, db, c, fields)
}

// DeleteClient proxies repo.DeleteClient.
func (clientRepoShim) DeleteClient(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteClient(ctx, db, id)
}

// GetClientsStats proxies repo.GetClientsStats (list ETags).
func (clientRepoShim) GetClientsStats(ctx context.Context, db *gorm.DB) (repo.ClientsStats, error) {
	return repo.GetClientsStats(ctx, db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the client and email relay API under cfg.APIBasePath.
// sender delivers relay emails; a nil sender makes every relay attempt fail.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Access logging (redacting unless LOG_REDACT=false)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip (optional), outside idempotency so stored bodies stay plain
//  8. CORS
//  9. Security headers
//  10. Idempotent replay for POST; replays pass through 8 and 9 first
func RegisterRoutes(r *gin.Engine, db *gorm.DB, sender mailer.Sender, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(limitBody(maxBody))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}

	// 8) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotentReplayed}
	allowMethods := []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
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
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 9) Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 10) Idempotent replay of successful POSTs
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	r.Use(middleware.Idempotency(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, scope, key string, now time.Time) (*middleware.StoredResponse, error) {
			rec, err := repo.GetIdempotency(ctx, db, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return &middleware.StoredResponse{Status: rec.Status, Body: rec.Body}, nil
		},
		func(ctx context.Context, scope, key string, resp middleware.StoredResponse) error {
			_, err := repo.CreateIdempotency(ctx, db, scope, key, resp.Status, resp.Body, ttl)
			if errors.Is(err, repo.ErrDuplicate) {
				// A concurrent retry stored first; its record wins.
				return nil
			}
			return err
		},
	))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db, relay ← sender
	clientSvc := services.NewClientService(db, clientRepoShim{})
	relaySvc := services.NewRelayService(sender)
	h := handlers.New(clientSvc, relaySvc)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Clients
		api.GET("/clients/", h.ListClients)
		api.POST("/clients/", h.CreateClient)
		api.PUT("/clients/:id", h.UpdateClient)
		api.DELETE("/clients/:id", h.DeleteClient)

		// Email relay
		api.POST("/send-update", h.SendUpdate)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
