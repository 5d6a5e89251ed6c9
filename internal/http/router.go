// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
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

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/config"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/http/handlers"
	"chatroom-backend/internal/http/middleware"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/repo"
	"chatroom-backend/internal/services"
)

// chatroomRepoShim adapts the repository free functions to the
// services.ChatroomRepo interface expected by the ChatroomService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type chatroomRepoShim struct{}

// CreateChatroom proxies repo.CreateChatroom.
func (chatroomRepoShim) CreateChatroom(ctx context.Context, db *gorm.DB, userID, name, description string) (*domain.Chatroom, error) {
	return repo.CreateChatroom(ctx, db, userID, name, description)
}

// ListChatrooms proxies repo.ListChatrooms.
func (chatroomRepoShim) ListChatrooms(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chatroom, error) {
	return repo.ListChatrooms(ctx, db, userID)
}

// GetChatroom proxies repo.GetChatroom.
func (chatroomRepoShim) GetChatroom(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chatroom, error) {
	return repo.GetChatroom(ctx, db, id, userID)
}

// CountChatroomMessages proxies repo.CountChatroomMessages.
func (chatroomRepoShim) CountChatroomMessages(ctx context.Context, db *gorm.DB, chatroomID string) (int64, error) {
	return repo.CountChatroomMessages(ctx, db, chatroomID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the public API: unauthenticated auth routes plus the JWT-guarded chatroom,
// message, and account routes.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
//  9. Response compression
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store cache.Store, qc queue.Client, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. Mobile numbers ride in JSON
	// bodies, not headers, so the built-in header masks suffice.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP. Separate from the daily
	// message quota: this guards the whole surface against bursts. Probe
	// endpoints are exempt so orchestrator polling never drains a bucket.
	r.Use(func(c *gin.Context) {
		switch c.FullPath() {
		case "/health", "/metrics":
			middleware.MarkRateBypass(c)
		}
		c.Next()
	})
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		// Responses carry tokens and OTP codes; intermediaries must not cache them.
		NoStore:      true,
		EnablePolicy: true,
	}))

	// 9) Compress JSON responses (message listings get large)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/cache/queue
	listCache := cache.NewChatroomListCache(store, cfg.CacheTTL)
	quotaSvc := services.NewQuotaService(db, cfg.DailyMessageLimit)
	roomSvc := services.NewChatroomService(db, chatroomRepoShim{}, listCache)
	msgSvc := &services.MessageService{
		DB:              db,
		Queue:           qc,
		Cache:           listCache,
		Quota:           quotaSvc,
		MaxMessageRunes: cfg.MaxMessageRunes,
	}
	authSvc := services.NewAuthService(db, []byte(cfg.Auth.JWTSecret), cfg.Auth.JWTTTL, cfg.Auth.OTPTTL)
	userSvc := services.NewUserService(db, quotaSvc)
	h := handlers.New(roomSvc, msgSvc, authSvc, userSvc)

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/send-otp", h.SendOTP)
		auth.POST("/verify-otp", h.VerifyOTP)
		auth.POST("/login", h.Login)
		auth.POST("/forgot-password", h.ForgotPassword)
	}

	// Everything else requires a valid token
	guard := middleware.Auth(func(token string) (middleware.Identity, error) {
		claims, err := authSvc.ParseToken(token)
		if err != nil {
			return middleware.Identity{}, err
		}
		return middleware.Identity{UserID: claims.Subject, Tier: claims.Tier}, nil
	})

	authed := r.Group("", guard)
	{
		authed.POST("/auth/change-password", h.ChangePassword)
		authed.POST("/auth/set-password", h.SetPassword)

		// Chatrooms
		authed.POST("/chatroom", h.CreateChatroom)
		authed.GET("/chatroom", h.ListChatrooms)
		authed.GET("/chatroom/:id", h.GetChatroom)

		// Messages
		authed.POST("/chatroom/:id/message", h.SubmitMessage)
		authed.GET("/chatroom/:id/messages", h.ListMessages)

		// Account
		authed.GET("/user/me", h.Me)
		authed.GET("/subscription/status", h.SubscriptionStatus)
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
