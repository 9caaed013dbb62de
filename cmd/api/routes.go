package main

import (
	"database/sql"
	"net/http"
	"time"

	"tikozap-platform/internal/auth"
	"tikozap-platform/internal/calls"
	"tikozap-platform/internal/config"
	"tikozap-platform/internal/conversation"
	"tikozap-platform/internal/httpapi"
	"tikozap-platform/internal/ratelimit"
	"tikozap-platform/internal/telephony"
	"tikozap-platform/internal/transcribe"
	"tikozap-platform/internal/widget"
	"tikozap-platform/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type appDeps struct {
	cfg config.Config
	db  *sql.DB
	rdb *redis.Client

	authManager   *auth.Manager
	verifier      *telephony.SignatureVerifier
	fetcher       *telephony.RecordingFetcher
	transcriber   transcribe.Transcriber
	conversations *conversation.Service
	calls         *calls.Service
	widgets       widget.Repository
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps appDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks (public, protected by signature validation).
	{
		h := &telephony.WebhookHandlers{
			Verifier:    deps.verifier,
			Calls:       deps.calls,
			Fetcher:     deps.fetcher,
			Transcriber: deps.transcriber,
		}
		twilio := r.Group("/webhooks/twilio")
		{
			twilio.POST("/status", h.HandleCallStatus)
			twilio.POST("/voicemail", h.HandleVoicemail)
			twilio.POST("/transcription", h.HandleTranscription)
			twilio.POST("/recording-status", h.HandleRecordingStatus)
		}
	}

	// Public widget surface. The embed script calls these cross-origin from
	// arbitrary tenant sites, so CORS is open; trust comes from the widget key
	// and the per-tenant origin allowlist checked inside the handlers.
	{
		h := &widget.Handlers{
			Widgets:       deps.widgets,
			Calls:         deps.calls,
			Conversations: deps.conversations,
		}
		pub := r.Group("/public/widget")
		pub.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Type"},
			MaxAge:          12 * time.Hour,
		}))
		{
			// Config reads are cheap and read-only, so a per-instance limiter
			// is enough; demo requests create rows and must be bounded
			// fleet-wide, so they go through Redis.
			configLimited := pub.Group("")
			configLimited.Use(ratelimit.Middleware(
				ratelimit.NewMemoryStore(),
				"widget_config",
				deps.cfg.RateLimit.ConfigLimit,
				deps.cfg.RateLimit.ConfigWindow,
			))
			configLimited.GET("/config", h.GetConfig)

			limited := pub.Group("")
			limited.Use(ratelimit.Middleware(
				ratelimit.NewRedisStore(deps.rdb),
				"widget_demo",
				deps.cfg.RateLimit.DemoLimit,
				deps.cfg.RateLimit.DemoWindow,
			))
			limited.POST("/demo", h.RequestDemo)
		}
	}

	// Authenticated dashboard API.
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(deps.authManager))
	{
		h := &httpapi.Handlers{Calls: deps.calls}
		v1.GET("/items", h.ListItems)
		v1.GET("/calls", h.ListCalls)
	}
}
