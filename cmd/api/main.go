package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tikozap-platform/internal/auth"
	"tikozap-platform/internal/calls"
	"tikozap-platform/internal/config"
	"tikozap-platform/internal/conversation"
	"tikozap-platform/internal/telephony"
	"tikozap-platform/internal/transcribe"
	"tikozap-platform/internal/widget"
	"tikozap-platform/pkg/logger"
	"tikozap-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional local env file; real deployments inject env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	verifier, err := telephony.NewSignatureVerifier(cfg.Twilio.AuthToken, cfg.App.BaseURL)
	if err != nil {
		log.Error("webhook verifier init failed", "err", err)
		os.Exit(1)
	}

	fetcher, err := telephony.NewRecordingFetcher(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	if err != nil {
		log.Error("recording fetcher init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	conversations := conversation.NewService(conversation.NewPostgresRepo(db))
	callService := calls.NewService(calls.NewPostgresRepo(db), conversations)

	transcriber := transcribe.NewWhisper(cfg.OpenAI.APIKey)
	if transcribe.IsPlaceholderKey(cfg.OpenAI.APIKey) {
		log.Warn("transcription disabled, no usable OPENAI_API_KEY")
	}

	deps := appDeps{
		cfg:           cfg,
		db:            db,
		rdb:           rdb,
		authManager:   authManager,
		verifier:      verifier,
		fetcher:       fetcher,
		transcriber:   transcriber,
		conversations: conversations,
		calls:         callService,
		widgets:       widget.NewPostgresRepo(db),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Recording download plus transcription can run close to a minute.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
