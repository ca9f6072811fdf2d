package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/database"
	"github.com/chhs/grades-backend/internal/handler"
	"github.com/chhs/grades-backend/internal/logger"
	"github.com/chhs/grades-backend/internal/repository"
	"github.com/chhs/grades-backend/internal/router"
	"github.com/chhs/grades-backend/internal/service"
	"github.com/chhs/grades-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("sheet_backend", cfg.SheetBackend).
		Bool("batch_writes", cfg.BatchWrites).
		Bool("verify_before_write", cfg.VerifyBeforeWrite).
		Msg("Starting CHHS Grades Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Open Sheet Store ──────────────────────────────────────────────
	store, err := database.NewSheetStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open sheet store")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	auditRepo := repository.NewAuditRepository(pool)
	snapshotCache := repository.NewSnapshotCache(rdb, cfg.SnapshotTTL)
	sessionRegistry := repository.NewSessionRegistry(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	gradeEvents := service.NewGradeEvents(rdb)
	gradeService := service.NewGradeService(cfg, store, snapshotCache, auditRepo, gradeEvents, log)
	sessionService := service.NewSessionService(cfg, sessionRegistry, gradeService, log)
	auditService := service.NewAuditService(auditRepo)

	// ─── Prewarm Snapshot ─────────────────────────────────────────────
	// A schema problem is reported at startup rather than on the first request.
	if summary, err := gradeService.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Snapshot prewarm failed")
	} else {
		log.Info().Int("records", summary.Records).Int("teachers", summary.Teachers).Msg("Snapshot prewarmed")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService),
		Grade:   handler.NewGradeHandler(gradeService),
		Admin:   handler.NewAdminHandler(gradeService, auditService),
		WS:      handler.NewWSHandler(gradeEvents, sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, sessionService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	cancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
