package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/clock"
	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/database"
	"github.com/stemsi/exstem-review/internal/handler"
	"github.com/stemsi/exstem-review/internal/logger"
	"github.com/stemsi/exstem-review/internal/repository"
	"github.com/stemsi/exstem-review/internal/router"
	"github.com/stemsi/exstem-review/internal/service"
	"github.com/stemsi/exstem-review/internal/validator"
	"github.com/stemsi/exstem-review/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, nil)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Review API")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	reviewerRepo := repository.NewReviewerRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	libraryRepo := repository.NewLibraryRepository(pool)
	supportRepo := repository.NewSupportRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	var analyzer service.Analyzer
	if cfg.GeminiAPIKey != "" {
		gemini, err := service.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini unavailable, using built-in summaries")
		} else {
			analyzer = gemini
			log.Info().Str("model", cfg.GeminiModel).Msg("AI analysis enabled")
		}
	}

	authService := service.NewAuthService(cfg, userRepo)
	reviewerService := service.NewReviewerService(reviewerRepo, rdb, log)
	attemptService := service.NewAttemptService(attemptRepo, reviewerService, rdb, analyzer, clock.Real(), log)
	libraryService := service.NewLibraryService(libraryRepo, reviewerService)
	supportService := service.NewSupportService(supportRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, log),
		Reviewer: handler.NewReviewerHandler(reviewerService, log),
		Library:  handler.NewLibraryHandler(libraryService, log),
		Attempt:  handler.NewAttemptHandler(attemptService, log),
		Support:  handler.NewSupportHandler(supportService, log),
		WS:       handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
		System:   handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	autosaveWorker := worker.NewAutosaveWorker(pool, rdb, log)
	scoringWorker := worker.NewScoringWorker(pool, rdb, log)

	workers.Go(func() { autosaveWorker.Start(workerCtx) })
	workers.Go(func() { scoringWorker.Start(workerCtx) })

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load every reviewer into Redis before accepting traffic.
	if err := reviewerService.PrewarmAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
