package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/database"
	"github.com/stemsi/tooltrack-backend/internal/handler"
	"github.com/stemsi/tooltrack-backend/internal/logger"
	"github.com/stemsi/tooltrack-backend/internal/navigation"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stemsi/tooltrack-backend/internal/router"
	"github.com/stemsi/tooltrack-backend/internal/service"
	"github.com/stemsi/tooltrack-backend/internal/validator"
	"github.com/stemsi/tooltrack-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Tooltrack Backend")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

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
	permissionRepo := repository.NewPermissionRepository(pool)
	masterRepo := repository.NewMasterRepository(pool)
	itemRepo := repository.NewItemRepository(pool)
	issueRepo := repository.NewIssueRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, userRepo)
	permissionService := service.NewPermissionService(
		permissionRepo,
		service.NewPermissionCache(rdb, cfg.PermissionTTL),
		log,
	)
	userService := service.NewUserService(userRepo, authService, log)
	settingService := service.NewSettingService(settingRepo, log)
	masterService := service.NewMasterService(masterRepo)
	itemService := service.NewItemService(itemRepo, masterRepo)
	bus := service.NewEventBus(rdb, log)
	issueService := service.NewIssueService(issueRepo, rdb, bus, settingService, log)
	dashboardService := service.NewDashboardService(dashboardRepo)
	spreadsheetService := service.NewSpreadsheetService(cfg, masterService, itemService, log)
	resolver := navigation.NewResolver(log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, permissionService, resolver, log),
		Permission:  handler.NewPermissionHandler(permissionService),
		User:        handler.NewUserHandler(userService),
		Setting:     handler.NewSettingHandler(settingService),
		Master:      handler.NewMasterHandler(masterService),
		Item:        handler.NewItemHandler(itemService),
		Spreadsheet: handler.NewSpreadsheetHandler(spreadsheetService, issueService),
		Issue:       handler.NewIssueHandler(issueService),
		Dashboard:   handler.NewDashboardHandler(dashboardService),
		Live:        handler.NewLiveHandler(bus, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	overdueWorker := worker.NewOverdueWorker(issueRepo, rdb, bus, cfg.OverdueScan, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		overdueWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, permissionService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// 2. Stop background workers and wait for the current scan to finish.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
