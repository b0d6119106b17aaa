// Package main provides the entry point for the LinkCut URL shortener service.
//
//	@title			LinkCut URL Shortener API
//	@version		1.0.0
//	@description	A URL shortener with expiring links, click statistics and projects.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"LinkCut-Backend/internal/auth"
	"LinkCut-Backend/internal/cache"
	"LinkCut-Backend/internal/config"
	"LinkCut-Backend/internal/database"
	httpHandler "LinkCut-Backend/internal/handler/http"
	"LinkCut-Backend/internal/repository/postgres"
	"LinkCut-Backend/internal/service"
	"LinkCut-Backend/internal/shortcode"
	"LinkCut-Backend/internal/stats"
	"LinkCut-Backend/internal/sweeper"
	"LinkCut-Backend/pkg/logger"
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	// Пустой LOG_FILE означает обычный логгер без ротации файлов.
	log := logger.NewWithRotation(cfg.Env, cfg.LogFile, 100, 5, 30)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting LinkCut service", zap.String("env", cfg.Env))

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations if enabled
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	// Initialize cache: unreachable or disabled Redis degrades to the
	// no-op cache, every lookup then goes to the database.
	var linkCache cache.LinkCache = cache.Noop{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			defer func() {
				if err := redisCache.Close(); err != nil {
					log.Error("failed to close redis client", zap.Error(err))
				}
			}()
			linkCache = redisCache
		}
	}

	// Initialize storage and services
	storage := postgres.New(db, log)

	generator := shortcode.New(cfg.Shortener.CodeLength, cfg.Shortener.MaxCollisions, shortcode.DefaultReserved)

	recorder := stats.NewPoolRecorder(storage, linkCache, cfg.Stats, log)
	if err := recorder.Start(); err != nil {
		log.Fatal("failed to start stats recorder", zap.Error(err))
	}
	defer func() {
		if err := recorder.Stop(); err != nil {
			log.Error("failed to stop stats recorder", zap.Error(err))
		}
	}()

	linkService := service.NewLinkService(storage, linkCache, generator, recorder, &cfg.Shortener, log)
	linkSweeper := sweeper.New(storage, cfg.Sweeper, log)

	// Background sweep of expired links
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go linkSweeper.Run(sweepCtx)

	jwtService := auth.NewJWTService(&cfg.Auth)
	passwordService := auth.NewPasswordService()

	apiServer := httpHandler.NewServer(
		storage,
		linkService,
		linkSweeper,
		jwtService,
		passwordService,
		func() error { return database.HealthCheck(db) },
		log,
		cfg.Shortener.BaseURL,
	)

	httpServer := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	log.Info("service stopped")
}
