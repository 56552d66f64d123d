package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yamdb/database"
	"yamdb/internal/config"
	"yamdb/internal/events"
	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/handler"
	"yamdb/internal/logger"
	"yamdb/internal/mailer"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 1️⃣ Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLogger := logger.New(cfg)
	slog.SetDefault(appLogger)

	// 2️⃣ Connect to the database
	db, err := database.Open(cfg.DatabaseURL, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		appLogger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// 3️⃣ Optional Redis for the auth rate limiter
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			appLogger.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	// 4️⃣ Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := dto.RegisterValidators(); err != nil {
		appLogger.Error("Failed to register validators", "error", err)
		os.Exit(1)
	}

	mail, err := mailer.New(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create mailer", "error", err)
		os.Exit(1)
	}

	router := handler.NewRouter(handler.Dependencies{
		Config:    cfg,
		DB:        db,
		Logger:    appLogger,
		Mailer:    mail,
		Publisher: events.New(cfg, appLogger),
		Redis:     rdb,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", "addr", srv.Addr, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutdown signal received, draining connections")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Graceful shutdown failed", "error", err)
	}
	appLogger.Info("Server stopped")
}
