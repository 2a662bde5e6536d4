package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearcity/api/internal/cache"
	"github.com/clearcity/api/internal/client"
	"github.com/clearcity/api/internal/config"
	"github.com/clearcity/api/internal/database"
	"github.com/clearcity/api/internal/limiter"
	"github.com/clearcity/api/internal/router"
	"github.com/clearcity/api/internal/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	images, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}

	deps := router.Deps{
		Config:     cfg,
		DB:         db,
		Classifier: client.NewClassifierClient(cfg.ClassifierURL, cfg.ClassifierAPIKey, cfg.ClassifierTimeout),
		Images:     images,
	}

	// Redis backs the leaderboard cache and the submission limiter. Both are
	// skipped when it is unavailable.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
		} else {
			deps.Cache = cache.NewRedisCache(redisClient, cfg.LeaderboardTTL)
			if cfg.ReportRateLimit > 0 {
				deps.Limiter = limiter.New(limiter.NewRedisCounter(redisClient), cfg.ReportRateLimit, cfg.ReportRateWindow)
			}
			defer redisClient.Close()
		}
	}
	if cfg.ClassifierAPIKey == "" {
		log.Println("Warning: CLASSIFIER_API_KEY is not set, image classification will fail")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("API server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}
