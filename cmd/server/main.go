package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/comment-ranking-api/internal/api"
	"github.com/comment-ranking-api/internal/cache"
	"github.com/comment-ranking-api/internal/config"
	"github.com/comment-ranking-api/internal/database"
	"github.com/comment-ranking-api/internal/ranking"
	"github.com/comment-ranking-api/internal/repository"
	"github.com/comment-ranking-api/internal/service"
	"github.com/comment-ranking-api/pkg/logger"
)

func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back all migrations and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Comment Ranking API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *migrateDown {
		if err := db.MigrateDown(cfg.Database.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back database migrations")
		}
		log.Info().Msg("Migrations rolled back")
		return
	}

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize cache
	commentCache, err := cache.New(&cfg.Cache, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to cache")
	}
	defer commentCache.Close()

	// Initialize ranking
	defaultWeights := ranking.Weights{Rating: cfg.Ranking.RatingWeight, Recency: cfg.Ranking.RecencyWeight}
	profiles, err := ranking.LoadProfiles(cfg.Ranking.ProfilesFile, defaultWeights)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ranking profiles")
	}
	ranker := ranking.New(ranking.WithProfiles(profiles))
	log.Info().Int("profiles", len(profiles)).Msg("Ranking profiles loaded")

	// Initialize repositories
	repos := repository.New(db)

	// Initialize services
	services := service.NewServices(repos, commentCache, ranker, cfg, log)

	// Initialize router
	router := api.NewRouter(services, db, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
