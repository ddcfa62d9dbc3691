package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/blog-engagement-api/internal/api"
	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/database"
	"github.com/blog-engagement-api/internal/realtime"
	"github.com/blog-engagement-api/internal/repository"
	"github.com/blog-engagement-api/internal/service"
	"github.com/blog-engagement-api/pkg/logger"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to an optional .env file")
	migrationsPath := flag.String("migrations", "", "migrations directory (overrides MIGRATIONS_PATH)")
	migrateOnly := flag.Bool("migrate-only", false, "apply migrations and exit (postgres store)")
	migrateDown := flag.Bool("migrate-down", false, "roll back one migration and exit (postgres store)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Str("service", logger.ServiceName).Logger()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *migrationsPath != "" {
		cfg.Database.MigrationsPath = *migrationsPath
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info().Str("store", cfg.Store.Driver).Msg("Starting Blog Engagement API server...")

	// Initialize the record store
	var repos *repository.Repositories
	var closeStore func()

	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		if *migrateOnly || *migrateDown {
			log.Fatal().Msg("Migrations only apply to the postgres store")
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
		mdb, err := database.NewMongo(ctx, &cfg.Mongo, log)
		if err != nil {
			cancel()
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		if err := mdb.EnsureIndexes(ctx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}
		cancel()

		repos = repository.NewMongo(mdb)
		closeStore = func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
			defer cancel()
			if err := mdb.Close(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
			}
		}

	default:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}

		if *migrateDown {
			if err := db.MigrateDown(cfg.Database.MigrationsPath); err != nil {
				log.Fatal().Err(err).Msg("Failed to roll back migration")
			}
			db.Close()
			return
		}

		// Run migrations
		if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		if *migrateOnly {
			db.Close()
			return
		}

		repos = repository.New(db)
		closeStore = func() { db.Close() }
	}
	defer closeStore()

	// Realtime fan-out doubles as the services' event publisher
	hub := realtime.NewHub(log, cfg.Server.AllowedOrigins)

	// Initialize services
	services := service.NewServices(repos, cfg, log, hub)

	// Initialize router
	router := api.NewRouter(services, hub, cfg, log)

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

	// Hijacked websocket connections are not tracked by Shutdown
	hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited gracefully")
}
