// @title           Image Translator Backend API
// @version         1.0.0
// @description     Backend API for translating text in images and erasing regions with the PicTech image service. It keeps canvas sessions with undo/redo and charges one credit per erase.

// @BasePath  /api

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"image-translator-backend/internal/config"
	"image-translator-backend/internal/database"
	"image-translator-backend/internal/events"
	"image-translator-backend/internal/filestore"
	"image-translator-backend/internal/handlers"
	"image-translator-backend/internal/janitor"
	"image-translator-backend/internal/ledger"
	"image-translator-backend/internal/pictech"
	"image-translator-backend/internal/repository"
	"image-translator-backend/internal/services"
	"image-translator-backend/internal/sessions"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	files, err := newFileStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize file store: %w", err)
	}

	var (
		repo    services.Repository
		credits ledger.Ledger
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := database.NewMigrator(db, log).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		repo = database.NewRequestStore(db)
		credits = database.NewLedger(db, cfg.InitialCredits)
		log.Info("database ready, migrations applied")
	} else {
		log.Warn("DATABASE_URL not set, requests and credits are kept in memory")
		repo = repository.NewMemoryStore()
		credits = ledger.NewMemory(cfg.InitialCredits)
	}

	var backend sessions.Backend
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		backend = sessions.NewRedisBackend(client, cfg.SessionTTL)
	} else {
		log.Warn("REDIS_URL not set, canvas sessions are kept in memory")
		backend = sessions.NewMemoryBackend()
	}
	sessionStore := sessions.NewStore(backend)

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("failed to close event publisher")
		}
	}()

	adapter := pictech.NewClient(pictech.Options{
		BaseURL:   cfg.PicTechBaseURL,
		APIKey:    cfg.PicTechAPIKey,
		Secret:    cfg.PicTechSecret,
		AsyncMode: cfg.InpaintMode == config.InpaintAsync,
		Logger:    log,
	})

	orchestrator := services.NewOrchestrator(services.Options{
		Adapter:       adapter,
		Repo:          repo,
		Files:         files,
		Ledger:        credits,
		Sessions:      sessionStore,
		Events:        publisher,
		Log:           log,
		PollAttempts:  cfg.PollMaxAttempts,
		PollBaseDelay: cfg.PollBaseDelay,
	})

	router := handlers.NewRouter(handlers.Dependencies{
		Config:   cfg,
		Service:  orchestrator,
		Sessions: sessionStore,
		Ledger:   credits,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"port":         cfg.Port,
			"inpaint_mode": cfg.InpaintMode,
			"storage":      cfg.StorageBackend,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return janitor.New(files, cfg.FileRetention, cfg.JanitorInterval, log).Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newFileStore(cfg *config.Config) (filestore.Store, error) {
	if cfg.StorageBackend == config.StorageSupabase {
		return filestore.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseStorageBucket)
	}
	return filestore.NewLocalStore(cfg.UploadDir)
}
