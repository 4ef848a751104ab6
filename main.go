package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab-equipment-api/config"
	"lab-equipment-api/controllers"
	"lab-equipment-api/database"
	"lab-equipment-api/gcs"
	"lab-equipment-api/jobs"
	"lab-equipment-api/logger"
	"lab-equipment-api/middleware"
	"lab-equipment-api/routes"
	"lab-equipment-api/services"
	"lab-equipment-api/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	client, err := db.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer db.Disconnect(client, logr)
	logr.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))

	reports := db.NewReportStore(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection), cfg.Mongo.Timeout)
	if err := reports.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	photos, uploadsDir, closePhotos, err := newPhotoStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePhotos()
	logr.Info("photo store ready", zap.String("backend", cfg.Photos.Backend))

	if cfg.Cleanup.Schedule != "" {
		sweeper, err := jobs.NewPhotoCleanup(photos, reports, cfg.Cleanup.Grace, logr).Start(cfg.Cleanup.Schedule)
		if err != nil {
			return err
		}
		defer sweeper.Stop()
		logr.Info("photo cleanup scheduled", zap.String("schedule", cfg.Cleanup.Schedule))
	}

	svc := services.NewReportService(reports, photos, logr)
	router := routes.NewRouter(routes.Dependencies{
		Equipment:      controllers.NewEquipmentController(svc, logr, cfg.Photos.MaxBytes),
		Health:         controllers.NewHealthController(db.NewPinger(client, 2*time.Second)),
		Metrics:        middlewares.NewMetrics(),
		Logger:         logr,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxPhotoBytes:  cfg.Photos.MaxBytes,
		UploadsDir:     uploadsDir,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPhotoStore builds the configured backend. uploadsDir is empty when
// photos are not served by this process.
func newPhotoStore(ctx context.Context, cfg *config.Config) (storage.PhotoStore, string, func(), error) {
	if cfg.Photos.Backend == config.PhotoBackendGCS {
		client, err := gcs.NewClient(ctx, cfg.Photos.CredentialsFile, cfg.Photos.GCSBucket)
		if err != nil {
			return nil, "", nil, err
		}
		closeFn := func() { _ = client.Close() }
		return storage.NewGCSPhotoStore(client, cfg.Photos.GCSBucket, cfg.Photos.GCSPrefix, cfg.Photos.MaxBytes), "", closeFn, nil
	}

	local, err := storage.NewLocalPhotoStore(cfg.Photos.UploadDir, cfg.Photos.PublicBaseURL, cfg.Photos.MaxBytes)
	if err != nil {
		return nil, "", nil, err
	}
	return local, local.Dir(), func() {}, nil
}
