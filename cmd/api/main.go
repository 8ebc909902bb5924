package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nartay/alumbook/internal/album"
	"github.com/nartay/alumbook/internal/auth"
	"github.com/nartay/alumbook/internal/config"
	"github.com/nartay/alumbook/internal/logger"
	"github.com/nartay/alumbook/internal/media"
	"github.com/nartay/alumbook/internal/metrics"
	"github.com/nartay/alumbook/internal/presigned"
	"github.com/nartay/alumbook/internal/server"
	"github.com/nartay/alumbook/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	zapLogger, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLogger.Fatal("load config", zap.Error(err))
	}

	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := storage.Migrate(ctx, cfg.Postgres); err != nil {
		zapLogger.Fatal("run migrations", zap.Error(err))
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		zapLogger.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		zapLogger.Fatal("connect minio", zap.Error(err))
	}

	if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
		zapLogger.Fatal("ensure bucket", zap.Error(err))
	}

	authRepo := auth.NewRepository(dbPool)
	authService := auth.NewService(authRepo, cfg.Auth)

	signer := presigned.NewService(minioClient, cfg.MinIO.Bucket, cfg.Upload.UploadWindow, cfg.Upload.ReadURLTTL)

	albumRepo := album.NewRepository(dbPool)
	mediaRepo := media.NewRepository(dbPool)

	mediaService := media.NewService(mediaRepo, signer, albumRepo, cfg.Upload, zapLogger)
	albumService := album.NewService(albumRepo, mediaService)

	sweeper := media.NewSweeper(mediaService, cfg.Upload.SweepInterval, zapLogger)
	go sweeper.Run(ctx)

	reconciler := media.NewReconciler(mediaService, cfg.Upload.ReconcileInterval, zapLogger)
	go reconciler.Run(ctx)

	router := server.NewRouter(server.Dependencies{
		Config:       cfg,
		DB:           dbPool,
		ObjectStore:  minioClient,
		AuthService:  authService,
		AlbumService: albumService,
		MediaService: mediaService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Info("alumbook API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zapLogger.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown error", zap.Error(err))
	}
}
