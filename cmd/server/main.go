package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"book-journal/internal/archive"
	"book-journal/internal/auth"
	"book-journal/internal/config"
	"book-journal/internal/covers"
	apphttp "book-journal/internal/http"
	"book-journal/internal/repository/sqlite"
	"book-journal/internal/service"
	"book-journal/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	// Signing with a blank secret would make every token forgeable.
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	noteRepo := sqlite.NewNoteRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := noteRepo.Init(ctx); err != nil {
		logger.Fatalf("init note repository: %v", err)
	}

	userService := service.NewUserService(userRepo)
	noteService := service.NewNoteService(noteRepo)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	coverClient := covers.NewClient(covers.Options{
		SearchURL: cfg.Covers.SearchURL,
		ImageURL:  cfg.Covers.ImageURL,
		Timeout:   time.Duration(cfg.Covers.TimeoutSeconds) * time.Second,
		Logger:    logger,
	})

	var (
		storageSvc storage.Service
		archiver   archive.Manager
	)
	if cfg.Storage.Bucket != "" {
		storageSvc, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}

		archiver = archive.NewManager(archive.Config{
			Bucket:       cfg.Storage.Bucket,
			KeyPrefix:    cfg.Storage.KeyPrefix,
			FetchTimeout: 10 * time.Second,
			Logger:       logger,
		}, noteRepo, storageSvc)

		if err := archiver.Start(); err != nil {
			logger.Fatalf("start cover archive: %v", err)
		}
		if err := archiver.Resume(ctx); err != nil {
			logger.Warnf("resume cover archive: %v", err)
		}
		if err := archiver.Sweep(ctx); err != nil {
			logger.Warnf("sweep cover archive: %v", err)
		}
	} else {
		logger.Info("storage bucket not configured, cover archive disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Config{
		Users:          userService,
		Notes:          noteService,
		Tokens:         tokens,
		Covers:         coverClient,
		Archive:        archiver,
		Storage:        storageSvc,
		Bucket:         cfg.Storage.Bucket,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if archiver != nil {
		archiver.Shutdown()
	}

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
