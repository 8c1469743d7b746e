package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/studio/internal/api"
	"github.com/bilgisen/studio/internal/cache"
	"github.com/bilgisen/studio/internal/config"
	"github.com/bilgisen/studio/internal/content"
	"github.com/bilgisen/studio/internal/github"
	"github.com/bilgisen/studio/internal/logger"
	"github.com/bilgisen/studio/internal/media"
	"github.com/bilgisen/studio/internal/storage"
)

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.LogPretty,
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	// Local fallback store backing
	var kv cache.KV
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis client")
		}
		kv = redisClient
	} else {
		log.Warn().Msg("REDIS_URL not set, local fallback store is in memory only")
		kv = cache.NewMemoryClient(cfg.RedisPrefix)
	}
	defer func() {
		log.Info().Msg("Closing local store...")
		if err := kv.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing local store")
		}
	}()

	gh := github.NewClient(github.Config{
		BaseURL:    cfg.GitHubAPIURL,
		Token:      cfg.GitHubToken,
		Owner:      cfg.GitHubOwner,
		Repo:       cfg.GitHubRepo,
		Branch:     cfg.GitHubBranch,
		RetryCount: cfg.GitHubRetryCount,
		Timeout:    cfg.HTTPTimeout,
	})

	svc := content.New(
		storage.NewRemoteStore(gh, cfg.GitHubDataPath,
			storage.WithRemoteLogger(logger.For("github"))),
		storage.NewLocalStore(kv,
			storage.WithLocalLogger(logger.For("local_store"))),
		content.WithCacheTTL(cfg.CacheTTL),
		content.WithJournalSize(cfg.JournalSize),
		content.WithRemoteCheckInterval(cfg.RemoteCheckInterval),
		content.WithLogger(logger.For("content")),
	)
	if svc.IsRemoteConfigured() {
		log.Info().
			Str("repo", cfg.GitHubOwner+"/"+cfg.GitHubRepo).
			Str("branch", cfg.GitHubBranch).
			Msg("Using GitHub as content store")
	} else {
		log.Warn().Msg("GitHub is not configured, serving content from the local store")
	}

	var mediaStore *media.Store
	if cfg.R2Configured() {
		client, err := media.NewR2Client(context.Background(), media.R2Config{
			Endpoint:  cfg.R2Endpoint,
			AccountID: cfg.R2AccountID,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 client")
		}
		mediaLog := logger.For("media")
		mediaStore = media.NewStore(client, media.Config{
			Bucket:    cfg.R2Bucket,
			PublicURL: cfg.MediaPublicURL,
			MaxSize:   cfg.MaxUploadSize,
			Logger:    &mediaLog,
		})
	} else {
		log.Warn().Msg("R2 is not configured, media endpoints are disabled")
	}

	app := api.NewApp(api.NewHandlers(svc, mediaStore), api.ServerConfig{
		// Leave room for multipart framing around the largest upload.
		BodyLimit:    int(cfg.MaxUploadSize) + 1<<20,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	})

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Dur("took", time.Since(start)).Msg("Server exited properly")
}
