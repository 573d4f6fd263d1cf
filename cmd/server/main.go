package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"marketmind/internal/app"
	"marketmind/internal/config"
	"marketmind/internal/ratelimit"
	"marketmind/internal/server"
	"marketmind/internal/util"
	"marketmind/pkg/ai"
	"marketmind/pkg/jobs"
	"marketmind/pkg/storage"
	"marketmind/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres store: %v", err)
	}
	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	var jobLog app.JobLog
	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		redisLog, err := jobs.NewRedisJobLog(jobs.RedisJobLogConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatalf("failed to init job log: %v", err)
		}
		jobLog = redisLog
		limiter, err = ratelimit.NewFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	} else {
		slog.Warn("redis not configured; job log and rate limiting disabled")
	}

	chatClient := ai.NewOllamaClient(cfg.OllamaURL, time.Duration(cfg.ChatTimeoutSeconds)*time.Second)
	refineClient := ai.NewOllamaClient(cfg.OllamaURL, time.Duration(cfg.RefineTimeoutSeconds)*time.Second)

	appCore, err := app.New(app.Config{
		Store:              dataStore,
		Objects:            objects,
		Chat:               ai.NewOllamaCompleter(chatClient, cfg.OllamaModel),
		Refiner:            ai.NewOllamaCompleter(refineClient, cfg.OllamaModel),
		Images:             ai.NewStableDiffusionClient(cfg.ImageAPIURL, time.Duration(cfg.ImageTimeoutSeconds)*time.Second),
		Speech:             ai.NewTTSClient(cfg.TTSURL, time.Duration(cfg.TTSTimeoutSeconds)*time.Second),
		Video:              ai.NewComfyClient(cfg.VideoURL, time.Duration(cfg.VideoTimeoutSeconds)*time.Second),
		Jobs:               jobLog,
		WorkflowPath:       cfg.WorkflowTemplatePath,
		WorkflowImageNode:  cfg.WorkflowImageNode,
		WorkflowOutputNode: cfg.WorkflowOutputNode,
		HistoryLimit:       cfg.HistoryLimit,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{App: appCore, Limiter: limiter})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("marketmind server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
