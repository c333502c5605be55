package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/anisalabs/anisa-platform/cmd/mainconfig"
	"github.com/anisalabs/anisa-platform/internal/account"
	"github.com/anisalabs/anisa-platform/internal/ai"
	"github.com/anisalabs/anisa-platform/internal/assistant"
	"github.com/anisalabs/anisa-platform/internal/channels/whatsapp"
	appconfig "github.com/anisalabs/anisa-platform/internal/config"
	"github.com/anisalabs/anisa-platform/internal/history"
	"github.com/anisalabs/anisa-platform/internal/jobs"
	"github.com/anisalabs/anisa-platform/internal/media"
	"github.com/anisalabs/anisa-platform/internal/observability/metrics"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting anisa-platform response worker", "env", cfg.Env)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	sqsClient := sqs.NewFromConfig(awsCfg)
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	mediaStore := media.NewStore(s3Client, cfg.MediaBucket, cfg.MediaBaseURL, media.WithLogger(logger))
	jobStore := jobs.NewStore(dynamoClient, cfg.MessageJobsTable, logger)
	accounts := account.NewStore(pool, cfg.DefaultCredits)

	var hist assistant.History = history.NewStore(db)
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		hist = history.NewCachedStore(history.NewStore(db), redis.NewClient(opts), cfg.HistoryTTL, logger)
	}

	provider, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		ChatModel:   cfg.OpenAIChatModel,
		ImageModel:  cfg.OpenAIImageModel,
		SearchModel: cfg.OpenAISearchModel,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to create AI provider", "error", err)
		os.Exit(1)
	}

	dispatcher := assistant.NewDispatcher(provider, mediaStore,
		assistant.WithDebug(cfg.RouterDebug),
		assistant.WithDispatcherLogger(logger),
	)
	orch := assistant.NewOrchestrator(hist, dispatcher, logger)
	gate := assistant.NewCreditGate(accounts, cfg.CreditsPerReply)

	waOpts := []whatsapp.ClientOption{whatsapp.WithLogger(logger)}
	if cfg.WhatsAppBaseURL != "" {
		waOpts = append(waOpts, whatsapp.WithBaseURL(cfg.WhatsAppBaseURL))
	}
	sink := whatsapp.NewSink(whatsapp.NewClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneID, waOpts...))

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	worker := assistant.NewWorker(orch, gate, sink,
		assistant.WithTranscription(provider, mediaStore),
		assistant.WithJobTracker(jobStore),
		assistant.WithMetrics(engineMetrics),
		assistant.WithCostFooter(cfg.CostFooter),
		assistant.WithWorkerLogger(logger),
	)

	queue := assistant.NewSQSQueue(sqsClient, cfg.MessageQueueURL, cfg.ReceiveWaitSecs, cfg.ReceiveBatchSize)

	// Metrics endpoint so the worker is scrapeable on its own.
	metricsSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Run(runCtx, queue) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down response worker...")
		cancel()
		select {
		case <-done:
		case <-time.After(30 * time.Second):
			logger.Error("response worker shutdown timed out")
		}
	case err := <-done:
		if err != nil && runCtx.Err() == nil {
			logger.Error("response worker stopped", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info("response worker stopped")
}
