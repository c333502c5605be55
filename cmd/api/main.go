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
	"github.com/anisalabs/anisa-platform/internal/api/router"
	"github.com/anisalabs/anisa-platform/internal/assistant"
	"github.com/anisalabs/anisa-platform/internal/channels/whatsapp"
	appconfig "github.com/anisalabs/anisa-platform/internal/config"
	"github.com/anisalabs/anisa-platform/internal/history"
	"github.com/anisalabs/anisa-platform/internal/http/handlers"
	"github.com/anisalabs/anisa-platform/internal/jobs"
	"github.com/anisalabs/anisa-platform/internal/media"
	"github.com/anisalabs/anisa-platform/internal/notify"
	"github.com/anisalabs/anisa-platform/internal/observability/metrics"
	"github.com/anisalabs/anisa-platform/internal/payments"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting anisa-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

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
	waClient := whatsapp.NewClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneID, waOpts...)
	sink := whatsapp.NewSink(waClient)

	stripeService := payments.NewStripeService(
		cfg.StripeSecretKey,
		cfg.PublicBaseURL+"/payments/success?session_id={CHECKOUT_SESSION_ID}",
		cfg.PublicBaseURL+"/payments/cancel",
		logger,
	).WithDryRun(cfg.StripeDryRun)

	var notifier payments.Notifier
	sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	if sender != nil {
		if pn := notify.NewPaymentNotifier(sender, cfg.OperatorEmail); pn != nil {
			notifier = pn
		}
	}

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	// A memory queue keeps everything in one process for local
	// development; the worker loop runs alongside the HTTP server.
	var queue assistant.Queue
	var publisher assistant.Publisher
	if cfg.UseMemoryQueue {
		memQueue := assistant.NewMemoryQueue(30 * time.Second)
		queue = memQueue
		publisher = memQueue
	} else {
		sqsQueue := assistant.NewSQSQueue(sqsClient, cfg.MessageQueueURL, cfg.ReceiveWaitSecs, cfg.ReceiveBatchSize)
		publisher = sqsQueue
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if queue != nil {
		worker := assistant.NewWorker(orch, gate, sink,
			assistant.WithTranscription(provider, mediaStore),
			assistant.WithJobTracker(jobStore),
			assistant.WithMetrics(engineMetrics),
			assistant.WithCostFooter(cfg.CostFooter),
			assistant.WithWorkerLogger(logger),
		)
		go func() {
			if err := worker.Run(runCtx, queue); err != nil && runCtx.Err() == nil {
				logger.Error("embedded worker stopped", "error", err)
			}
		}()
	}

	webhookHandler := handlers.NewWebhookHandler(
		cfg.WhatsAppVerifyToken,
		waClient,
		mediaStore,
		publisher,
		jobStore,
		stripeService,
		logger,
	)
	chatHandler := handlers.NewChatHandler(orch, jobStore, logger)
	paymentsHandler := payments.NewHandler(stripeService, gate, waClient, notifier, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		WebhookHandler:  webhookHandler,
		ChatHandler:     chatHandler,
		PaymentsHandler: paymentsHandler,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminJWTSecret:  cfg.AdminJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
