package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
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
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
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

	worker := assistant.NewWorker(orch, gate, sink,
		assistant.WithTranscription(provider, mediaStore),
		assistant.WithJobTracker(jobStore),
		assistant.WithCostFooter(cfg.CostFooter),
		assistant.WithWorkerLogger(logger),
	)

	lambda.Start(func(ctx context.Context, evt events.SQSEvent) (events.SQSEventResponse, error) {
		return handle(ctx, worker, evt)
	})
}

// handle fans the batch out through the worker and maps each failed
// record onto a partial batch failure so SQS redelivers only those
// messages.
func handle(ctx context.Context, worker *assistant.Worker, evt events.SQSEvent) (events.SQSEventResponse, error) {
	msgs := make([]assistant.QueueMessage, 0, len(evt.Records))
	for _, record := range evt.Records {
		msgs = append(msgs, assistant.QueueMessage{ID: record.MessageId, Body: []byte(record.Body)})
	}

	var resp events.SQSEventResponse
	for _, id := range worker.ProcessBatch(ctx, msgs) {
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
			ItemIdentifier: id,
		})
	}
	return resp, nil
}
