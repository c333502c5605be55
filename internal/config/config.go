package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	HistoryTTL    time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	MessageQueueURL     string
	UseMemoryQueue      bool
	MessageJobsTable    string
	MediaBucket         string
	MediaBaseURL        string

	WorkerCount      int
	ReceiveWaitSecs  int
	ReceiveBatchSize int

	OpenAIAPIKey      string
	OpenAIChatModel   string
	OpenAIImageModel  string
	OpenAISearchModel string
	RouterDebug       bool

	DefaultCredits  int
	CreditsPerReply int

	WhatsAppToken       string
	WhatsAppPhoneID     string
	WhatsAppVerifyToken string
	WhatsAppBaseURL     string

	CostFooter bool

	StripeSecretKey string
	StripeDryRun    bool

	AdminJWTSecret string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	OperatorEmail     string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		HistoryTTL:    getEnvAsDuration("HISTORY_CACHE_TTL", 24*time.Hour),

		AWSRegion:           getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		MessageQueueURL:     getEnv("MESSAGE_QUEUE_URL", ""),
		UseMemoryQueue:      getEnvAsBool("USE_MEMORY_QUEUE", false),
		MessageJobsTable:    getEnv("MESSAGE_JOBS_TABLE", "message_jobs"),
		MediaBucket:         getEnv("MEDIA_BUCKET", ""),
		MediaBaseURL:        getEnv("MEDIA_BASE_URL", ""),

		WorkerCount:      getEnvAsInt("WORKER_COUNT", 2),
		ReceiveWaitSecs:  getEnvAsInt("RECEIVE_WAIT_SECONDS", 2),
		ReceiveBatchSize: getEnvAsInt("RECEIVE_BATCH_SIZE", 5),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIChatModel:   getEnv("OPENAI_CHAT_MODEL", "gpt-4.1-nano"),
		OpenAIImageModel:  getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		OpenAISearchModel: getEnv("OPENAI_SEARCH_MODEL", "gpt-4o-mini-search-preview"),
		RouterDebug:       getEnvAsBool("ROUTER_DEBUG", false),

		DefaultCredits:  getEnvAsInt("DEFAULT_CREDITS", 20),
		CreditsPerReply: getEnvAsInt("CREDITS_PER_REPLY", 1),

		WhatsAppToken:       getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneID:     getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppVerifyToken: getEnv("WEBHOOK_VERIFY_TOKEN", ""),
		WhatsAppBaseURL:     getEnv("WHATSAPP_BASE_URL", ""),

		CostFooter: getEnvAsBool("COST_FOOTER", false),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		StripeDryRun:    getEnvAsBool("STRIPE_DRY_RUN", false),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Anisa"),
		OperatorEmail:     getEnv("OPERATOR_EMAIL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
