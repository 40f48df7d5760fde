package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	PGDSN        string
	MongoURI     string
	RedisAddr    string
	RabbitURL    string
	OTLPEndpoint string

	SummaryCacheTTL time.Duration
	IdempotencyTTL  time.Duration
	OutboxInterval  time.Duration
	OutboxBatch     int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:     envOr("HTTP_ADDR", ":8080"),
		PGDSN:        os.Getenv("PG_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		SummaryCacheTTL: durationOr("SUMMARY_CACHE_TTL", 30*time.Second),
		IdempotencyTTL:  durationOr("IDEMPOTENCY_TTL", time.Hour),
		OutboxInterval:  durationOr("OUTBOX_INTERVAL", 5*time.Second),
		OutboxBatch:     intOr("OUTBOX_BATCH", 50),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: intOr("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: envOr("MAIL_FROM", "tickets@example.com"),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d == 0 {
		return def
	}
	return d
}

func intOr(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
