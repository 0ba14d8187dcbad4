// Package app assembles the booking agent from environment configuration.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbooker/libs/config"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/submit"
)

const (
	DefaultServiceName     = "booking-agent"
	DefaultProviderBaseURL = "https://calendly.com"
	DefaultMockTimezone    = "America/Los_Angeles"
	DefaultResultsFile     = "eval/booking_results.jsonl"
	DefaultWatchSchedule   = "*/30 9-17 * * MON-FRI"
	DefaultConsumeTopic    = "booking.requested.v1"
)

type Config struct {
	ServiceName string

	BookingURL      string
	ProviderBaseURL string
	TargetTimezone  string
	MockTimezone    string
	DateParams      bool
	RangeDays       int
	ProviderRPS     float64

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	AnchorKey     string
	AnchorBaseURL string
	MaxRetries    int
	DryRun        bool

	DatabaseURL   string
	AutoMigrate   bool
	ResultsFile   string
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBrokers string
	ConsumeTopic string
	GroupID      string

	OperatorSecret string
	HTTPPort       string
	GRPCPort       string
	RateLimit      int
	CORSOrigins    []string

	WatchSchedule string
	NumRuns       int

	Contact model.Contact
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		ServiceName:     config.String("SERVICE_NAME", DefaultServiceName),
		BookingURL:      config.String("DEFAULT_BOOKING_URL", ""),
		ProviderBaseURL: config.String("PROVIDER_BASE_URL", DefaultProviderBaseURL),
		TargetTimezone:  config.String("TARGET_TIMEZONE", ""),
		MockTimezone:    config.String("MOCK_TIMEZONE", DefaultMockTimezone),
		DateParams:      config.Bool("BOOKING_DATE_PARAMS", true),
		OpenAIKey:       config.String("OPENAI_API_KEY", ""),
		OpenAIModel:     config.String("OPENAI_MODEL", ""),
		OpenAIBaseURL:   config.String("OPENAI_BASE_URL", ""),
		AnchorKey:       config.String("ANCHOR_API_KEY", ""),
		AnchorBaseURL:   config.String("ANCHOR_BASE_URL", submit.DefaultAnchorBaseURL),
		DryRun:          config.Bool("DRY_RUN", false),
		DatabaseURL:     config.String("DATABASE_URL", ""),
		AutoMigrate:     config.Bool("DB_AUTO_MIGRATE", true),
		ResultsFile:     config.String("RESULTS_FILE", DefaultResultsFile),
		RedisAddr:       config.String("REDIS_ADDR", ""),
		RedisPassword:   config.String("REDIS_PASSWORD", ""),
		KafkaBrokers:    config.String("KAFKA_BROKERS", ""),
		ConsumeTopic:    config.String("KAFKA_CONSUME_TOPIC", DefaultConsumeTopic),
		GroupID:         config.String("KAFKA_GROUP_ID", DefaultServiceName),
		OperatorSecret:  config.String("OPERATOR_JWT_SECRET", ""),
		WatchSchedule:   config.String("WATCH_SCHEDULE", DefaultWatchSchedule),
		CORSOrigins:     splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
		Contact: model.Contact{
			Name:  config.String("CONTACT_NAME", ""),
			Email: config.String("CONTACT_EMAIL", ""),
			Phone: config.String("CONTACT_PHONE", ""),
			Notes: config.String("CONTACT_NOTES", ""),
		},
	}

	var err error
	if cfg.HTTPPort, err = config.Port("PORT", "8090"); err != nil {
		return Config{}, err
	}
	if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
		return Config{}, err
	}
	if cfg.NumRuns, err = config.Int("DEFAULT_NUM_RUNS", 5); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries, err = config.Int("DEFAULT_MAX_RETRIES", 5); err != nil {
		return Config{}, err
	}
	if cfg.RangeDays, err = config.Int("PROVIDER_RANGE_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = config.Int("HTTP_RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return Config{}, err
	}
	rps, err := config.Int("PROVIDER_REQUESTS_PER_SECOND", 2)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderRPS = float64(rps)
	if cfg.CacheTTL, err = config.Duration("EVENT_TYPE_CACHE_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if _, err := availability.LoadZone(c.MockTimezone); err != nil {
		return fmt.Errorf("MOCK_TIMEZONE: %w", err)
	}
	if c.TargetTimezone != "" {
		if _, err := availability.LoadZone(c.TargetTimezone); err != nil {
			return fmt.Errorf("TARGET_TIMEZONE: %w", err)
		}
	}
	if c.NumRuns < 1 {
		return fmt.Errorf("DEFAULT_NUM_RUNS must be at least 1 (got %d)", c.NumRuns)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("DEFAULT_MAX_RETRIES must not be negative (got %d)", c.MaxRetries)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
