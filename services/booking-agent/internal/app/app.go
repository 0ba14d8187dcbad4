package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/slotbooker/libs/db"
	"github.com/md-rashed-zaman/slotbooker/libs/kafkax"
	"github.com/md-rashed-zaman/slotbooker/libs/runtime"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/mockcal"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/outbox"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/provider"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/selector"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/storage"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/submit"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/workflow"
)

// Store is what the workflow and the HTTP summary endpoints need from persistence.
type Store interface {
	workflow.ResultStore
	Recent(ctx context.Context, limit int) ([]model.BookingResult, error)
}

type App struct {
	Config    Config
	Logger    *slog.Logger
	Mock      *mockcal.Generator
	Provider  *provider.Client
	Selector  selector.Selector
	Submitter submit.Submitter
	Store     Store
	Workflow  *workflow.Workflow

	// Pool and Outbox are nil unless DATABASE_URL is set; Redis is nil unless REDIS_ADDR is set.
	Pool   *db.Pool
	Outbox *outbox.Repository
	Redis  *redis.Client
}

// Build connects the optional backends and assembles the workflow. Close releases them.
func Build(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
	loc, err := availability.LoadZone(cfg.MockTimezone)
	if err != nil {
		return nil, fmt.Errorf("mock timezone: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Mock:      mockcal.New(loc),
		Selector:  newSelector(cfg, logger),
		Submitter: newSubmitter(cfg, logger),
	}

	cache := provider.EventTypeCache(provider.NewMemoryCache())
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable; event type cache stays in memory", "err", err)
		} else {
			cache = provider.NewRedisCache(a.Redis, cfg.CacheTTL)
		}
	}
	a.Provider = provider.NewClient(cfg.ProviderBaseURL,
		provider.WithCache(cache),
		provider.WithRateLimit(cfg.ProviderRPS, int(cfg.ProviderRPS)),
		provider.WithLogger(logger),
	)

	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("db connection failed: %w", err)
		}
		a.Pool = pool
		if cfg.AutoMigrate {
			if err := storage.Migrate(ctx, pool); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		a.Outbox = outbox.NewRepository()
		a.Store = storage.NewPostgresStore(storage.NewAttemptRepository(pool), a.Outbox)
	} else {
		logger.Info("DATABASE_URL not set; recording attempts to file", "path", cfg.ResultsFile)
		a.Store = storage.NewFileStore(cfg.ResultsFile)
	}

	a.Workflow = workflow.New(workflow.Deps{
		Mock:      a.Mock,
		Source:    a.Provider,
		Selector:  a.Selector,
		Submitter: a.Submitter,
		Store:     a.Store,
		Logger:    logger,
	}, workflow.Config{
		TargetTimezone: cfg.TargetTimezone,
		RangeDays:      cfg.RangeDays,
		DateParams:     cfg.DateParams,
	})
	return a, nil
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

// ReadyChecks lists the configured backends for /readyz.
func (a *App) ReadyChecks() []runtime.ReadyCheck {
	var checks []runtime.ReadyCheck
	if a.Pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(a.Pool)})
	}
	if a.Redis != nil {
		rdb := a.Redis
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if a.Config.KafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(a.Config.KafkaBrokers)})
	}
	return checks
}

// OutboxPublisher relays attempt events when both Postgres and Kafka are configured.
func (a *App) OutboxPublisher() *outbox.Publisher {
	if a.Pool == nil {
		return nil
	}
	return outbox.NewPublisher(a.Pool, a.Outbox, a.Logger, outbox.PublisherConfig{
		Brokers:     a.Config.KafkaBrokers,
		PollEvery:   2 * time.Second,
		BatchSize:   50,
		MaxAttempts: 10,
	})
}

func newSelector(cfg Config, logger *slog.Logger) selector.Selector {
	if cfg.OpenAIKey == "" {
		logger.Info("OPENAI_API_KEY not set; picking the earliest candidate")
		return selector.Earliest{}
	}
	return selector.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger)
}

func newSubmitter(cfg Config, logger *slog.Logger) submit.Submitter {
	if cfg.DryRun {
		return submit.DryRun{}
	}
	if cfg.AnchorKey == "" {
		logger.Warn("ANCHOR_API_KEY not set; bookings run as dry runs")
		return submit.DryRun{}
	}
	return submit.NewAnchor(cfg.AnchorBaseURL, cfg.AnchorKey,
		submit.WithMaxRetries(cfg.MaxRetries),
		submit.WithLogger(logger),
	)
}
