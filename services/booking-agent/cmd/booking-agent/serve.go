package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotbooker/libs/auth"
	"github.com/md-rashed-zaman/slotbooker/libs/httpx"
	otelx "github.com/md-rashed-zaman/slotbooker/libs/otel"
	"github.com/md-rashed-zaman/slotbooker/libs/runtime"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/app"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/consumer"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/grpcserver"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/handlers"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/inbox"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/watch"
)

func (c *cli) serveCmd() *cobra.Command {
	var withWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, gRPC health and the Kafka booking consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			shutdown := c.setupTracing(ctx)
			defer shutdown()

			a, err := c.build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			c.startBackground(ctx, a)
			if withWatch {
				s, err := c.scheduler(a)
				if err != nil {
					return err
				}
				go s.Run(ctx)
			}
			return c.serveHTTP(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&withWatch, "watch", false, "also book on WATCH_SCHEDULE")
	return cmd
}

func (c *cli) watchCmd() *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Book on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schedule != "" {
				c.cfg.WatchSchedule = schedule
			}
			ctx := cmd.Context()
			shutdown := c.setupTracing(ctx)
			defer shutdown()

			a, err := c.build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := c.scheduler(a)
			if err != nil {
				return err
			}
			if p := a.OutboxPublisher(); p != nil {
				go p.Run(ctx)
			}
			s.Run(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron spec (default WATCH_SCHEDULE)")
	return cmd
}

func (c *cli) setupTracing(ctx context.Context) func() {
	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(c.cfg.ServiceName))
	if err != nil {
		c.logger.Error("otel setup failed", "err", err)
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}
}

// scheduler books the default request on WATCH_SCHEDULE in the mock calendar's zone.
func (c *cli) scheduler(a *app.App) (*watch.Scheduler, error) {
	req := a.Request("", "", a.Config.Contact)
	if req.BookingURL == "" {
		return nil, errMissingBookingURL
	}
	loc, err := availability.LoadZone(a.Config.MockTimezone)
	if err != nil {
		return nil, err
	}
	s := watch.New(c.logger, loc)
	err = s.Add(a.Config.WatchSchedule, "book", func(ctx context.Context) error {
		_, err := a.Workflow.Run(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// startBackground launches the gRPC health server, the outbox relay and the booking consumer.
func (c *cli) startBackground(ctx context.Context, a *app.App) {
	var checks []grpcserver.Check
	for _, rc := range a.ReadyChecks() {
		checks = append(checks, grpcserver.Check(rc.Check))
	}
	if _, err := grpcserver.New(c.logger, 10*time.Second, checks...).Start(ctx, ":"+a.Config.GRPCPort); err != nil {
		c.logger.Error("grpc listen failed", "err", err, "port", a.Config.GRPCPort)
	}

	if p := a.OutboxPublisher(); p != nil {
		go p.Run(ctx)
	}

	if a.Pool == nil || a.Config.KafkaBrokers == "" || a.Config.ConsumeTopic == "" {
		c.logger.Info("booking consumer disabled (needs DATABASE_URL and KAFKA_BROKERS)")
		return
	}
	cons := consumer.New(c.logger, inbox.NewRepository(a.Pool), consumer.Config{
		Brokers: a.Config.KafkaBrokers,
		GroupID: a.Config.GroupID,
		Topic:   a.Config.ConsumeTopic,
	}, a.HandleBookingRequested)
	go cons.Run(ctx)
}

func (c *cli) serveHTTP(ctx context.Context, a *app.App) error {
	logger := c.logger
	mux := runtime.NewBaseMuxWithReady(a.ReadyChecks()...)
	h := handlers.NewBookingHandler(a.Workflow, a.Mock, a.Store, handlers.Defaults{
		BookingURL: a.Config.BookingURL,
		Contact:    a.Config.Contact,
	}, logger)
	if a.Config.OperatorSecret == "" {
		logger.Warn("OPERATOR_JWT_SECRET not set; booking endpoints are unauthenticated")
	}
	handlers.Register(mux, h, httpx.RequireBearer(a.Config.OperatorSecret, auth.RoleOperator))

	limiter := httpx.NewRateLimiter(a.Config.RateLimit, time.Minute).Middleware()
	if a.Redis != nil {
		limiter = httpx.NewRedisRateLimiter(a.Redis, a.Config.RateLimit, time.Minute, "slotbooker:ratelimit").Middleware(logger, true)
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: a.Config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		limiter,
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking-agent")
	srv := &http.Server{
		Addr:              ":" + a.Config.HTTPPort,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}
