package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotbooker/libs/runtime"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/selector"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/storage"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/submit"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DEFAULT_BOOKING_URL", "TARGET_TIMEZONE", "MOCK_TIMEZONE", "OPENAI_API_KEY", "ANCHOR_API_KEY",
		"DATABASE_URL", "REDIS_ADDR", "KAFKA_BROKERS", "PORT", "GRPC_PORT", "DEFAULT_NUM_RUNS",
		"DEFAULT_MAX_RETRIES", "CORS_ALLOWED_ORIGINS", "DRY_RUN",
	} {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.MockTimezone != DefaultMockTimezone {
		t.Fatalf("expected mock timezone %s, got %s", DefaultMockTimezone, cfg.MockTimezone)
	}
	if cfg.NumRuns != 5 || cfg.MaxRetries != 5 {
		t.Fatalf("expected 5 runs and 5 retries, got %d and %d", cfg.NumRuns, cfg.MaxRetries)
	}
	if cfg.HTTPPort != "8090" || cfg.GRPCPort != "9090" {
		t.Fatalf("unexpected ports %s/%s", cfg.HTTPPort, cfg.GRPCPort)
	}
	if !cfg.DateParams {
		t.Fatalf("expected date params on by default")
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARGET_TIMEZONE", "Europe/Berlin")
	t.Setenv("DEFAULT_NUM_RUNS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("CONTACT_NAME", "Ada Lovelace")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.TargetTimezone != "Europe/Berlin" || cfg.NumRuns != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.Contact.Name != "Ada Lovelace" {
		t.Fatalf("expected contact name from env, got %q", cfg.Contact.Name)
	}
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"MOCK_TIMEZONE":       "Mars/Olympus",
		"TARGET_TIMEZONE":     "Nowhere/Land",
		"DEFAULT_NUM_RUNS":    "0",
		"DEFAULT_MAX_RETRIES": "-1",
		"PORT":                "99999",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := ConfigFromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestBuild_LocalFallbacks(t *testing.T) {
	clearEnv(t)
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	cfg.ResultsFile = filepath.Join(t.TempDir(), "results.jsonl")

	a, err := Build(context.Background(), cfg, runtime.NopLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if _, ok := a.Selector.(selector.Earliest); !ok {
		t.Fatalf("expected earliest selector without an API key, got %T", a.Selector)
	}
	if _, ok := a.Submitter.(submit.DryRun); !ok {
		t.Fatalf("expected dry-run submitter without an API key, got %T", a.Submitter)
	}
	if _, ok := a.Store.(*storage.FileStore); !ok {
		t.Fatalf("expected file store without DATABASE_URL, got %T", a.Store)
	}
	if a.OutboxPublisher() != nil {
		t.Fatalf("expected no outbox publisher without a database")
	}
	if len(a.ReadyChecks()) != 0 {
		t.Fatalf("expected no ready checks, got %d", len(a.ReadyChecks()))
	}
	if a.Workflow == nil || a.Mock == nil || a.Provider == nil {
		t.Fatalf("app not fully assembled")
	}
}

func TestBuild_KeysSelectRemoteCollaborators(t *testing.T) {
	clearEnv(t)
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	cfg.ResultsFile = filepath.Join(t.TempDir(), "results.jsonl")
	cfg.OpenAIKey = "sk-test"
	cfg.AnchorKey = "anchor-test"

	a, err := Build(context.Background(), cfg, runtime.NopLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if _, ok := a.Selector.(*selector.OpenAI); !ok {
		t.Fatalf("expected openai selector, got %T", a.Selector)
	}
	if _, ok := a.Submitter.(*submit.Anchor); !ok {
		t.Fatalf("expected anchor submitter, got %T", a.Submitter)
	}

	cfg.DryRun = true
	b, err := Build(context.Background(), cfg, runtime.NopLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer b.Close()
	if _, ok := b.Submitter.(submit.DryRun); !ok {
		t.Fatalf("expected dry run to win over the anchor key, got %T", b.Submitter)
	}
}

func emptyProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/booking/event_types/lookup", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uuid": "evt-1"}`))
	})
	mux.HandleFunc("/api/booking/event_types/evt-1/calendar/range", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"availability_timezone": "America/Los_Angeles", "days": []}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func buildLocal(t *testing.T) *App {
	t.Helper()
	clearEnv(t)
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	cfg.ResultsFile = filepath.Join(t.TempDir(), "results.jsonl")
	cfg.ProviderBaseURL = emptyProvider(t).URL
	cfg.ProviderRPS = 0
	cfg.Contact = model.Contact{Name: "Default Name", Email: "default@example.com"}

	a, err := Build(context.Background(), cfg, runtime.NopLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestRequest_FillsDefaults(t *testing.T) {
	a := buildLocal(t)
	a.Config.BookingURL = "https://calendly.com/jane/intro"

	req := a.Request("  ", "Europe/Paris", model.Contact{Email: "x@example.com"})
	if req.BookingURL != "https://calendly.com/jane/intro" {
		t.Fatalf("expected default booking url, got %q", req.BookingURL)
	}
	if req.Contact.Name != "Default Name" || req.Contact.Email != "x@example.com" {
		t.Fatalf("unexpected contact %+v", req.Contact)
	}
	if req.TargetTimezone != "Europe/Paris" {
		t.Fatalf("unexpected timezone %q", req.TargetTimezone)
	}
}

func TestHandleBookingRequested_RecordsAttempt(t *testing.T) {
	a := buildLocal(t)
	ctx := context.Background()

	msg := kafka.Message{
		Key:   []byte("req-1"),
		Value: []byte(`{"booking_url": "https://calendly.com/jane/intro"}`),
	}
	if err := a.HandleBookingRequested(ctx, msg); err != nil {
		t.Fatalf("HandleBookingRequested: %v", err)
	}

	recent, err := a.Store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d", len(recent))
	}
	if recent[0].Success {
		t.Fatalf("expected a failed attempt without provider availability")
	}
	if recent[0].RequestID != "req-1" {
		t.Fatalf("expected request id from message key, got %q", recent[0].RequestID)
	}
}

func TestHandleBookingRequested_DryRunAndInvalid(t *testing.T) {
	a := buildLocal(t)
	ctx := context.Background()

	for _, raw := range []string{
		`{"booking_url": "https://calendly.com/jane/intro", "dry_run": true}`,
		`{"booking_url": ""}`,
		`not json`,
	} {
		if err := a.HandleBookingRequested(ctx, kafka.Message{Value: []byte(raw)}); err != nil {
			t.Fatalf("HandleBookingRequested(%s): %v", raw, err)
		}
	}

	recent, err := a.Store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected nothing recorded, got %d attempts", len(recent))
	}
}
