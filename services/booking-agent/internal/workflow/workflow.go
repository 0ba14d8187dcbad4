// Package workflow runs one booking attempt end to end: build both calendars, find the
// overlap, pick a slot, submit the form and record the outcome.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	otelx "github.com/md-rashed-zaman/slotbooker/libs/otel"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/candidate"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/provider"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/selector"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/submit"
)

const tracerName = "booking-agent/workflow"

var ErrNoAvailability = errors.New("no matching availability")

type MockSource interface {
	Generate() model.MockCalendar
}

type CalendarSource interface {
	Fetch(ctx context.Context, profile, event, tz string, start time.Time, days int) (model.ProviderCalendar, error)
}

type ResultStore interface {
	Record(ctx context.Context, res model.BookingResult) error
	Summary(ctx context.Context) (model.SuccessRate, error)
}

type Config struct {
	// TargetTimezone is the common zone both calendars are unified into. Empty means the
	// mock calendar's zone.
	TargetTimezone string
	RangeDays      int
	DateParams     bool
}

type Deps struct {
	Mock      MockSource
	Source    CalendarSource
	Selector  selector.Selector
	Submitter submit.Submitter
	Store     ResultStore
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

type Workflow struct {
	mock      MockSource
	source    CalendarSource
	selector  selector.Selector
	submitter submit.Submitter
	store     ResultStore
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
	cfg       Config
}

func New(deps Deps, cfg Config) *Workflow {
	w := &Workflow{
		mock:      deps.Mock,
		source:    deps.Source,
		selector:  deps.Selector,
		submitter: deps.Submitter,
		store:     deps.Store,
		log:       deps.Logger,
		now:       deps.Now,
		newID:     deps.NewID,
		cfg:       cfg,
	}
	if w.selector == nil {
		w.selector = selector.Earliest{}
	}
	if w.submitter == nil {
		w.submitter = submit.DryRun{}
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.newID == nil {
		w.newID = uuid.NewString
	}
	if w.cfg.RangeDays <= 0 {
		w.cfg.RangeDays = provider.DefaultRangeDays
	}
	return w
}

type Request struct {
	RequestID      string        `json:"request_id,omitempty"`
	BookingURL     string        `json:"booking_url"`
	TargetTimezone string        `json:"target_timezone,omitempty"`
	Contact        model.Contact `json:"contact"`
}

// Plan is everything computed before a slot is chosen.
type Plan struct {
	Event      candidate.EventRef    `json:"event"`
	Timezone   string                `json:"timezone"`
	Mock       model.UnifiedCalendar `json:"mock"`
	Provider   model.UnifiedCalendar `json:"provider"`
	Overlap    model.OverlapResult   `json:"overlap"`
	Candidates []candidate.Candidate `json:"candidates"`
	Listing    string                `json:"listing"`
}

// Overlap builds both calendars and intersects them. An empty overlap returns the plan
// together with ErrNoAvailability.
func (w *Workflow) Overlap(ctx context.Context, req Request) (plan Plan, err error) {
	ctx, span := otelx.StartSpan(ctx, tracerName, "workflow.overlap")
	defer func() { otelx.EndSpan(span, err) }()

	plan.Event, err = candidate.ParseEventURL(req.BookingURL)
	if err != nil {
		return plan, err
	}
	span.SetAttributes(
		attribute.String("booking.profile", plan.Event.Profile),
		attribute.String("booking.event", plan.Event.Event),
	)

	mock := w.mock.Generate()
	target := firstNonEmpty(req.TargetTimezone, w.cfg.TargetTimezone, mock.Timezone)
	if _, err = availability.LoadZone(target); err != nil {
		return plan, err
	}
	plan.Timezone = target

	if plan.Mock, err = availability.Unify(mock.Calendar, target); err != nil {
		return plan, fmt.Errorf("unify mock calendar: %w", err)
	}

	prov, err := w.fetchProvider(ctx, plan.Event, target, mock.WeekOf)
	if err != nil {
		return plan, err
	}
	if plan.Provider, err = availability.Unify(prov.Calendar, target); err != nil {
		return plan, fmt.Errorf("unify provider calendar: %w", err)
	}

	plan.Overlap = availability.Intersect(plan.Mock, plan.Provider)
	span.SetAttributes(
		attribute.Int("calendar.mock_slots", plan.Mock.SlotCount()),
		attribute.Int("calendar.provider_slots", plan.Provider.SlotCount()),
		attribute.Int("calendar.overlap_slots", plan.Overlap.SlotCount()),
	)
	w.log.Info("overlap computed",
		"timezone", target,
		"mock_slots", plan.Mock.SlotCount(),
		"provider_slots", plan.Provider.SlotCount(),
		"overlap_slots", plan.Overlap.SlotCount(),
	)
	if plan.Overlap.Empty() {
		return plan, ErrNoAvailability
	}

	if plan.Candidates, err = candidate.List(plan.Overlap); err != nil {
		return plan, err
	}
	plan.Listing = candidate.Format(plan.Candidates)
	return plan, nil
}

func (w *Workflow) fetchProvider(ctx context.Context, ref candidate.EventRef, tz string, start time.Time) (model.ProviderCalendar, error) {
	ctx, span := otelx.StartSpan(ctx, tracerName, "workflow.fetch_provider", trace.WithSpanKind(trace.SpanKindClient))
	cal, err := w.source.Fetch(ctx, ref.Profile, ref.Event, tz, start, w.cfg.RangeDays)
	if errors.Is(err, provider.ErrMalformedPayload) {
		w.log.Warn("provider payload malformed, continuing with an empty calendar", "err", err)
		span.AddEvent("malformed payload")
		otelx.EndSpan(span, nil)
		return cal, nil
	}
	otelx.EndSpan(span, err)
	if err != nil {
		return model.ProviderCalendar{}, fmt.Errorf("fetch provider calendar: %w", err)
	}
	return cal, nil
}

// Run performs one attempt and records its result, successful or not.
func (w *Workflow) Run(ctx context.Context, req Request) (model.BookingResult, error) {
	ctx, span := otelx.StartSpan(ctx, tracerName, "workflow.run")
	res := model.BookingResult{
		ID:        w.newID(),
		RequestID: req.RequestID,
		TargetURL: req.BookingURL,
		Timestamp: w.now().UTC(),
	}
	log := w.log.With("attempt_id", res.ID)

	err := w.run(ctx, req, &res, log)
	if err != nil {
		res.Success = false
		res.Error = err.Error()
		log.Warn("booking attempt failed", "err", err)
	} else {
		log.Info("booking attempt finished", "success", res.Success, "booking_url", res.BookingURL, "fell_back", res.FellBack)
	}
	span.SetAttributes(attribute.Bool("booking.success", res.Success), attribute.Bool("booking.fell_back", res.FellBack))
	otelx.EndSpan(span, err)

	if w.store != nil {
		if rerr := w.store.Record(context.WithoutCancel(ctx), res); rerr != nil {
			log.Error("record booking result failed", "err", rerr)
		}
	}
	return res, err
}

func (w *Workflow) run(ctx context.Context, req Request, res *model.BookingResult, log *slog.Logger) error {
	plan, err := w.Overlap(ctx, req)
	res.CandidateCount = len(plan.Candidates)
	if err != nil {
		return err
	}

	suggestion, err := w.selectSlot(ctx, plan.Listing)
	if err != nil {
		log.Warn("slot selection failed, using earliest candidate", "selector", w.selector.Name(), "err", err)
	}
	chosen, fellBack, err := candidate.Resolve(suggestion, plan.Candidates)
	if err != nil {
		return err
	}
	if fellBack {
		log.Warn("suggested slot not in overlap, using earliest candidate", "suggestion", suggestion, "chosen", chosen.ISO())
	}
	res.FellBack = fellBack
	res.SuggestedTimeISO = chosen.ISO()
	res.SuggestedTimeLocal = chosen.At.Format("Monday, January 02, 2006 at 03:04 PM MST")

	res.BookingURL, err = candidate.BuildBookingURL(req.BookingURL, chosen.At, candidate.URLOptions{DateParams: w.cfg.DateParams})
	if err != nil {
		return err
	}

	ctx, span := otelx.StartSpan(ctx, tracerName, "workflow.submit", trace.WithSpanKind(trace.SpanKindClient))
	out, err := w.submitter.Submit(ctx, submit.Request{BookingURL: res.BookingURL, Contact: req.Contact})
	otelx.EndSpan(span, err)
	res.SessionID = out.SessionID
	res.Result = out.Result
	res.Success = out.Success
	return err
}

func (w *Workflow) selectSlot(ctx context.Context, listing string) (string, error) {
	ctx, span := otelx.StartSpan(ctx, tracerName, "workflow.select", trace.WithAttributes(attribute.String("selector", w.selector.Name())))
	s, err := w.selector.Select(ctx, listing)
	otelx.EndSpan(span, err)
	return strings.TrimSpace(s), err
}

// Evaluate runs the workflow n times in sequence and summarizes the outcome. Overall figures
// come from the result store when there is one.
func (w *Workflow) Evaluate(ctx context.Context, req Request, n int) (model.RunSummary, []model.BookingResult, error) {
	if n <= 0 {
		n = 1
	}
	results := make([]model.BookingResult, 0, n)
	successful := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return model.RunSummary{}, results, err
		}
		res, _ := w.Run(ctx, req)
		if res.Success {
			successful++
		}
		results = append(results, res)
		w.log.Info("evaluation run complete", "run", i+1, "of", n, "success", res.Success)
	}

	summary := model.RunSummary{
		RunTimestamp: w.now().UTC(),
		ThisRun:      model.NewSuccessRate(len(results), successful),
	}
	summary.Overall = summary.ThisRun
	if w.store != nil {
		overall, err := w.store.Summary(ctx)
		if err != nil {
			w.log.Warn("overall summary unavailable", "err", err)
		} else {
			summary.Overall = overall
		}
	}
	return summary, results, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
