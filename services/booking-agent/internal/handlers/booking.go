package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/slotbooker/libs/httpx"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/candidate"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/mockcal"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/workflow"
)

type Runner interface {
	Overlap(ctx context.Context, req workflow.Request) (workflow.Plan, error)
	Run(ctx context.Context, req workflow.Request) (model.BookingResult, error)
}

type Results interface {
	Summary(ctx context.Context) (model.SuccessRate, error)
	Recent(ctx context.Context, limit int) ([]model.BookingResult, error)
}

// Defaults fill in request fields the caller leaves empty.
type Defaults struct {
	BookingURL string
	Contact    model.Contact
}

type BookingHandler struct {
	runner   Runner
	mock     workflow.MockSource
	results  Results
	defaults Defaults
	logger   *slog.Logger
}

func NewBookingHandler(runner Runner, mock workflow.MockSource, results Results, defaults Defaults, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		runner:   runner,
		mock:     mock,
		results:  results,
		defaults: defaults,
		logger:   logger,
	}
}

type bookRequest struct {
	BookingURL string        `json:"booking_url"`
	Timezone   string        `json:"timezone"`
	Contact    model.Contact `json:"contact"`
}

type overlapResponse struct {
	Available  bool                `json:"available"`
	Timezone   string              `json:"timezone"`
	Event      candidate.EventRef  `json:"event"`
	Overlap    model.OverlapResult `json:"overlap"`
	Candidates []candidateItem     `json:"candidates"`
}

type candidateItem struct {
	Label string `json:"label"`
	ISO   string `json:"iso"`
}

type mockDayItem struct {
	Date       string          `json:"date"`
	DayOfWeek  string          `json:"day_of_week"`
	Status     model.DayStatus `json:"status"`
	FreeRanges []rangeItem     `json:"free_ranges"`
}

type rangeItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type mockCalendarResponse struct {
	WeekOf   string        `json:"week_of"`
	Timezone string        `json:"timezone"`
	Days     []mockDayItem `json:"days"`
}

type summaryResponse struct {
	Overall model.SuccessRate     `json:"overall"`
	Recent  []model.BookingResult `json:"recent"`
}

// Overlap is a dry run: it computes candidates without booking anything.
func (h *BookingHandler) Overlap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := workflow.Request{
		BookingURL:     firstNonEmpty(r.URL.Query().Get("booking_url"), h.defaults.BookingURL),
		TargetTimezone: strings.TrimSpace(r.URL.Query().Get("timezone")),
	}
	if req.BookingURL == "" {
		http.Error(w, "booking_url required", http.StatusBadRequest)
		return
	}

	plan, err := h.runner.Overlap(r.Context(), req)
	if err != nil && !errors.Is(err, workflow.ErrNoAvailability) {
		h.writeError(w, err)
		return
	}

	resp := overlapResponse{
		Available:  err == nil,
		Timezone:   plan.Timezone,
		Event:      plan.Event,
		Overlap:    plan.Overlap,
		Candidates: make([]candidateItem, 0, len(plan.Candidates)),
	}
	for _, c := range plan.Candidates {
		resp.Candidates = append(resp.Candidates, candidateItem{Label: c.Label(), ISO: c.ISO()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) MockCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cal := h.mock.Generate()
	resp := mockCalendarResponse{
		WeekOf:   cal.WeekOf.Format("2006-01-02"),
		Timezone: cal.Timezone,
		Days:     make([]mockDayItem, 0, len(cal.Days)),
	}
	for _, d := range cal.Days {
		item := mockDayItem{
			Date:       d.Date.Format(availability.DateLayout),
			DayOfWeek:  d.Date.Weekday().String(),
			Status:     d.Status,
			FreeRanges: []rangeItem{},
		}
		for _, fr := range model.FreeRanges(d, mockcal.DefaultStep) {
			item.FreeRanges = append(item.FreeRanges, rangeItem{
				Start: fr.Start.Format(availability.TimeLayout),
				End:   fr.End.Format(availability.TimeLayout),
			})
		}
		resp.Days = append(resp.Days, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Book runs one attempt synchronously and answers with its result.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body bookRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req := workflow.Request{
		RequestID:      firstNonEmpty(httpx.RequestIDFromContext(r.Context()), r.Header.Get(httpx.RequestIDHeader)),
		BookingURL:     firstNonEmpty(body.BookingURL, h.defaults.BookingURL),
		TargetTimezone: strings.TrimSpace(body.Timezone),
		Contact:        body.Contact.Or(h.defaults.Contact),
	}
	if req.BookingURL == "" {
		http.Error(w, "booking_url required", http.StatusBadRequest)
		return
	}
	if req.Contact.Name == "" || req.Contact.Email == "" {
		http.Error(w, "contact name and email required", http.StatusBadRequest)
		return
	}

	res, err := h.runner.Run(r.Context(), req)
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, workflow.ErrNoAvailability):
		status = http.StatusConflict
	case errors.Is(err, candidate.ErrInvalidBookingURL), errors.Is(err, availability.ErrUnknownTimezone):
		status = http.StatusBadRequest
	default:
		h.logger.Error("booking run failed", "err", err, "attempt_id", res.ID)
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (h *BookingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.results == nil {
		http.Error(w, "result store not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	overall, err := h.results.Summary(r.Context())
	if err != nil {
		http.Error(w, "failed to load summary", http.StatusInternalServerError)
		return
	}
	recent, err := h.results.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to load recent attempts", http.StatusInternalServerError)
		return
	}
	if recent == nil {
		recent = []model.BookingResult{}
	}
	writeJSON(w, http.StatusOK, summaryResponse{Overall: overall, Recent: recent})
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, candidate.ErrInvalidBookingURL), errors.Is(err, availability.ErrUnknownTimezone):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("overlap failed", "err", err)
		http.Error(w, "upstream calendar unavailable", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
