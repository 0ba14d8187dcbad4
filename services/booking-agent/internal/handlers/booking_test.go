package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbooker/libs/auth"
	"github.com/md-rashed-zaman/slotbooker/libs/httpx"
	"github.com/md-rashed-zaman/slotbooker/libs/runtime"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/candidate"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/workflow"
)

const secret = "test-secret"

type fakeRunner struct {
	plan    workflow.Plan
	err     error
	lastReq workflow.Request
}

func (f *fakeRunner) Overlap(_ context.Context, req workflow.Request) (workflow.Plan, error) {
	f.lastReq = req
	return f.plan, f.err
}

func (f *fakeRunner) Run(_ context.Context, req workflow.Request) (model.BookingResult, error) {
	f.lastReq = req
	res := model.BookingResult{ID: "attempt-1", TargetURL: req.BookingURL, Success: f.err == nil}
	if f.err != nil {
		res.Error = f.err.Error()
	}
	return res, f.err
}

type fixedMock struct{ cal model.MockCalendar }

func (f fixedMock) Generate() model.MockCalendar { return f.cal }

type fakeResults struct{}

func (fakeResults) Summary(context.Context) (model.SuccessRate, error) {
	return model.NewSuccessRate(4, 3), nil
}

func (fakeResults) Recent(context.Context, int) ([]model.BookingResult, error) {
	return []model.BookingResult{{ID: "a"}}, nil
}

func newServer(t *testing.T, runner *fakeRunner) http.Handler {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	at := func(h, m int) model.Spot {
		return model.Spot{Start: time.Date(2025, 3, 10, h, m, 0, 0, loc), Status: model.SpotAvailable, InviteesRemaining: 1}
	}
	mock := model.MockCalendar{
		Calendar: model.Calendar{Timezone: "America/Los_Angeles", Days: []model.Day{
			{Date: monday, Status: model.DayAvailable, Spots: []model.Spot{at(9, 0), at(9, 30), at(11, 0)}},
			{Date: monday.AddDate(0, 0, 5), Status: model.DayUnavailable, Spots: []model.Spot{}},
		}},
		WeekOf: monday,
	}
	h := NewBookingHandler(runner, fixedMock{cal: mock}, fakeResults{}, Defaults{
		BookingURL: "https://calendly.com/jane/intro",
		Contact:    model.Contact{Name: "Default Name", Email: "default@example.com"},
	}, runtime.NopLogger())
	mux := http.NewServeMux()
	Register(mux, h, httpx.RequireBearer(secret, auth.RoleOperator))
	return mux
}

func operatorToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.SignHS256("ops", auth.RoleOperator, secret, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestOverlap_ListsCandidates(t *testing.T) {
	loc, _ := time.LoadLocation("America/Los_Angeles")
	runner := &fakeRunner{plan: workflow.Plan{
		Timezone: "America/Los_Angeles",
		Candidates: []candidate.Candidate{{
			At:        time.Date(2025, 3, 10, 14, 0, 0, 0, loc),
			Date:      "March 10, 2025",
			DayOfWeek: "Monday",
			Time:      "02:00 PM",
		}},
	}}
	srv := newServer(t, runner)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overlap?timezone=America/Los_Angeles", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp overlapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Available || len(resp.Candidates) != 1 || resp.Candidates[0].ISO != "2025-03-10T14:00:00-07:00" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if runner.lastReq.BookingURL != "https://calendly.com/jane/intro" || runner.lastReq.TargetTimezone != "America/Los_Angeles" {
		t.Fatalf("unexpected request %+v", runner.lastReq)
	}
}

func TestOverlap_NoAvailabilityIsNotAnError(t *testing.T) {
	srv := newServer(t, &fakeRunner{err: workflow.ErrNoAvailability})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overlap", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"available":false`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOverlap_UnknownTimezone(t *testing.T) {
	srv := newServer(t, &fakeRunner{err: fmt.Errorf("target: %w", availability.ErrUnknownTimezone)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overlap?timezone=Nowhere", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMockCalendar_ShowsFreeRanges(t *testing.T) {
	srv := newServer(t, &fakeRunner{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mock-calendar", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp mockCalendarResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(resp.Days))
	}
	want := []rangeItem{{Start: "09:00 AM", End: "10:00 AM"}, {Start: "11:00 AM", End: "11:30 AM"}}
	got := resp.Days[0].FreeRanges
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected free ranges %+v", got)
	}
	if resp.Days[1].Status != model.DayUnavailable || len(resp.Days[1].FreeRanges) != 0 {
		t.Fatalf("unexpected weekend %+v", resp.Days[1])
	}
}

func TestBook_RequiresOperator(t *testing.T) {
	srv := newServer(t, &fakeRunner{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBook_MergesDefaults(t *testing.T) {
	runner := &fakeRunner{}
	srv := newServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"contact": {"phone": "+1 555 0100"}}`))
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	c := runner.lastReq.Contact
	if c.Name != "Default Name" || c.Email != "default@example.com" || c.Phone != "+1 555 0100" {
		t.Fatalf("unexpected contact %+v", c)
	}
}

func TestBook_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: workflow.ErrNoAvailability, want: http.StatusConflict},
		{err: candidate.ErrInvalidBookingURL, want: http.StatusBadRequest},
		{err: fmt.Errorf("fetch provider calendar: %w", context.DeadlineExceeded), want: http.StatusBadGateway},
	}
	for _, tc := range cases {
		srv := newServer(t, &fakeRunner{err: tc.err})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+operatorToken(t))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
		var res model.BookingResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Error == "" {
			t.Fatalf("expected result body with error, got %s", rec.Body.String())
		}
	}
}

func TestSummary(t *testing.T) {
	srv := newServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/summary", nil)
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Overall.TotalRuns != 4 || resp.Overall.SuccessRate != 75 || len(resp.Recent) != 1 {
		t.Fatalf("unexpected summary %+v", resp)
	}
}
