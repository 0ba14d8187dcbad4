package model

import (
	"strings"
	"time"
)

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes,omitempty"`
}

// Or fills blank fields from defaults.
func (c Contact) Or(defaults Contact) Contact {
	c.Name = orDefault(c.Name, defaults.Name)
	c.Email = orDefault(c.Email, defaults.Email)
	c.Phone = orDefault(c.Phone, defaults.Phone)
	c.Notes = orDefault(c.Notes, defaults.Notes)
	return c
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

// BookingResult records the outcome of one booking attempt.
type BookingResult struct {
	ID                 string    `json:"id"`
	RequestID          string    `json:"request_id,omitempty"`
	BookingURL         string    `json:"booking_url,omitempty"`
	TargetURL          string    `json:"target_url"`
	Success            bool      `json:"success"`
	Result             string    `json:"result,omitempty"`
	SuggestedTimeISO   string    `json:"suggested_time_iso,omitempty"`
	SuggestedTimeLocal string    `json:"suggested_time_local,omitempty"`
	FellBack           bool      `json:"fell_back"`
	CandidateCount     int       `json:"candidate_count"`
	SessionID          string    `json:"session_id,omitempty"`
	Error              string    `json:"error,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

type SuccessRate struct {
	TotalRuns      int     `json:"total_runs"`
	SuccessfulRuns int     `json:"successful_runs"`
	SuccessRate    float64 `json:"success_rate"`
}

func NewSuccessRate(total, successful int) SuccessRate {
	r := SuccessRate{TotalRuns: total, SuccessfulRuns: successful}
	if total > 0 {
		r.SuccessRate = float64(successful) / float64(total) * 100
	}
	return r
}

type RunSummary struct {
	RunTimestamp time.Time   `json:"run_timestamp"`
	ThisRun      SuccessRate `json:"this_run"`
	Overall      SuccessRate `json:"overall"`
}
