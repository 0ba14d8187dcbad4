package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

var ErrMalformedPayload = errors.New("malformed provider payload")

const dateLayout = "2006-01-02"

type rawCalendar struct {
	Timezone string    `json:"availability_timezone"`
	Days     *[]rawDay `json:"days"`
}

type rawDay struct {
	Date   string    `json:"date"`
	Status string    `json:"status"`
	Spots  []rawSpot `json:"spots"`
}

type rawSpot struct {
	Status            string          `json:"status"`
	StartTime         string          `json:"start_time"`
	InviteesRemaining *int            `json:"invitees_remaining,omitempty"`
	Booking           json.RawMessage `json:"booking,omitempty"`
}

// Normalize turns a calendar/range response into a ProviderCalendar holding only bookable
// spots. The returned calendar is always usable: on a malformed payload it is empty and the
// error wraps ErrMalformedPayload.
func Normalize(raw []byte) (model.ProviderCalendar, error) {
	empty := model.ProviderCalendar{Calendar: model.Calendar{Days: []model.Day{}}}

	var in rawCalendar
	if err := json.Unmarshal(raw, &in); err != nil {
		return empty, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	empty.Timezone = strings.TrimSpace(in.Timezone)
	if in.Days == nil {
		return empty, fmt.Errorf("%w: missing days", ErrMalformedPayload)
	}

	loc := time.UTC
	if empty.Timezone != "" {
		if l, err := time.LoadLocation(empty.Timezone); err == nil {
			loc = l
		}
	}

	out := empty
	for _, d := range *in.Days {
		if d.Status != string(model.DayAvailable) {
			continue
		}
		day := model.Day{Status: model.DayAvailable}
		for _, s := range d.Spots {
			spot, ok := normalizeSpot(s)
			if !ok {
				continue
			}
			day.Spots = append(day.Spots, spot)
		}
		if len(day.Spots) == 0 {
			continue
		}
		if date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(d.Date), loc); err == nil {
			day.Date = date
		} else {
			first := day.Spots[0].Start
			day.Date = time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())
		}
		out.Days = append(out.Days, day)
	}
	return out, nil
}

func normalizeSpot(s rawSpot) (model.Spot, bool) {
	if s.Status != string(model.SpotAvailable) || hasBooking(s.Booking) {
		return model.Spot{}, false
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(s.StartTime))
	if err != nil {
		return model.Spot{}, false
	}
	remaining := 1
	if s.InviteesRemaining != nil {
		remaining = *s.InviteesRemaining
	}
	if remaining <= 0 {
		return model.Spot{}, false
	}
	return model.Spot{Start: start, Status: model.SpotAvailable, InviteesRemaining: remaining}, true
}

func hasBooking(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v != "" && v != "null"
}

// Encode renders a calendar back into the provider wire shape.
func Encode(cal model.ProviderCalendar) ([]byte, error) {
	days := make([]rawDay, 0, len(cal.Days))
	for _, d := range cal.Days {
		rd := rawDay{Date: d.Date.Format(dateLayout), Status: string(d.Status), Spots: []rawSpot{}}
		for _, s := range d.Spots {
			n := s.InviteesRemaining
			rd.Spots = append(rd.Spots, rawSpot{
				Status:            string(s.Status),
				StartTime:         s.Start.Format(time.RFC3339),
				InviteesRemaining: &n,
			})
		}
		days = append(days, rd)
	}
	return json.Marshal(rawCalendar{Timezone: cal.Timezone, Days: &days})
}
