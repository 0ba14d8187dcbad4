package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

// Topics. The Kafka topic name equals the event type.
const (
	TopicBookingRequested        = "booking.requested.v1"
	TopicBookingAttemptCompleted = "booking.attempt.completed.v1"
)

// Event is one Kafka message waiting in the outbox. Key keeps every event for an attempt on one partition.
type Event struct {
	Topic   string
	Key     string
	Payload []byte
}

// AttemptCompleted is the payload of booking.attempt.completed.v1.
type AttemptCompleted struct {
	AttemptID     string `json:"attempt_id"`
	RequestID     string `json:"request_id,omitempty"`
	TargetURL     string `json:"target_url"`
	BookingURL    string `json:"booking_url,omitempty"`
	Success       bool   `json:"success"`
	SuggestedTime string `json:"suggested_time,omitempty"`
	FellBack      bool   `json:"fell_back"`
	Error         string `json:"error,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

func NewAttemptCompleted(res model.BookingResult) (Event, error) {
	payload, err := json.Marshal(AttemptCompleted{
		AttemptID:     res.ID,
		RequestID:     res.RequestID,
		TargetURL:     res.TargetURL,
		BookingURL:    res.BookingURL,
		Success:       res.Success,
		SuggestedTime: res.SuggestedTimeISO,
		FellBack:      res.FellBack,
		Error:         res.Error,
		OccurredAt:    res.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: TopicBookingAttemptCompleted, Key: res.ID, Payload: payload}, nil
}
