package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

// BookingRequested is the payload of booking.requested.v1.
type BookingRequested struct {
	RequestID      string        `json:"request_id"`
	BookingURL     string        `json:"booking_url"`
	TargetTimezone string        `json:"target_timezone,omitempty"`
	Contact        model.Contact `json:"contact"`
	DryRun         bool          `json:"dry_run,omitempty"`
}

var ErrInvalidRequest = errors.New("invalid booking request")

func DecodeBookingRequested(msg kafka.Message) (BookingRequested, error) {
	var req BookingRequested
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return BookingRequested{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.BookingURL) == "" {
		return BookingRequested{}, fmt.Errorf("%w: booking_url is required", ErrInvalidRequest)
	}
	if req.RequestID == "" {
		req.RequestID = string(msg.Key)
	}
	return req, nil
}
