package app

import (
	"context"
	"errors"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/consumer"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/workflow"
)

// Request fills blank fields from the configured defaults.
func (a *App) Request(bookingURL, timezone string, contact model.Contact) workflow.Request {
	bookingURL = strings.TrimSpace(bookingURL)
	if bookingURL == "" {
		bookingURL = a.Config.BookingURL
	}
	return workflow.Request{
		BookingURL:     bookingURL,
		TargetTimezone: strings.TrimSpace(timezone),
		Contact:        contact.Or(a.Config.Contact),
	}
}

// HandleBookingRequested runs the workflow for one booking.requested.v1 message.
// Undecodable payloads and failed attempts are logged, not retried: the attempt itself
// is already recorded.
func (a *App) HandleBookingRequested(ctx context.Context, msg kafka.Message) error {
	in, err := consumer.DecodeBookingRequested(msg)
	if err != nil {
		a.Logger.Error("invalid booking request", "err", err, "topic", msg.Topic)
		return nil
	}
	req := a.Request(in.BookingURL, in.TargetTimezone, in.Contact)
	req.RequestID = in.RequestID
	log := a.Logger.With("request_id", in.RequestID)

	if in.DryRun {
		plan, err := a.Workflow.Overlap(ctx, req)
		if err != nil && !errors.Is(err, workflow.ErrNoAvailability) {
			log.Warn("dry run failed", "err", err)
			return nil
		}
		log.Info("dry run finished", "candidates", len(plan.Candidates), "timezone", plan.Timezone)
		return nil
	}

	res, err := a.Workflow.Run(ctx, req)
	if err != nil {
		log.Warn("booking attempt failed", "err", err, "attempt_id", res.ID)
		return nil
	}
	log.Info("booking attempt finished", "attempt_id", res.ID, "success", res.Success)
	return nil
}
