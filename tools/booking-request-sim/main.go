package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotbooker/libs/auth"
	"github.com/md-rashed-zaman/slotbooker/libs/config"
	"github.com/md-rashed-zaman/slotbooker/libs/kafkax"
)

const topicBookingRequested = "booking.requested.v1"

type contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type bookingRequest struct {
	RequestID      string  `json:"request_id,omitempty"`
	BookingURL     string  `json:"booking_url"`
	TargetTimezone string  `json:"target_timezone,omitempty"`
	Timezone       string  `json:"timezone,omitempty"`
	Contact        contact `json:"contact"`
	DryRun         bool    `json:"dry_run,omitempty"`
}

func main() {
	var (
		mode     = flag.String("mode", "http", "http posts to the API, kafka publishes booking.requested.v1")
		baseURL  = flag.String("base-url", config.String("BASE_URL", "http://localhost:8090"), "booking agent base url")
		brokers  = flag.String("brokers", config.String("KAFKA_BROKERS", "localhost:9092"), "kafka brokers")
		secret   = flag.String("secret", config.String("OPERATOR_JWT_SECRET", ""), "operator token signing secret")
		url      = flag.String("url", config.String("DEFAULT_BOOKING_URL", ""), "booking page url")
		timezone = flag.String("timezone", config.String("TARGET_TIMEZONE", ""), "target timezone")
		name     = flag.String("name", config.String("CONTACT_NAME", "Test Invitee"), "invitee name")
		email    = flag.String("email", config.String("CONTACT_EMAIL", "invitee@example.com"), "invitee email")
		phone    = flag.String("phone", config.String("CONTACT_PHONE", ""), "invitee phone")
		dryRun   = flag.Bool("dry-run", false, "kafka mode only: compute the overlap without booking")
	)
	flag.Parse()

	if strings.TrimSpace(*url) == "" {
		fatal("--url or DEFAULT_BOOKING_URL is required")
	}
	req := bookingRequest{
		RequestID:  uuid.NewString(),
		BookingURL: *url,
		Contact:    contact{Name: *name, Email: *email, Phone: *phone},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch *mode {
	case "http":
		req.Timezone = *timezone
		if err := postBooking(ctx, *baseURL, *secret, req); err != nil {
			fatal(err.Error())
		}
	case "kafka":
		req.TargetTimezone = *timezone
		req.DryRun = *dryRun
		if err := publishBooking(ctx, *brokers, req); err != nil {
			fatal(err.Error())
		}
		fmt.Printf("published request_id=%s\n", req.RequestID)
	default:
		fatal("unsupported mode: " + *mode)
	}
}

func postBooking(ctx context.Context, baseURL, secret string, req bookingRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/v1/bookings", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", req.RequestID)
	if strings.TrimSpace(secret) != "" {
		token, err := auth.SignHS256("booking-request-sim", auth.RoleOperator, secret, 10*time.Minute)
		if err != nil {
			return err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	fmt.Printf("status=%d\n%s\n", resp.StatusCode, strings.TrimSpace(string(body)))
	return nil
}

func publishBooking(ctx context.Context, brokers string, req bookingRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(kafkax.SplitBrokers(brokers)...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	msg := kafka.Message{
		Topic:   topicBookingRequested,
		Key:     []byte(req.RequestID),
		Value:   payload,
		Headers: kafkax.MetaHeaders(kafkax.EventMeta{EventID: uuid.NewString(), EventType: topicBookingRequested}),
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return w.WriteMessages(ctx, msg)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
