// Package provider talks to the scheduling site's booking API and normalizes what it returns.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

var ErrEventTypeNotFound = errors.New("event type not found")

const (
	DefaultRangeDays = 7
	maxBodyBytes     = 4 << 20
)

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cache   EventTypeCache
	log     *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func WithCache(cache EventTypeCache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		cache:   NewMemoryCache(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupEventType resolves the event type uuid for a profile/event slug pair.
func (c *Client) LookupEventType(ctx context.Context, profile, event string) (string, error) {
	if c.cache != nil {
		if uuid, ok, err := c.cache.Get(ctx, profile, event); err != nil {
			c.log.Warn("event type cache read failed", "err", err)
		} else if ok {
			return uuid, nil
		}
	}

	q := url.Values{}
	q.Set("event_type_slug", event)
	q.Set("profile_slug", profile)
	body, err := c.get(ctx, "/api/booking/event_types/lookup", q)
	if err != nil {
		return "", err
	}
	var resp struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode event type lookup: %w", err)
	}
	if strings.TrimSpace(resp.UUID) == "" {
		return "", fmt.Errorf("%w: %s/%s", ErrEventTypeNotFound, profile, event)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, profile, event, resp.UUID); err != nil {
			c.log.Warn("event type cache write failed", "err", err)
		}
	}
	return resp.UUID, nil
}

// FetchRange returns the raw calendar/range payload for [start, end] as civil dates.
func (c *Client) FetchRange(ctx context.Context, uuid, tz string, start, end time.Time) ([]byte, error) {
	q := url.Values{}
	q.Set("timezone", tz)
	q.Set("diagnostics", "false")
	q.Set("range_start", start.Format(dateLayout))
	q.Set("range_end", end.Format(dateLayout))
	return c.get(ctx, "/api/booking/event_types/"+url.PathEscape(uuid)+"/calendar/range", q)
}

// Fetch looks up the event type, fetches days starting at start and normalizes the result.
// An ErrMalformedPayload error comes with a usable empty calendar.
func (c *Client) Fetch(ctx context.Context, profile, event, tz string, start time.Time, days int) (model.ProviderCalendar, error) {
	if days <= 0 {
		days = DefaultRangeDays
	}
	uuid, err := c.LookupEventType(ctx, profile, event)
	if err != nil {
		return model.ProviderCalendar{}, err
	}
	raw, err := c.FetchRange(ctx, uuid, tz, start, start.AddDate(0, 0, days))
	if err != nil {
		return model.ProviderCalendar{}, err
	}
	cal, err := Normalize(raw)
	if cal.Timezone == "" {
		cal.Timezone = tz
	}
	return cal, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.baseURL == "" {
		return nil, errors.New("provider base url not configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrEventTypeNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider %s returned %d", path, resp.StatusCode)
	}
	return body, nil
}
