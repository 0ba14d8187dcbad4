package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultAnchorBaseURL = "https://api.anchorbrowser.io"
	DefaultMaxRetries    = 3
	maxBodyBytes         = 1 << 20
)

// Anchor runs the booking task in a remote browser session. CAPTCHA solving, proxying and
// fingerprinting are configured on the session and handled by the provider.
type Anchor struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	maxRetries int
	backoff    func() backoff.BackOff
	log        *slog.Logger
}

type AnchorOption func(*Anchor)

func WithMaxRetries(n int) AnchorOption {
	return func(a *Anchor) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

func WithRetryInterval(d time.Duration) AnchorOption {
	return func(a *Anchor) {
		a.backoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = d
			b.MaxInterval = 4 * d
			return b
		}
	}
}

func WithHTTPClient(h *http.Client) AnchorOption {
	return func(a *Anchor) { a.http = h }
}

func WithLogger(log *slog.Logger) AnchorOption {
	return func(a *Anchor) { a.log = log }
}

func NewAnchor(baseURL, apiKey string, opts ...AnchorOption) *Anchor {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAnchorBaseURL
	}
	a := &Anchor{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		maxRetries: DefaultMaxRetries,
		http: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: slog.Default(),
	}
	WithRetryInterval(2 * time.Second)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type sessionConfig struct {
	Adblock struct {
		Active              bool `json:"active"`
		PopupBlockingActive bool `json:"popup_blocking_active"`
	} `json:"adblock_config"`
	Captcha struct {
		Active bool `json:"active"`
	} `json:"captcha_config"`
	Headless bool `json:"headless"`
	Proxy    struct {
		Type   string `json:"type"`
		Active bool   `json:"active"`
	} `json:"proxy_config"`
	Recording struct {
		Active bool `json:"active"`
	} `json:"recording"`
	Profile struct {
		Name       string `json:"name"`
		Persist    bool   `json:"persist"`
		StoreCache bool   `json:"store_cache"`
	} `json:"profile"`
	Viewport struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"viewport"`
	Timeout     int `json:"timeout"`
	IdleTimeout int `json:"idle_timeout"`
}

func defaultSessionConfig() sessionConfig {
	var c sessionConfig
	c.Captcha.Active = true
	c.Proxy.Type = "anchor_residential"
	c.Proxy.Active = true
	c.Profile.Name = "slotbooker"
	c.Profile.Persist = true
	c.Profile.StoreCache = true
	c.Viewport.Width = 1440
	c.Viewport.Height = 900
	c.Timeout = 10
	c.IdleTimeout = 3
	return c
}

// statusError is a non-2xx answer from the session provider.
type statusError struct {
	op   string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned %d", e.op, e.code)
}

// Submit creates a session, runs the booking task and always deletes the session.
// Transient failures are retried with exponential backoff.
func (a *Anchor) Submit(ctx context.Context, req Request) (Outcome, error) {
	if a.apiKey == "" {
		return Outcome{}, fmt.Errorf("%w: browser api key not configured", ErrSessionFailed)
	}
	attempt := 0
	out, err := backoff.Retry(ctx, func() (Outcome, error) {
		attempt++
		o, err := a.attempt(ctx, req)
		if err == nil {
			return o, nil
		}
		if !retryable(err) {
			return o, backoff.Permanent(err)
		}
		a.log.Warn("booking attempt failed, retrying", "attempt", attempt, "session_id", o.SessionID, "err", err)
		return o, err
	}, backoff.WithBackOff(a.backoff()), backoff.WithMaxTries(uint(a.maxRetries+1)))
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	return out, nil
}

func (a *Anchor) attempt(ctx context.Context, req Request) (Outcome, error) {
	id, err := a.createSession(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer a.deleteSession(context.WithoutCancel(ctx), id)

	result, err := a.performTask(ctx, id, req)
	out := Outcome{SessionID: id, Result: result}
	if err != nil {
		return out, err
	}
	out.Success = DetectSuccess(result)
	return out, nil
}

func (a *Anchor) createSession(ctx context.Context) (string, error) {
	var resp struct {
		ID   string `json:"id"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := a.do(ctx, http.MethodPost, "/v1/sessions", defaultSessionConfig(), &resp); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	id := resp.Data.ID
	if id == "" {
		id = resp.ID
	}
	if id == "" {
		return "", errors.New("create session: no session id in response")
	}
	return id, nil
}

func (a *Anchor) performTask(ctx context.Context, sessionID string, req Request) (string, error) {
	body := map[string]string{
		"url":       req.BookingURL,
		"prompt":    Task(req.Contact),
		"sessionId": sessionID,
	}
	var resp struct {
		Result json.RawMessage `json:"result"`
		Data   struct {
			Result json.RawMessage `json:"result"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := a.do(ctx, http.MethodPost, "/v1/tools/perform-web-task", body, &resp); err != nil {
		return "", fmt.Errorf("perform task: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("perform task: %s", resp.Error)
	}
	raw := resp.Data.Result
	if len(raw) == 0 {
		raw = resp.Result
	}
	return resultText(raw), nil
}

func resultText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (a *Anchor) deleteSession(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := a.do(ctx, http.MethodDelete, "/v1/sessions/"+id, nil, nil); err != nil {
		a.log.Warn("delete browser session failed", "session_id", id, "err", err)
		return
	}
	a.log.Debug("browser session deleted", "session_id", id)
}

func (a *Anchor) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("anchor-api-key", a.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{op: method + " " + path, code: resp.StatusCode}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// retryable covers transport errors, throttling, provider-side failures and the browser
// agent's intermittent script error.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return strings.Contains(err.Error(), "Unexpected identifier")
}
