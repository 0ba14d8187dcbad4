package candidate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// InstantLayout is how an instant appears as the last booking URL segment.
const InstantLayout = "2006-01-02T15:04:05-07:00"

var ErrInvalidBookingURL = errors.New("invalid booking url")

type URLOptions struct {
	// DateParams appends ?month=YYYY-MM&date=YYYY-MM-DD.
	DateParams bool
}

// EventRef identifies an event type on the scheduling site.
type EventRef struct {
	Origin  string `json:"origin"`
	Profile string `json:"profile_slug"`
	Event   string `json:"event_type_slug"`
}

// BuildBookingURL appends at to base, replacing an instant already present as the last segment.
func BuildBookingURL(base string, at time.Time, opts URLOptions) (string, error) {
	u, err := parseBase(base)
	if err != nil {
		return "", err
	}
	segs := pathSegments(u.Path)
	if len(segs) == 0 {
		return "", fmt.Errorf("%w: %q has no event path", ErrInvalidBookingURL, base)
	}

	out := u.Scheme + "://" + u.Host + "/" + strings.Join(segs, "/") + "/" + at.Format(InstantLayout)
	if opts.DateParams {
		out += "?month=" + at.Format("2006-01") + "&date=" + at.Format("2006-01-02")
	}
	return out, nil
}

// ParseEventURL extracts the profile and event slugs from a booking URL.
func ParseEventURL(base string) (EventRef, error) {
	u, err := parseBase(base)
	if err != nil {
		return EventRef{}, err
	}
	segs := pathSegments(u.Path)
	if len(segs) < 2 {
		return EventRef{}, fmt.Errorf("%w: %q needs /<profile>/<event>", ErrInvalidBookingURL, base)
	}
	return EventRef{
		Origin:  u.Scheme + "://" + u.Host,
		Profile: segs[len(segs)-2],
		Event:   segs[len(segs)-1],
	}, nil
}

func parseBase(base string) (*url.URL, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidBookingURL)
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBookingURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBookingURL, base)
	}
	return u, nil
}

// pathSegments splits the path and drops a trailing segment that is itself an instant.
func pathSegments(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if n := len(segs); n > 0 {
		if _, err := time.Parse(time.RFC3339, segs[n-1]); err == nil {
			segs = segs[:n-1]
		}
	}
	return segs
}
