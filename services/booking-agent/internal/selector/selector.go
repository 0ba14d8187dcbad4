// Package selector asks a collaborator to pick one slot out of a candidate listing.
package selector

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Selector receives the candidate listing as plain text and answers with a suggested
// instant, optionally followed by "?month=YYYY-MM&date=YYYY-MM-DD".
type Selector interface {
	Select(ctx context.Context, listing string) (string, error)
	Name() string
}

var ErrEmptyListing = errors.New("empty candidate listing")

var isoInParens = regexp.MustCompile(`\(([^()]+)\)\s*$`)

// Earliest picks the first listed slot. Listings are ordered earliest first.
type Earliest struct{}

func (Earliest) Name() string { return "earliest" }

func (Earliest) Select(_ context.Context, listing string) (string, error) {
	for _, line := range strings.Split(listing, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := isoInParens.FindStringSubmatch(line); m != nil {
			return withDateParams(strings.TrimSpace(m[1])), nil
		}
		return line, nil
	}
	return "", ErrEmptyListing
}

// withDateParams appends the month/date query the site expects after an instant.
func withDateParams(iso string) string {
	if len(iso) < len("2006-01-02") || strings.Contains(iso, "?") {
		return iso
	}
	return iso + "?month=" + iso[:7] + "&date=" + iso[:10]
}
