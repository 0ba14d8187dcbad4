// Package submit drives the form-submission agent: a remote browser session that opens the
// booking URL, fills the form and reports what happened in plain text.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

var ErrSessionFailed = errors.New("browser session failed")

type Request struct {
	BookingURL string
	Contact    model.Contact
}

type Outcome struct {
	Success   bool
	Result    string
	SessionID string
}

type Submitter interface {
	Submit(ctx context.Context, req Request) (Outcome, error)
}

var successPhrases = []string{
	"confirmation page",
	"success message",
	"clicked the schedule event button",
	"successfully filled",
	"calendar invitation",
	"has been sent",
	"scheduled",
}

// DetectSuccess reports whether the agent's narrative describes a completed booking.
func DetectSuccess(result string) bool {
	lower := strings.ToLower(result)
	for _, p := range successPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Task is the natural-language instruction handed to the browser agent.
func Task(c model.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fill out the form with name %s, email %s", c.Name, c.Email)
	if strings.TrimSpace(c.Phone) != "" {
		fmt.Fprintf(&b, ", phone %s", c.Phone)
	}
	if strings.TrimSpace(c.Notes) != "" {
		fmt.Fprintf(&b, ", and add the note %q", c.Notes)
	}
	b.WriteString(", and click the Schedule Event button. Wait until the confirmation page is loaded or a success message appears.")
	return b.String()
}

// DryRun never opens a session.
type DryRun struct{}

func (DryRun) Submit(_ context.Context, req Request) (Outcome, error) {
	return Outcome{Result: "dry run: " + req.BookingURL + " was not submitted"}, nil
}
