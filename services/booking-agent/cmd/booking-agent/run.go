package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/app"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/availability"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/mockcal"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/workflow"
)

func (c *cli) bookCmd() *cobra.Command {
	var (
		rf         requestFlags
		maxRetries int
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Run one booking attempt and print its result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("max-retries") {
				c.cfg.MaxRetries = maxRetries
			}
			c.cfg.DryRun = c.cfg.DryRun || dryRun

			a, err := c.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := requireRequest(a, rf)
			if err != nil {
				return err
			}
			res, err := a.Workflow.Run(cmd.Context(), req)
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			return err
		},
	}
	rf.register(cmd)
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "form submission retries (default DEFAULT_MAX_RETRIES)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "pick a slot and build the URL without submitting the form")
	return cmd
}

func (c *cli) evaluateCmd() *cobra.Command {
	var (
		rf   requestFlags
		runs int
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the workflow several times and report success rates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("runs") {
				runs = c.cfg.NumRuns
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1 (got %d)", runs)
			}

			a, err := c.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := requireRequest(a, rf)
			if err != nil {
				return err
			}
			summary, _, err := a.Workflow.Evaluate(cmd.Context(), req, runs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	rf.register(cmd)
	cmd.Flags().IntVar(&runs, "runs", 0, "number of attempts (default DEFAULT_NUM_RUNS)")
	return cmd
}

func (c *cli) overlapCmd() *cobra.Command {
	var (
		rf     requestFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "overlap",
		Short: "Print the slots both calendars share without booking",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Nothing is recorded, so keep the database out of it.
			c.cfg.DatabaseURL = ""
			a, err := c.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req := a.Request(rf.url, rf.timezone, rf.contact)
			if req.BookingURL == "" {
				return errMissingBookingURL
			}
			plan, err := a.Workflow.Overlap(cmd.Context(), req)
			if err != nil && !errors.Is(err, workflow.ErrNoAvailability) {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), plan)
			}
			return printListing(cmd.OutOrStdout(), plan)
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full plan as JSON")
	return cmd
}

func (c *cli) mockCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Generate and print this week's synthetic calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := availability.LoadZone(c.cfg.MockTimezone)
			if err != nil {
				return err
			}
			cal := mockcal.New(loc).Generate()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), cal)
			}
			return printMock(cmd.OutOrStdout(), cal)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print every spot as JSON")
	return cmd
}

var errMissingBookingURL = errors.New("--url or DEFAULT_BOOKING_URL is required")

func requireRequest(a *app.App, rf requestFlags) (workflow.Request, error) {
	req := a.Request(rf.url, rf.timezone, rf.contact)
	if req.BookingURL == "" {
		return req, errMissingBookingURL
	}
	if req.Contact.Name == "" || req.Contact.Email == "" {
		return req, errors.New("contact name and email are required (--name/--email or CONTACT_NAME/CONTACT_EMAIL)")
	}
	return req, nil
}

func printListing(w io.Writer, plan workflow.Plan) error {
	if len(plan.Candidates) == 0 {
		_, err := fmt.Fprintf(w, "No overlapping slots for %s/%s in %s.\n", plan.Event.Profile, plan.Event.Event, plan.Timezone)
		return err
	}
	if _, err := fmt.Fprintf(w, "%d overlapping slots in %s:\n", len(plan.Candidates), plan.Timezone); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, plan.Listing)
	return err
}

func printMock(w io.Writer, cal model.MockCalendar) error {
	if _, err := fmt.Fprintf(w, "Week of %s (%s)\n", cal.WeekOf.Format(availability.DateLayout), cal.Timezone); err != nil {
		return err
	}
	for _, d := range cal.Days {
		line := fmt.Sprintf("%-9s %s: ", d.Date.Weekday(), d.Date.Format(availability.DateLayout))
		ranges := model.FreeRanges(d, mockcal.DefaultStep)
		if d.Status != model.DayAvailable || len(ranges) == 0 {
			line += "unavailable"
		}
		for i, r := range ranges {
			if i > 0 {
				line += ", "
			}
			line += r.Start.Format(availability.TimeLayout) + " - " + r.End.Format(availability.TimeLayout)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
