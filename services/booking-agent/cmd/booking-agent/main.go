package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/slotbooker/libs/config"
	"github.com/md-rashed-zaman/slotbooker/libs/runtime"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/app"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

// cli holds state shared by every subcommand once the root pre-run has loaded config.
type cli struct {
	envFile string
	cfg     app.Config
	logger  *slog.Logger
}

func main() {
	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "booking-agent",
		Short:         "Find a slot both calendars share and book it",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to read before the environment")

	root.AddCommand(
		c.bookCmd(),
		c.evaluateCmd(),
		c.overlapCmd(),
		c.mockCmd(),
		c.serveCmd(),
		c.watchCmd(),
		c.healthCmd(),
		c.migrateCmd(),
		c.tokenCmd(),
	)
	return root
}

func (c *cli) load(logOut io.Writer) error {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return err
	}
	cfg, err := app.ConfigFromEnv()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = runtime.NewLoggerTo(logOut, cfg.ServiceName, runtime.ParseLevel(os.Getenv("LOG_LEVEL")))
	return nil
}

func (c *cli) build(ctx context.Context) (*app.App, error) {
	return app.Build(ctx, c.cfg, c.logger)
}

// requestFlags are shared by the commands that run the workflow.
type requestFlags struct {
	url      string
	timezone string
	contact  model.Contact
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "booking page URL (default DEFAULT_BOOKING_URL)")
	cmd.Flags().StringVar(&f.timezone, "timezone", "", "zone both calendars are compared in (default TARGET_TIMEZONE, then MOCK_TIMEZONE)")
	cmd.Flags().StringVar(&f.contact.Name, "name", "", "invitee name (default CONTACT_NAME)")
	cmd.Flags().StringVar(&f.contact.Email, "email", "", "invitee email (default CONTACT_EMAIL)")
	cmd.Flags().StringVar(&f.contact.Phone, "phone", "", "invitee phone (default CONTACT_PHONE)")
	cmd.Flags().StringVar(&f.contact.Notes, "notes", "", "notes for the host")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
