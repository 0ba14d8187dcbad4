package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/slotbooker/libs/auth"
	"github.com/md-rashed-zaman/slotbooker/libs/db"
	"github.com/md-rashed-zaman/slotbooker/libs/grpcx"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/grpcserver"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/storage"
)

func (c *cli) healthCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running agent's gRPC health service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = "localhost:" + c.cfg.GRPCPort
			}
			conn, err := grpcx.Dial(cmd.Context(), addr, grpcx.DialOptions{Timeout: timeout})
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			if err := grpcx.CheckHealth(cmd.Context(), conn, grpcserver.ServiceName); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (default localhost:GRPC_PORT)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "dial timeout")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			pool, err := db.Open(cmd.Context(), c.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db connection failed: %w", err)
			}
			defer pool.Close()

			if err := storage.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			names, _ := storage.MigrationNames()
			c.logger.Info("migrations applied", "count", len(names))
			return nil
		},
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the booking endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := auth.SignHS256(subject, auth.RoleOperator, c.cfg.OperatorSecret, ttl)
			if err != nil {
				return fmt.Errorf("OPERATOR_JWT_SECRET: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
