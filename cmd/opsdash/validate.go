package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/j-veylop/opsdash-tui/internal/engine"
	"github.com/j-veylop/opsdash-tui/internal/models"
	"github.com/j-veylop/opsdash-tui/internal/services"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compute the day's metrics once from a fresh snapshot",
		Long: `Fetch bookings, conversations and clients once and print the metrics
for a single day. Defaults to today in the configured timezone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logCloser, err := setup(v)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			if day == "" {
				day = models.Today(time.Now(), cfg.Location)
			} else if _, err := time.ParseInLocation(time.DateOnly, day, cfg.Location); err != nil {
				return fmt.Errorf("invalid --day %q: want YYYY-MM-DD", day)
			}

			src, err := services.OpenSource(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer src.Close()

			m, err := engine.FetchMetrics(cmd.Context(), src, day, cfg.Location)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Metrics for %s\n", day)
			fmt.Fprintln(out, strings.Repeat("=", 40))
			fmt.Fprintf(out, "Bookings today:     %d\n", m.TodaysBookings)
			fmt.Fprintf(out, "Revenue today:      %s\n", m.RevenueToday.StringFixed(2))
			fmt.Fprintf(out, "Pending messages:   %d\n", m.PendingMessages)
			fmt.Fprintf(out, "Active customers:   %d\n", m.ActiveCustomers)
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "day to compute (YYYY-MM-DD)")
	return cmd
}
