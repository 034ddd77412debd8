package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/j-veylop/opsdash-tui/internal/services"
)

func newWatchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow live metrics and print every change",
		Long: `Run the engine without the terminal UI. Every metrics update, day
change, session change and notification is printed as one line until
interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logCloser, err := setup(v)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr, err := services.NewManager(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}
			defer mgr.Close()

			events, _ := mgr.Subscribe()
			mgr.Start()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl+c to stop)\n", mgr.SourceDescription())
			return watchEvents(ctx, cmd.OutOrStdout(), events)
		},
	}
}

// watchEvents prints events until ctx ends or the channel closes.
func watchEvents(ctx context.Context, out io.Writer, events <-chan services.ServiceEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if line := formatEvent(ev); line != "" {
				fmt.Fprintln(out, line)
			}
		}
	}
}

func formatEvent(ev services.ServiceEvent) string {
	switch e := ev.(type) {
	case services.MetricsUpdatedEvent:
		state := "pending"
		if e.View.Validated {
			state = "validated"
		}
		return fmt.Sprintf("%s [%s] %s %s",
			e.View.LastUpdate.Format("15:04:05"), e.View.CurrentDate, state, e.View.Summary())
	case services.DayChangedEvent:
		return fmt.Sprintf("day changed: %s -> %s (%s)", e.From, e.To, e.Source)
	case services.SessionEvent:
		if e.Active {
			return fmt.Sprintf("session started: %s", e.ID)
		}
		return fmt.Sprintf("session ended: %s", e.ID)
	case services.NotificationEvent:
		return fmt.Sprintf("%s: %s", e.Notification.Level, e.Notification.Message)
	case services.ErrorEvent:
		return fmt.Sprintf("error [%s]: %v", e.Service, e.Error)
	default:
		return ""
	}
}
