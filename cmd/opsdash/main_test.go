package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/opsdash-tui/internal/config"
	"github.com/j-veylop/opsdash-tui/internal/engine"
	"github.com/j-veylop/opsdash-tui/internal/models"
	"github.com/j-veylop/opsdash-tui/internal/notify"
	"github.com/j-veylop/opsdash-tui/internal/services"
)

func TestFlagsOverrideConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := config.NewViper()
	bindFlags(cmd, v)

	require.NoError(t, cmd.PersistentFlags().Set("source", "memory"))
	require.NoError(t, cmd.PersistentFlags().Set("timezone", "UTC"))

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, config.SourceMemory, cfg.Source)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestFormatEvent(t *testing.T) {
	view := engine.View{
		Metrics: models.Metrics{
			TodaysBookings: 2,
			RevenueToday:   decimal.RequireFromString("40"),
			LastUpdate:     time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
		},
		CurrentDate: "2024-05-10",
		Validated:   true,
	}

	tests := []struct {
		name string
		ev   services.ServiceEvent
		want string
	}{
		{
			name: "metrics",
			ev:   services.MetricsUpdatedEvent{View: view},
			want: "09:30:00 [2024-05-10] validated bookings today: 2, pending messages: 0, active customers: 0, revenue today: 40.00",
		},
		{
			name: "day change",
			ev:   services.DayChangedEvent{From: "2024-05-10", To: "2024-05-11", Source: "midnight"},
			want: "day changed: 2024-05-10 -> 2024-05-11 (midnight)",
		},
		{
			name: "session end",
			ev:   services.SessionEvent{ID: "abc"},
			want: "session ended: abc",
		},
		{
			name: "error",
			ev:   services.ErrorEvent{Service: "feed", Error: errors.New("boom")},
			want: "error [feed]: boom",
		},
		{
			name: "notification",
			ev:   services.NotificationEvent{Notification: notify.Notification{Level: notify.LevelInfo, Message: "hi"}},
			want: notify.LevelInfo.String() + ": hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatEvent(tt.ev))
		})
	}
}

func TestWatchEvents_StopsOnClose(t *testing.T) {
	events := make(chan services.ServiceEvent, 2)
	events <- services.SessionEvent{ID: "s1", Active: true}
	close(events)

	var out bytes.Buffer
	require.NoError(t, watchEvents(context.Background(), &out, events))
	assert.Equal(t, "session started: s1\n", out.String())
}

func TestValidateCmd_Memory(t *testing.T) {
	t.Setenv(config.KeyLogPath, t.TempDir()+"/opsdash.log")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", "--source", "memory", "--timezone", "UTC"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Bookings today:     5")
	assert.Contains(t, out.String(), "Revenue today:      275.50")
}
