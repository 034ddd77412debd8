package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/opsdash-tui/internal/config"
	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/engine"
	"github.com/j-veylop/opsdash-tui/internal/models"
)

func modelsMetrics(bookings int) models.Metrics {
	return models.Metrics{TodaysBookings: bookings}
}

func TestSeed_AllBackends(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"sqlite", &config.Config{Source: config.SourceSQLite, DatabasePath: filepath.Join(tmpDir, "ops.db"), Location: time.UTC}},
		{"file", &config.Config{Source: config.SourceFile, DataDir: filepath.Join(tmpDir, "data"), Location: time.UTC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			src, err := OpenSource(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("OpenSource failed: %v", err)
			}
			defer src.Close()

			w, ok := src.(datasource.Writer)
			if !ok {
				t.Fatalf("%T cannot be seeded", src)
			}
			if err := Seed(ctx, w, now, time.UTC); err != nil {
				t.Fatalf("Seed failed: %v", err)
			}

			m, err := engine.FetchMetrics(ctx, src, "2024-05-10", time.UTC)
			if err != nil {
				t.Fatalf("FetchMetrics failed: %v", err)
			}
			if m.TodaysBookings != 5 || m.PendingMessages != 9 || m.ActiveCustomers != 3 {
				t.Errorf("unexpected metrics: %s", m.Summary())
			}
			if !m.RevenueToday.Equal(decimal.RequireFromString("275.50")) {
				t.Errorf("RevenueToday = %s, want 275.50", m.RevenueToday)
			}
		})
	}
}

func TestOpenSource_Unknown(t *testing.T) {
	if _, err := OpenSource(context.Background(), &config.Config{Source: "redis"}); err == nil {
		t.Error("expected error for unknown source")
	}
}
