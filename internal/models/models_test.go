package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBookingFromRecord(t *testing.T) {
	tests := []struct {
		name       string
		doc        map[string]any
		wantDate   string
		wantStatus BookingStatus
		wantAmount string
	}{
		{
			name:       "revenue wins over price",
			doc:        map[string]any{"id": "b1", "date": "2024-01-01", "status": "completed", "revenue": 500, "price": 100},
			wantDate:   "2024-01-01",
			wantStatus: BookingCompleted,
			wantAmount: "500",
		},
		{
			name:       "price fallback",
			doc:        map[string]any{"date": "2024-01-02", "status": "completed", "price": 200.5},
			wantDate:   "2024-01-02",
			wantStatus: BookingCompleted,
			wantAmount: "200.5",
		},
		{
			name:       "non-numeric revenue counts as zero",
			doc:        map[string]any{"date": "2024-01-02", "status": "completed", "revenue": "n/a", "price": json.Number("42")},
			wantDate:   "2024-01-02",
			wantStatus: BookingCompleted,
			wantAmount: "0",
		},
		{
			name:       "malformed revenue does not borrow price",
			doc:        map[string]any{"date": "2024-01-02", "status": "completed", "revenue": "abc", "price": 200},
			wantDate:   "2024-01-02",
			wantStatus: BookingCompleted,
			wantAmount: "0",
		},
		{
			name:       "null revenue falls back to price",
			doc:        map[string]any{"date": "2024-01-02", "status": "completed", "revenue": nil, "price": "200"},
			wantDate:   "2024-01-02",
			wantStatus: BookingCompleted,
			wantAmount: "200",
		},
		{
			name:       "nothing numeric",
			doc:        map[string]any{"date": "2024-01-02", "status": "Completed", "revenue": math.NaN(), "price": true},
			wantDate:   "2024-01-02",
			wantStatus: BookingCompleted,
			wantAmount: "0",
		},
		{
			name:       "timestamp string truncated to day",
			doc:        map[string]any{"date": "2024-01-03T10:15:00Z", "status": "pending"},
			wantDate:   "2024-01-03",
			wantStatus: BookingPending,
			wantAmount: "0",
		},
		{
			name:       "missing date",
			doc:        map[string]any{"status": "completed", "revenue": 10},
			wantDate:   "",
			wantStatus: BookingCompleted,
			wantAmount: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BookingFromRecord(tt.doc, time.UTC)
			if b.Date != tt.wantDate {
				t.Errorf("Date = %q, want %q", b.Date, tt.wantDate)
			}
			if b.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", b.Status, tt.wantStatus)
			}
			if !b.Amount().Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("Amount = %s, want %s", b.Amount(), tt.wantAmount)
			}
		})
	}
}

func TestBookingFromRecord_TimeDate(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)

	b := BookingFromRecord(map[string]any{"date": ts}, loc)
	if b.Date != "2024-01-02" {
		t.Errorf("Date = %q, want 2024-01-02", b.Date)
	}
}

func TestConversationFromRecord(t *testing.T) {
	tests := []struct {
		doc  map[string]any
		want int
	}{
		{map[string]any{"unreadCount": 3}, 3},
		{map[string]any{"unreadCount": int64(5)}, 5},
		{map[string]any{"unreadCount": 2.0}, 2},
		{map[string]any{"unreadCount": -4}, 0},
		{map[string]any{"unreadCount": "lots"}, 0},
		{map[string]any{}, 0},
	}

	for _, tt := range tests {
		if got := ConversationFromRecord(tt.doc).UnreadCount; got != tt.want {
			t.Errorf("ConversationFromRecord(%v).UnreadCount = %d, want %d", tt.doc, got, tt.want)
		}
	}
}

func TestMetricsApply(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	m := Metrics{TodaysBookings: 1, PendingMessages: 7, ActiveCustomers: 3, RevenueToday: decimal.NewFromInt(10), LastUpdate: t0}

	got := m.Apply(Patch{PendingMessages: Ptr(2)}, t0.Add(time.Second))
	if got.PendingMessages != 2 {
		t.Errorf("PendingMessages = %d, want 2", got.PendingMessages)
	}
	if got.TodaysBookings != 1 || got.ActiveCustomers != 3 || !got.RevenueToday.Equal(decimal.NewFromInt(10)) {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if !got.LastUpdate.Equal(t0.Add(time.Second)) {
		t.Errorf("LastUpdate = %v, want %v", got.LastUpdate, t0.Add(time.Second))
	}

	// A stamp from the past must not move LastUpdate backwards.
	back := got.Apply(Patch{}, t0.Add(-time.Hour))
	if !back.LastUpdate.Equal(got.LastUpdate) {
		t.Errorf("LastUpdate regressed to %v", back.LastUpdate)
	}
}

func TestToday(t *testing.T) {
	ts := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	if got := Today(ts, time.FixedZone("x", 3*60*60)); got != "2024-01-02" {
		t.Errorf("Today = %q, want 2024-01-02", got)
	}
	if got := Today(ts, time.UTC); got != "2024-01-01" {
		t.Errorf("Today = %q, want 2024-01-01", got)
	}
}
