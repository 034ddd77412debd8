package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/models"
)

// DemoRecords builds a small data set around the day of now.
func DemoRecords(now time.Time, loc *time.Location) map[datasource.Collection][]datasource.Record {
	today := models.Today(now, loc)
	yesterday := models.Today(now.AddDate(0, 0, -1), loc)
	tomorrow := models.Today(now.AddDate(0, 0, 1), loc)

	booking := func(id, date string, status models.BookingStatus, field string, amount string) datasource.Record {
		r := datasource.Record{"id": id, "date": date, "status": string(status)}
		if field != "" {
			r[field] = decimal.RequireFromString(amount)
		}
		return r
	}

	return map[datasource.Collection][]datasource.Record{
		datasource.Bookings: {
			booking("bk-001", today, models.BookingCompleted, "revenue", "180.00"),
			booking("bk-002", today, models.BookingCompleted, "price", "95.50"),
			booking("bk-003", today, models.BookingPending, "revenue", "240.00"),
			booking("bk-004", today, models.BookingConfirmed, "price", "60.00"),
			booking("bk-005", today, models.BookingCancelled, "", ""),
			booking("bk-006", yesterday, models.BookingCompleted, "revenue", "310.00"),
			booking("bk-007", tomorrow, models.BookingPending, "price", "120.00"),
		},
		datasource.Conversations: {
			{"id": "cv-001", "unreadCount": 3},
			{"id": "cv-002", "unreadCount": 0},
			{"id": "cv-003", "unreadCount": 5},
			{"id": "cv-004", "unreadCount": 1},
		},
		datasource.Clients: {
			{"id": "cl-001", "name": "Harbor Dental"},
			{"id": "cl-002", "name": "Lumen Studio"},
			{"id": "cl-003", "name": "Northwind Yoga"},
		},
	}
}

// Seed replaces every collection in w with DemoRecords.
func Seed(ctx context.Context, w datasource.Writer, now time.Time, loc *time.Location) error {
	records := DemoRecords(now, loc)
	for _, c := range datasource.Collections {
		if err := w.Replace(ctx, c, records[c]); err != nil {
			return fmt.Errorf("seed %s: %w", c, err)
		}
	}
	return nil
}
