package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/models"
)

// BookingTotals counts bookings dated day, whatever their status, and sums
// the amount of the completed ones.
func BookingTotals(bookings []models.Booking, day string) (count int, revenue decimal.Decimal) {
	revenue = decimal.Zero
	for _, b := range bookings {
		if !b.HasDate() || b.Date != day {
			continue
		}
		count++
		if b.IsCompleted() {
			revenue = revenue.Add(b.Amount())
		}
	}
	return count, revenue
}

// PendingMessages sums unread counts across every conversation.
func PendingMessages(conversations []models.Conversation) int {
	total := 0
	for _, c := range conversations {
		total += c.UnreadCount
	}
	return total
}

func bookingPatch(records []datasource.Record, day string, loc *time.Location) models.Patch {
	count, revenue := BookingTotals(models.BookingsFromRecords(records, loc), day)
	return models.Patch{TodaysBookings: &count, RevenueToday: &revenue}
}

func conversationPatch(records []datasource.Record) models.Patch {
	return models.Patch{PendingMessages: models.Ptr(PendingMessages(models.ConversationsFromRecords(records)))}
}

func clientPatch(records []datasource.Record) models.Patch {
	return models.Patch{ActiveCustomers: models.Ptr(len(records))}
}
