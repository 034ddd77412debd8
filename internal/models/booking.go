// Package models defines data structures and domain types.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DayLayout is the calendar-day format used for booking dates and the day window.
const DayLayout = "2006-01-02"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is a read-only view of a booking record. Revenue is nil only when
// the record has no revenue; a malformed one reads as zero.
type Booking struct {
	ID      string
	Date    string
	Status  BookingStatus
	Revenue *decimal.Decimal
	Price   *decimal.Decimal
}

// HasDate reports whether the record carried a usable date.
func (b Booking) HasDate() bool {
	return b.Date != ""
}

// Amount returns revenue when the record has one, else price if numeric,
// else zero.
func (b Booking) Amount() decimal.Decimal {
	if b.Revenue != nil {
		return *b.Revenue
	}
	if b.Price != nil {
		return *b.Price
	}
	return decimal.Zero
}

// IsCompleted reports whether the booking counts towards revenue.
func (b Booking) IsCompleted() bool {
	return b.Status == BookingCompleted
}

// BookingFromRecord decodes a raw document. Malformed fields degrade to their
// zero value instead of failing the whole record.
func BookingFromRecord(doc map[string]any, loc *time.Location) Booking {
	b := Booking{
		ID:     stringField(doc, "id", "_id"),
		Date:   dayField(doc["date"], loc),
		Status: BookingStatus(strings.ToLower(stringField(doc, "status"))),
	}
	if raw, ok := doc["revenue"]; ok && raw != nil {
		v, numeric := toDecimal(raw)
		if !numeric {
			v = decimal.Zero
		}
		b.Revenue = &v
	}
	if v, ok := toDecimal(doc["price"]); ok {
		b.Price = &v
	}
	return b
}

// BookingsFromRecords decodes every record in order.
func BookingsFromRecords[R ~map[string]any](docs []R, loc *time.Location) []Booking {
	out := make([]Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, BookingFromRecord(doc, loc))
	}
	return out
}

// dayField normalizes a date value to DayLayout. Longer ISO timestamps are cut
// to their day prefix.
func dayField(v any, loc *time.Location) string {
	switch d := v.(type) {
	case string:
		d = strings.TrimSpace(d)
		if len(d) > len(DayLayout) {
			if _, err := time.Parse(DayLayout, d[:len(DayLayout)]); err == nil {
				return d[:len(DayLayout)]
			}
		}
		return d
	case time.Time:
		if d.IsZero() {
			return ""
		}
		if loc != nil {
			d = d.In(loc)
		}
		return d.Format(DayLayout)
	case *time.Time:
		if d == nil {
			return ""
		}
		return dayField(*d, loc)
	default:
		return ""
	}
}
