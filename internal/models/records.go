package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Conversation is a read-only view of a conversation record.
type Conversation struct {
	ID          string
	UnreadCount int
}

// Client is a read-only view of a client record. Existence means active.
type Client struct {
	ID string
}

// ConversationFromRecord decodes a raw document. Missing, non-numeric or
// negative unread counts decode as zero.
func ConversationFromRecord(doc map[string]any) Conversation {
	c := Conversation{ID: stringField(doc, "id", "_id")}
	if v, ok := toDecimal(doc["unreadCount"]); ok && v.IsPositive() {
		c.UnreadCount = int(v.IntPart())
	}
	return c
}

// ConversationsFromRecords decodes every record in order.
func ConversationsFromRecords[R ~map[string]any](docs []R) []Conversation {
	out := make([]Conversation, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ConversationFromRecord(doc))
	}
	return out
}

// ClientFromRecord decodes a raw document.
func ClientFromRecord(doc map[string]any) Client {
	return Client{ID: stringField(doc, "id", "_id")}
}

func stringField(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case nil:
			continue
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// toDecimal converts the numeric shapes produced by JSON, BSON and SQL
// decoders. Anything else, including NaN and infinities, is non-numeric.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case float32:
		return floatDecimal(float64(n))
	case float64:
		return floatDecimal(n)
	case decimal.Decimal:
		return n, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case fmt.Stringer:
		// bson primitive.Decimal128 and friends
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func floatDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// Today returns the calendar day of t in loc.
func Today(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DayLayout)
}
