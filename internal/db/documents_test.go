package db

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/models"
)

func seedBookings(t *testing.T, db *DB) {
	t.Helper()
	err := db.Replace(context.Background(), datasource.Bookings, []datasource.Record{
		{"id": "b1", "date": "2024-01-01", "status": "completed", "revenue": 500},
		{"id": "b2", "date": "2024-01-01", "status": "pending", "revenue": 300},
		{"id": "b3", "date": "2024-01-02", "status": "completed", "price": decimal.RequireFromString("200.00")},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
}

func TestSnapshot_Filter(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	seedBookings(t, db)

	tests := []struct {
		name   string
		filter datasource.Filter
		want   []string
	}{
		{"unfiltered", nil, []string{"b1", "b2", "b3"}},
		{"by date", datasource.Eq("date", "2024-01-01"), []string{"b1", "b2"}},
		{"by date and status", datasource.Filter{"date": "2024-01-01", "status": "pending"}, []string{"b2"}},
		{"no match", datasource.Eq("date", "2023-12-31"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := db.Snapshot(context.Background(), datasource.Bookings, tt.filter)
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			if len(records) != len(tt.want) {
				t.Fatalf("Expected %d records, got %d", len(tt.want), len(records))
			}
			for i, id := range tt.want {
				if records[i]["id"] != id {
					t.Errorf("Record %d: expected id %s, got %v", i, id, records[i]["id"])
				}
			}
		})
	}
}

func TestSnapshot_DecodesForModels(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	seedBookings(t, db)

	records, err := db.Snapshot(context.Background(), datasource.Bookings, datasource.Eq("date", "2024-01-02"))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	b := models.BookingFromRecord(records[0], time.UTC)
	if got := b.Amount(); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected amount 200, got %s", got)
	}

	all, err := db.Snapshot(context.Background(), datasource.Bookings, nil)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if _, ok := all[0]["revenue"].(json.Number); !ok {
		t.Errorf("Expected json.Number revenue, got %T", all[0]["revenue"])
	}
}

func TestSnapshot_UnknownCollection(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, err := db.Snapshot(context.Background(), "payments", nil)
	if !errors.Is(err, datasource.ErrUnknownCollection) {
		t.Errorf("Expected ErrUnknownCollection, got %v", err)
	}
}

func TestUpsertAndDelete(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	id, err := db.Upsert(ctx, datasource.Clients, datasource.Record{"name": "Ada"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected generated id")
	}

	if _, err := db.Upsert(ctx, datasource.Clients, datasource.Record{"id": id, "name": "Ada L."}); err != nil {
		t.Fatalf("Upsert update failed: %v", err)
	}

	records, err := db.Snapshot(ctx, datasource.Clients, nil)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(records) != 1 || records[0]["name"] != "Ada L." {
		t.Fatalf("Expected one updated client, got %v", records)
	}

	if err := db.Delete(ctx, datasource.Clients, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	records, _ = db.Snapshot(ctx, datasource.Clients, nil)
	if len(records) != 0 {
		t.Errorf("Expected empty collection, got %d", len(records))
	}
}

func TestSnapshot_SkipsCorruptRows(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	seedBookings(t, db)

	_, err := db.ExecContext(context.Background(),
		"INSERT INTO documents (collection, id, doc) VALUES ('bookings', 'bad', '{not json')")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	records, err := db.Snapshot(context.Background(), datasource.Bookings, nil)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 readable records, got %d", len(records))
	}
}

func TestSubscribe_Polls(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	var mu sync.Mutex
	var sizes []int
	unsubscribe, err := db.Subscribe(context.Background(), datasource.Conversations, nil, func(rs []datasource.Record, err error) {
		if err != nil {
			return
		}
		mu.Lock()
		sizes = append(sizes, len(rs))
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsubscribe()

	if _, err := db.Upsert(context.Background(), datasource.Conversations, datasource.Record{"id": "v1", "unreadCount": 2}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := append([]int(nil), sizes...)
		mu.Unlock()
		if len(got) > 0 && got[len(got)-1] == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected a delivery with one record, got %v", sizes)
}

func TestSnapshotQuery(t *testing.T) {
	query, args := snapshotQuery(datasource.Bookings, datasource.Filter{"status": "completed", "date": "2024-01-01"})

	want := "SELECT doc FROM documents WHERE collection = ? AND json_extract(doc, ?) = ? AND json_extract(doc, ?) = ? ORDER BY id"
	if query != want {
		t.Errorf("Unexpected query:\n%s", query)
	}
	wantArgs := []any{"bookings", `$."date"`, "2024-01-01", `$."status"`, "completed"}
	for i := range wantArgs {
		if args[i] != wantArgs[i] {
			t.Errorf("Arg %d: expected %v, got %v", i, wantArgs[i], args[i])
		}
	}
}
