package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
)

var (
	_ datasource.DataSource = (*DB)(nil)
	_ datasource.Writer     = (*DB)(nil)
)

// Snapshot implements datasource.DataSource.
func (db *DB) Snapshot(ctx context.Context, c datasource.Collection, f datasource.Filter) ([]datasource.Record, error) {
	if err := datasource.Validate(c); err != nil {
		return nil, err
	}

	query, args := snapshotQuery(c, f)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]datasource.Record, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c, err)
		}
		record, err := decodeDocument(raw)
		if err != nil {
			// One corrupt row must not hide the rest of the collection.
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c, err)
	}
	return records, nil
}

// Subscribe implements datasource.DataSource by polling.
func (db *DB) Subscribe(
	ctx context.Context, c datasource.Collection, f datasource.Filter, fn datasource.ChangeFunc,
) (datasource.Unsubscribe, error) {
	if err := datasource.Validate(c); err != nil {
		return nil, err
	}
	wake, release := db.changes.subscribe(c)
	stop := datasource.PollWithWake(ctx, db.pollInterval, wake, func(ctx context.Context) ([]datasource.Record, error) {
		return db.Snapshot(ctx, c, f)
	}, fn)
	return func() {
		stop()
		release()
	}, nil
}

// Upsert stores one document. Records without an id get a generated one,
// which is returned.
func (db *DB) Upsert(ctx context.Context, c datasource.Collection, record datasource.Record) (string, error) {
	if err := datasource.Validate(c); err != nil {
		return "", err
	}
	id, err := db.upsert(ctx, db.DB, c, record)
	if err == nil {
		db.changes.notify(c)
	}
	return id, err
}

// Delete removes one document.
func (db *DB) Delete(ctx context.Context, c datasource.Collection, id string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?", string(c), id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c, id, err)
	}
	db.changes.notify(c)
	return nil
}

// Replace implements datasource.Writer in a single transaction.
func (db *DB) Replace(ctx context.Context, c datasource.Collection, records []datasource.Record) error {
	if err := datasource.Validate(c); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = ?", string(c)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear %s: %w", c, err)
	}
	for _, r := range records {
		if _, err := db.upsert(ctx, tx, c, r); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", c, err)
	}
	db.changes.notify(c)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) upsert(ctx context.Context, ex execer, c datasource.Collection, record datasource.Record) (string, error) {
	id := documentID(record)
	if id == "" {
		id = uuid.NewString()
		record = maps.Clone(record)
		record["id"] = id
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s/%s: %w", c, id, err)
	}

	query := `
		INSERT INTO documents (collection, id, doc, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, id) DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`
	if _, err := ex.ExecContext(ctx, query, string(c), id, string(data)); err != nil {
		return "", fmt.Errorf("failed to upsert %s/%s: %w", c, id, err)
	}
	return id, nil
}

func documentID(record datasource.Record) string {
	for _, key := range []string{"id", "_id"} {
		switch v := record[key].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// snapshotQuery pushes equality filters into SQL. Keys are sorted so equal
// filters produce equal statements.
func snapshotQuery(c datasource.Collection, f datasource.Filter) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT doc FROM documents WHERE collection = ?")
	args := []any{string(c)}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString(" AND json_extract(doc, ?) = ?")
		args = append(args, jsonPath(k), f[k])
	}
	b.WriteString(" ORDER BY id")
	return b.String(), args
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// decodeDocument keeps numbers as json.Number so amounts keep their precision.
func decodeDocument(raw string) (datasource.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var record datasource.Record
	if err := dec.Decode(&record); err != nil {
		return nil, err
	}
	return record, nil
}
