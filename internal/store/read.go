package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/edix/internal/ir"
)

// RecordFilter narrows ListRecords. Zero-valued fields match everything.
type RecordFilter struct {
	Backend   string
	Type      string
	Direction ir.Direction
	States    []ir.State
	Related   ir.EntityRef
	Limit     int
}

// ReadRecord returns the record with the given ID.
// Returns ErrNotFound if no such record exists.
func (s *Store) ReadRecord(ctx context.Context, id string) (*ir.ExchangeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM exchange_records
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", id, err)
	}
	return rec, nil
}

// ListRecords returns the records matching f.
// Results are ordered deterministically: ORDER BY created_at ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRecords(ctx context.Context, f RecordFilter) ([]*ir.ExchangeRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Backend != "" {
		where = append(where, "backend = ?")
		args = append(args, f.Backend)
	}
	if f.Type != "" {
		where = append(where, "type_code = ?")
		args = append(args, f.Type)
	}
	if f.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, string(f.Direction))
	}
	if len(f.States) > 0 {
		marks := make([]string, len(f.States))
		for i, st := range f.States {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "state IN ("+strings.Join(marks, ", ")+")")
	}
	if !f.Related.IsZero() {
		where = append(where, "related_kind = ? AND related_id = ?")
		args = append(args, f.Related.Kind, f.Related.ID)
	}

	query := "SELECT " + recordColumns + " FROM exchange_records"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []*ir.ExchangeRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Activity is one persisted activity log entry.
type Activity struct {
	Seq            int64
	NotificationID string
	ir.Notification
}

// ReadActivity returns the activity log of an entity in insertion order.
func (s *Store) ReadActivity(ctx context.Context, ref ir.EntityRef) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, notification_id, record_id, backend, type_code, related_kind, related_id,
		       level, message, state, error, at
		FROM activity_log
		WHERE related_kind = ? AND related_id = ?
		ORDER BY id ASC
	`, ref.Kind, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	entries := []Activity{}
	for rows.Next() {
		var (
			a            Activity
			level, state string
			at           string
		)
		if err := rows.Scan(
			&a.Seq, &a.NotificationID, &a.RecordID, &a.Backend, &a.Type,
			&a.Related.Kind, &a.Related.ID, &level, &a.Message, &state, &a.Error, &at,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Level = ir.Level(level)
		a.State = ir.State(state)
		if a.At, err = parseTime(at); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}

// PendingRecords lists records of a backend in the given states.
// An empty typeCode matches every exchange type.
func (s *Store) PendingRecords(ctx context.Context, backend, typeCode string, direction ir.Direction, states []ir.State) ([]*ir.ExchangeRecord, error) {
	return s.ListRecords(ctx, RecordFilter{
		Backend:   backend,
		Type:      typeCode,
		Direction: direction,
		States:    states,
	})
}
