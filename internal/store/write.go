package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/edix/internal/ir"
)

// CreateRecord inserts a new exchange record with version 1.
// CreatedAt and UpdatedAt must be set by the caller.
// Returns ErrDuplicate if a record with the same ID exists.
func (s *Store) CreateRecord(ctx context.Context, rec *ir.ExchangeRecord) error {
	if err := rec.CheckState(); err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	file, digest := encodeFile(rec.File)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO exchange_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Backend,
		rec.Type,
		string(rec.Direction),
		string(rec.State),
		file,
		digest,
		rec.Filename,
		nullString(rec.Error),
		rec.ExternalIdentifier,
		rec.Related.Kind,
		rec.Related.ID,
		formatNullTime(rec.ExchangedAt),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("create record %s: %w", rec.ID, ErrDuplicate)
	}

	rec.Version = 1
	return nil
}

// UpdateRecord persists every mutable field of rec.
//
// The write only applies when the stored version equals rec.Version. On
// success rec.Version is incremented to match the stored row. Returns
// ErrConflict when the row changed since it was read, ErrNotFound when it
// does not exist.
func (s *Store) UpdateRecord(ctx context.Context, rec *ir.ExchangeRecord) error {
	if err := rec.CheckState(); err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	file, digest := encodeFile(rec.File)

	res, err := s.db.ExecContext(ctx, `
		UPDATE exchange_records SET
			state = ?,
			file = ?,
			file_digest = ?,
			filename = ?,
			error = ?,
			external_identifier = ?,
			related_kind = ?,
			related_id = ?,
			exchanged_at = ?,
			updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`,
		string(rec.State),
		file,
		digest,
		rec.Filename,
		nullString(rec.Error),
		rec.ExternalIdentifier,
		rec.Related.Kind,
		rec.Related.ID,
		formatNullTime(rec.ExchangedAt),
		formatTime(rec.UpdatedAt),
		rec.ID,
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM exchange_records WHERE id = ?", rec.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("update record %s: %w", rec.ID, ErrNotFound)
		}
		return fmt.Errorf("update record %s (version %d): %w", rec.ID, rec.Version, ErrConflict)
	}

	rec.Version++
	return nil
}

// AppendActivity writes a notification to the activity log of its related entity.
// Uses ON CONFLICT(notification_id) DO NOTHING for idempotency - a notification
// with identical content is recorded once. Returns the notification ID.
func (s *Store) AppendActivity(ctx context.Context, n ir.Notification) (string, error) {
	if n.Related.IsZero() {
		return "", fmt.Errorf("append activity: notification for record %s has no related entity", n.RecordID)
	}

	id, err := ir.NotificationID(n)
	if err != nil {
		return "", fmt.Errorf("append activity: %w", err)
	}
	payload, err := ir.MarshalNotification(n)
	if err != nil {
		return "", fmt.Errorf("append activity: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity_log
		(notification_id, record_id, backend, type_code, related_kind, related_id,
		 level, message, state, error, at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(notification_id) DO NOTHING
	`,
		id,
		n.RecordID,
		n.Backend,
		n.Type,
		n.Related.Kind,
		n.Related.ID,
		string(n.Level),
		n.Message,
		string(n.State),
		n.Error,
		formatTime(n.At),
		string(payload),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return "", fmt.Errorf("append activity: record %s: %w", n.RecordID, ErrNotFound)
		}
		return "", fmt.Errorf("append activity: %w", err)
	}

	return id, nil
}
