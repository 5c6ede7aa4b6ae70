package store

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/roach88/edix/internal/ir"
)

// timeLayout is fixed-width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// encodeFile converts a payload to its base64 column value and digest.
func encodeFile(file []byte) (encoded, digest string) {
	if len(file) == 0 {
		return "", ""
	}
	return base64.StdEncoding.EncodeToString(file), ir.PayloadDigest(file)
}

// decodeFile reverses encodeFile and verifies the stored digest.
func decodeFile(recordID, encoded, digest string) ([]byte, error) {
	if encoded == "" {
		if digest != "" {
			return nil, fmt.Errorf("record %s: digest present without file", recordID)
		}
		return nil, nil
	}
	file, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("record %s: decode file: %w", recordID, err)
	}
	if got := ir.PayloadDigest(file); got != digest {
		return nil, fmt.Errorf("record %s: file digest mismatch: stored %s, computed %s", recordID, digest, got)
	}
	return file, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const recordColumns = `id, backend, type_code, direction, state, file, file_digest, filename,
	error, external_identifier, related_kind, related_id, exchanged_at,
	created_at, updated_at, version`

func scanRecord(row rowScanner) (*ir.ExchangeRecord, error) {
	var (
		rec                  ir.ExchangeRecord
		direction, state     string
		file, digest         string
		errText, exchangedAt sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&rec.ID, &rec.Backend, &rec.Type, &direction, &state, &file, &digest, &rec.Filename,
		&errText, &rec.ExternalIdentifier, &rec.Related.Kind, &rec.Related.ID, &exchangedAt,
		&createdAt, &updatedAt, &rec.Version,
	); err != nil {
		return nil, err
	}

	rec.Direction = ir.Direction(direction)
	rec.State = ir.State(state)
	rec.Error = stringPtr(errText)

	var err error
	if rec.File, err = decodeFile(rec.ID, file, digest); err != nil {
		return nil, err
	}
	if rec.ExchangedAt, err = parseNullTime(exchangedAt); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
