package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/edix/internal/ir"
)

var testEpoch = time.Date(2020, 10, 21, 10, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates an outbound record with minimal required fields.
func createTestRecord(id string, offset time.Duration) *ir.ExchangeRecord {
	at := testEpoch.Add(offset)
	return &ir.ExchangeRecord{
		ID:        id,
		Backend:   "demo",
		Type:      "orders_out",
		Direction: ir.DirectionOutbound,
		State:     ir.StateNew,
		Filename:  id + ".csv",
		Related:   ir.EntityRef{Kind: "sale.order", ID: "SO001"},
		CreatedAt: at,
		UpdatedAt: at,
	}
}
