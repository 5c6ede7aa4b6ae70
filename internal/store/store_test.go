package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edix/internal/ir"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.verifyPragma("journal_mode", "wal"))
	require.NoError(t, s.verifyPragma("foreign_keys", "1"))
	require.NoError(t, s.verifyPragma("user_version", "1"))
	require.NoError(t, s.Ping(context.Background()))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.CreateRecord(context.Background(), createTestRecord("r1", 0)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	rec, err := s2.ReadRecord(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
}

func TestCreateRecord_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("r1", 0)
	rec.File = []byte("a,b\n1,2\n")
	rec.State = ir.StateOutputPending
	rec.ExternalIdentifier = "EXT-1"
	require.NoError(t, s.CreateRecord(ctx, rec))
	assert.Equal(t, int64(1), rec.Version)

	got, err := s.ReadRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, rec.File, got.File)
	assert.Equal(t, ir.StateOutputPending, got.State)
	assert.Equal(t, ir.DirectionOutbound, got.Direction)
	assert.Equal(t, "EXT-1", got.ExternalIdentifier)
	assert.Equal(t, rec.Related, got.Related)
	assert.Nil(t, got.Error)
	assert.Nil(t, got.ExchangedAt)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, int64(1), got.Version)
}

func TestCreateRecord_Duplicate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, createTestRecord("r1", 0)))
	err := s.CreateRecord(ctx, createTestRecord("r1", 0))
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestCreateRecord_RejectsBadState(t *testing.T) {
	s := createTestStore(t)

	rec := createTestRecord("r1", 0)
	rec.State = ir.StateInputReceived
	err := s.CreateRecord(context.Background(), rec)
	require.Error(t, err)

	var se *ir.StateError
	assert.True(t, errors.As(err, &se))
}

func TestReadRecord_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRecord(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReadRecord_DigestMismatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("r1", 0)
	rec.File = []byte("payload")
	require.NoError(t, s.CreateRecord(ctx, rec))

	_, err := s.db.Exec("UPDATE exchange_records SET file_digest = 'bogus' WHERE id = 'r1'")
	require.NoError(t, err)

	_, err = s.ReadRecord(ctx, "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestUpdateRecord_Versioning(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, createTestRecord("r1", 0)))

	a, err := s.ReadRecord(ctx, "r1")
	require.NoError(t, err)
	b, err := s.ReadRecord(ctx, "r1")
	require.NoError(t, err)

	sent := testEpoch.Add(time.Minute)
	a.State = ir.StateOutputPending
	a.File = []byte("x")
	a.ExchangedAt = &sent
	a.SetError(errors.New("boom"))
	require.NoError(t, s.UpdateRecord(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	// b still holds version 1 and must lose.
	b.State = ir.StateOutputPending
	err = s.UpdateRecord(ctx, b)
	assert.True(t, errors.Is(err, ErrConflict))

	got, err := s.ReadRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got.File)
	assert.Equal(t, "boom", got.ErrorText())
	require.NotNil(t, got.ExchangedAt)
	assert.True(t, sent.Equal(*got.ExchangedAt))
	assert.Equal(t, int64(2), got.Version)

	// Clearing the error writes NULL.
	got.SetError(nil)
	require.NoError(t, s.UpdateRecord(ctx, got))
	again, err := s.ReadRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, again.Error)
}

func TestUpdateRecord_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.UpdateRecord(context.Background(), createTestRecord("missing", 0))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRecords_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := createTestRecord("r1", 2*time.Second)
	r2 := createTestRecord("r2", time.Second)
	r2.State = ir.StateOutputPending
	r3 := createTestRecord("r3", 3*time.Second)
	r3.Direction = ir.DirectionInbound
	r3.Type = "orders_in"
	r3.Related = ir.EntityRef{Kind: "sale.order", ID: "SO002"}
	for _, r := range []*ir.ExchangeRecord{r1, r2, r3} {
		require.NoError(t, s.CreateRecord(ctx, r))
	}

	all, err := s.ListRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1", "r3"}, recordIDs(all))

	out, err := s.ListRecords(ctx, RecordFilter{Direction: ir.DirectionOutbound})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, recordIDs(out))

	pending, err := s.ListRecords(ctx, RecordFilter{States: []ir.State{ir.StateOutputPending, ir.StateOutputErrorOnSend}})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, recordIDs(pending))

	related, err := s.ListRecords(ctx, RecordFilter{Related: ir.EntityRef{Kind: "sale.order", ID: "SO002"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, recordIDs(related))

	limited, err := s.ListRecords(ctx, RecordFilter{Backend: "demo", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, recordIDs(limited))

	none, err := s.ListRecords(ctx, RecordFilter{Type: "unknown"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAppendActivity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, createTestRecord("r1", 0)))

	n := ir.Notification{
		RecordID: "r1",
		Backend:  "demo",
		Type:     "orders_out",
		Related:  ir.EntityRef{Kind: "sale.order", ID: "SO001"},
		Level:    ir.LevelError,
		Message:  "Exchange r1.csv (orders_out) could not be sent: timeout",
		State:    ir.StateOutputErrorOnSend,
		Error:    "timeout",
		At:       testEpoch,
	}

	id1, err := s.AppendActivity(ctx, n)
	require.NoError(t, err)
	id2, err := s.AppendActivity(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	n.Level = ir.LevelInfo
	n.Message = "Exchange r1.csv (orders_out) sent."
	n.State = ir.StateOutputSent
	n.Error = ""
	n.At = testEpoch.Add(time.Second)
	_, err = s.AppendActivity(ctx, n)
	require.NoError(t, err)

	log, err := s.ReadActivity(ctx, n.Related)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, id1, log[0].NotificationID)
	assert.Equal(t, ir.LevelError, log[0].Level)
	assert.Equal(t, "timeout", log[0].Error)
	assert.Equal(t, ir.StateOutputSent, log[1].State)
	assert.True(t, testEpoch.Add(time.Second).Equal(log[1].At))

	empty, err := s.ReadActivity(ctx, ir.EntityRef{Kind: "sale.order", ID: "other"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAppendActivity_RequiresRelated(t *testing.T) {
	s := createTestStore(t)

	_, err := s.AppendActivity(context.Background(), ir.Notification{RecordID: "r1", Level: ir.LevelInfo})
	require.Error(t, err)
}

func TestAppendActivity_UnknownRecord(t *testing.T) {
	s := createTestStore(t)

	_, err := s.AppendActivity(context.Background(), ir.Notification{
		RecordID: "missing",
		Related:  ir.EntityRef{Kind: "sale.order", ID: "SO001"},
		Level:    ir.LevelInfo,
		State:    ir.StateNew,
		At:       testEpoch,
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func recordIDs(recs []*ir.ExchangeRecord) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}
