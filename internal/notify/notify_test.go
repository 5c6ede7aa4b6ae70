package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edix/internal/ir"
	"github.com/roach88/edix/internal/testutil"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	bodies [][]byte
	err    error
}

func (p *fakePublisher) Publish(topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.bodies = append(p.bodies, body)
	return nil
}

func sampleRecord() *ir.ExchangeRecord {
	rec := &ir.ExchangeRecord{
		ID:        "rec-0001",
		Backend:   "demo",
		Type:      "orders_out",
		Direction: ir.DirectionOutbound,
		State:     ir.StateOutputErrorOnSend,
		Filename:  "out.csv",
		Related:   ir.EntityRef{Kind: "sale.order", ID: "SO001"},
	}
	rec.SetError(errors.New("boom"))
	return rec
}

func TestNotifier_RoutesByKind(t *testing.T) {
	var got []ir.Notification
	reg := NewEntityRegistry()
	require.NoError(t, reg.Register("sale.order", ActivityLoggerFunc(func(ctx context.Context, n ir.Notification) error {
		got = append(got, n)
		return nil
	})))

	n := New(reg, WithClock(testutil.NewFixedClock(testutil.Epoch)))
	rec := sampleRecord()
	n.Notify(context.Background(), rec, ir.LevelError, rec.SendErrorMessage())

	require.Len(t, got, 1)
	assert.Equal(t, ir.Notification{
		RecordID: "rec-0001",
		Backend:  "demo",
		Type:     "orders_out",
		Related:  rec.Related,
		Level:    ir.LevelError,
		Message:  "Exchange out.csv (orders_out) could not be sent: boom",
		State:    ir.StateOutputErrorOnSend,
		Error:    "boom",
		At:       testutil.Epoch,
	}, got[0])
}

func TestNotifier_UnsupportedKindIsSilent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reg := NewEntityRegistry()
	n := New(reg, WithLogger(logger))

	rec := sampleRecord()
	rec.Related = ir.EntityRef{Kind: "res.partner", ID: "7"}
	n.Notify(context.Background(), rec, ir.LevelInfo, "hello")

	rec.Related = ir.EntityRef{}
	n.Notify(context.Background(), rec, ir.LevelInfo, "hello")

	assert.Empty(t, buf.String())
	assert.False(t, reg.Supports("res.partner"))
}

func TestNotifier_DeliveryFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	failing := SinkFunc(func(ctx context.Context, n ir.Notification) error {
		return errors.New("disk full")
	})
	New(failing, WithLogger(logger)).Notify(context.Background(), sampleRecord(), ir.LevelInfo, "x")

	assert.Contains(t, buf.String(), "notification not delivered")
	assert.Contains(t, buf.String(), "disk full")
}

func TestEntityRegistry_Register(t *testing.T) {
	reg := NewEntityRegistry()
	noop := ActivityLoggerFunc(func(ctx context.Context, n ir.Notification) error { return nil })

	assert.Error(t, reg.Register("", noop))
	assert.Error(t, reg.Register("sale.order", nil))
	require.NoError(t, reg.Register("sale.order", noop))
	assert.Error(t, reg.Register("sale.order", noop))
	require.NoError(t, reg.Register("account.move", noop))

	assert.Equal(t, []string{"account.move", "sale.order"}, reg.Kinds())
}

func TestStoreActivityLog(t *testing.T) {
	st := testutil.OpenStore(t)
	ctx := context.Background()

	rec := &ir.ExchangeRecord{
		ID:        "rec-0001",
		Backend:   "demo",
		Type:      "orders_out",
		Direction: ir.DirectionOutbound,
		State:     ir.StateNew,
		Related:   ir.EntityRef{Kind: "sale.order", ID: "SO001"},
		CreatedAt: testutil.Epoch,
		UpdatedAt: testutil.Epoch,
	}
	require.NoError(t, st.CreateRecord(ctx, rec))

	reg := NewEntityRegistry()
	require.NoError(t, reg.Register("sale.order", NewStoreActivityLog(st)))
	New(reg, WithClock(testutil.NewFixedClock(testutil.Epoch))).Notify(ctx, rec, ir.LevelInfo, "created")

	log, err := st.ReadActivity(ctx, rec.Related)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "created", log[0].Message)
	assert.Equal(t, ir.LevelInfo, log[0].Level)
}

func TestEventPublisher(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewEventPublisher(pub, "")

	note := ir.Notification{
		RecordID: "rec-0001",
		Backend:  "demo",
		Type:     "orders_out",
		Related:  ir.EntityRef{Kind: "sale.order", ID: "SO001"},
		Level:    ir.LevelInfo,
		Message:  "sent",
		State:    ir.StateOutputSent,
		At:       testutil.Epoch,
	}
	require.NoError(t, sink.Deliver(context.Background(), note))

	require.Equal(t, []string{DefaultTopic}, pub.topics)
	want, err := ir.MarshalNotification(note)
	require.NoError(t, err)
	assert.Equal(t, want, pub.bodies[0])

	pub.err = errors.New("nsqd down")
	err = sink.Deliver(context.Background(), note)
	assert.ErrorContains(t, err, "nsqd down")
}

func TestMulti(t *testing.T) {
	pub := &fakePublisher{}
	var calls int
	first := SinkFunc(func(ctx context.Context, n ir.Notification) error {
		calls++
		return errors.New("first failed")
	})

	err := Multi{first, NewEventPublisher(pub, "custom")}.Deliver(context.Background(), ir.Notification{At: testutil.Epoch})
	assert.ErrorContains(t, err, "first failed")
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"custom"}, pub.topics)

	assert.NoError(t, Multi{}.Deliver(context.Background(), ir.Notification{}))
}
