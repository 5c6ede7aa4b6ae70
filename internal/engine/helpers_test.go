package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/edix/internal/component"
	"github.com/roach88/edix/internal/ir"
	"github.com/roach88/edix/internal/store"
	"github.com/roach88/edix/internal/testutil"
)

type notice struct {
	RecordID string
	Level    ir.Level
	Message  string
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *recordingNotifier) Notify(ctx context.Context, rec *ir.ExchangeRecord, level ir.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{RecordID: rec.ID, Level: level, Message: message})
}

func (n *recordingNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

// flakyStore fails UpdateRecord with updateErr when set.
type flakyStore struct {
	*store.Store

	mu        sync.Mutex
	updateErr error
}

func (s *flakyStore) failUpdates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

func (s *flakyStore) UpdateRecord(ctx context.Context, rec *ir.ExchangeRecord) error {
	s.mu.Lock()
	err := s.updateErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.UpdateRecord(ctx, rec)
}

type fixture struct {
	backend  *Backend
	store    *store.Store
	flaky    *flakyStore
	clock    *testutil.FixedClock
	notes    *recordingNotifier
	catalog  *ir.Catalog
	registry *component.Registry
}

// newFixture builds a demo backend; register adds components before the
// registry is frozen.
func newFixture(t *testing.T, register func(f *fixture)) *fixture {
	t.Helper()
	f := &fixture{
		store:    testutil.OpenStore(t),
		clock:    testutil.NewFixedClock(testutil.Epoch),
		notes:    &recordingNotifier{},
		catalog:  testutil.DemoCatalog(""),
		registry: component.NewRegistry(),
	}
	f.flaky = &flakyStore{Store: f.store}
	if register != nil {
		register(f)
	}
	f.registry.Freeze()

	b, err := New(Config{
		Backend:  testutil.DemoBackend,
		Catalog:  f.catalog,
		Registry: f.registry,
		Store:    f.flaky,
		Notifier: f.notes,
		Clock:    f.clock,
		IDs:      testutil.NewSequenceIDs("rec"),
	})
	require.NoError(t, err)
	f.backend = b
	return f
}

// use registers impl under the conventional usage of op for typeCode.
func (f *fixture) use(typeCode string, op ir.Operation, name string, impl any) {
	xt, ok := f.catalog.ExchangeType(testutil.DemoBackend, typeCode)
	if !ok {
		panic("unknown fixture type " + typeCode)
	}
	f.registry.MustRegister(component.Component{
		Name:  name,
		Usage: []string{xt.Usage(op)},
		Impl:  impl,
	})
}

func (f *fixture) create(t *testing.T, typeCode string, in RecordInput) *ir.ExchangeRecord {
	t.Helper()
	rec, err := f.backend.CreateRecord(context.Background(), typeCode, in)
	require.NoError(t, err)
	return rec
}

// force writes state and file directly, bypassing the lifecycle.
func (f *fixture) force(t *testing.T, rec *ir.ExchangeRecord, state ir.State, file string) {
	t.Helper()
	cur, err := f.store.ReadRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	cur.State = state
	cur.File = []byte(file)
	require.NoError(t, f.store.UpdateRecord(context.Background(), cur))
	*rec = *cur
}

func (f *fixture) reload(t *testing.T, rec *ir.ExchangeRecord) *ir.ExchangeRecord {
	t.Helper()
	cur, err := f.store.ReadRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	return cur
}
