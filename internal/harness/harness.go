package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/edix/internal/compiler"
	"github.com/roach88/edix/internal/component"
	"github.com/roach88/edix/internal/engine"
	"github.com/roach88/edix/internal/ir"
	"github.com/roach88/edix/internal/notify"
	"github.com/roach88/edix/internal/store"
	"github.com/roach88/edix/internal/testutil"
)

// Harness holds the per-run state of a scenario.
type Harness struct {
	store   *store.Store
	backend *engine.Backend
	clock   *testutil.FixedClock
	stubs   map[string]*testutil.Stub
	records map[string]*ir.ExchangeRecord
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create fresh in-memory database
//  2. Load the catalog and register the stubs
//  3. Execute steps, checking their expect clauses
//  4. Evaluate assertions
//
// The returned error is reserved for scenarios that cannot run; failed
// expectations are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(scenario, st)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	for alias, rec := range h.records {
		result.Records[alias] = rec
	}
	for _, msg := range h.evaluate(ctx, scenario.Assertions, result) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario, st *store.Store) (*Harness, error) {
	cat := testutil.DemoCatalog("")
	if scenario.Catalog != "" {
		var err error
		if cat, err = compiler.LoadCatalog(scenario.Catalog); err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	backendCode := scenario.Backend
	if backendCode == "" {
		backendCode = testutil.DemoBackend
	}

	reg := component.NewRegistry()
	stubs := make(map[string]*testutil.Stub, len(scenario.Stubs))
	for _, def := range scenario.Stubs {
		usage := def.Usage
		if usage == "" {
			xt, ok := cat.ExchangeType(backendCode, def.Type)
			if !ok {
				return nil, fmt.Errorf("stub %q: %w", def.Name, engine.NewUnknownTypeError(backendCode, def.Type))
			}
			usage = xt.Usage(ir.Operation(def.Op))
		}
		stub := newStub(def)
		if err := reg.Register(component.Component{Name: def.Name, Usage: []string{usage}, Impl: stub}); err != nil {
			return nil, fmt.Errorf("stub %q: %w", def.Name, err)
		}
		stubs[def.Name] = stub
	}
	reg.Freeze()

	clock := testutil.NewFixedClock(testutil.Epoch)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	activity := notify.NewStoreActivityLog(st)
	notifier := notify.New(notify.SinkFunc(activity.LogActivity), notify.WithClock(clock), notify.WithLogger(logger))

	backend, err := engine.New(engine.Config{
		Backend:  backendCode,
		Catalog:  cat,
		Registry: reg,
		Store:    st,
		Notifier: notifier,
		Clock:    clock,
		IDs:      testutil.NewSequenceIDs("rec"),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &Harness{
		store:   st,
		backend: backend,
		clock:   clock,
		stubs:   stubs,
		records: make(map[string]*ir.ExchangeRecord),
		logger:  logger,
	}, nil
}

func newStub(def StubSpec) *testutil.Stub {
	stub := testutil.NewStub(def.Content)
	if def.Error != "" {
		stub.Fail(errors.New(def.Error))
	}
	if def.ExternalID != "" {
		stub.WithExternalID(def.ExternalID)
	}
	if def.Panic != "" {
		msg := def.Panic
		stub.WithHook(func(context.Context, *ir.ExchangeRecord) { panic(msg) })
	}
	return stub
}

// execute runs one step and appends its trace event.
func (h *Harness) execute(ctx context.Context, i int, step Step, result *Result) error {
	ev := TraceEvent{Op: step.Op, Record: step.Record}
	var (
		opErr   error
		out     *engine.Outcome
		content *string
	)

	switch step.Op {
	case OpCreate:
		in, err := recordInput(step)
		if err != nil {
			return err
		}
		rec, err := h.backend.CreateRecord(ctx, step.Type, in)
		opErr = err
		if err == nil {
			h.records[step.Record] = rec
		}

	case OpGenerate:
		s, err := h.backend.GenerateOutput(ctx, h.records[step.Record], !step.NoStore)
		opErr = err
		content = &s

	case OpSend, OpReceive, OpProcess:
		rec := h.records[step.Record]
		var o engine.Outcome
		var err error
		switch step.Op {
		case OpSend:
			o, err = h.backend.Send(ctx, rec)
		case OpReceive:
			o, err = h.backend.Receive(ctx, rec)
		default:
			o, err = h.backend.Process(ctx, rec)
		}
		opErr = err
		if err == nil {
			out = &o
			ev.Outcome = string(o.Status)
		}

	case OpStub:
		stub := h.stubs[step.Stub]
		if step.Error != nil {
			if *step.Error == "" {
				stub.Succeed()
			} else {
				stub.Fail(errors.New(*step.Error))
			}
		}
		if step.Content != nil {
			stub.WithContent(*step.Content)
		}
		ev.Record = step.Stub

	case OpAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
	}

	if rec, ok := h.records[step.Record]; ok && step.Op != OpStub {
		ev.RecordID = rec.ID
		ev.State = string(rec.State)
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	} else if out != nil && out.Err != nil {
		ev.Error = out.Err.Error()
	}
	result.addTrace(ev)

	for _, msg := range h.check(step, ev, opErr, out, content) {
		result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", i, step.Op, step.Record, msg))
	}
	return nil
}

// check compares a step result with its expect clause. A step without an
// expect clause must not return an error.
func (h *Harness) check(step Step, ev TraceEvent, opErr error, out *engine.Outcome, content *string) []string {
	e := step.Expect
	if e == nil {
		if opErr != nil {
			return []string{fmt.Sprintf("unexpected error: %v", opErr)}
		}
		return nil
	}

	var msgs []string
	switch {
	case e.Error == "" && e.Code == "" && opErr != nil:
		msgs = append(msgs, fmt.Sprintf("unexpected error: %v", opErr))
	case e.Error != "" && (opErr == nil || !strings.Contains(opErr.Error(), e.Error)):
		msgs = append(msgs, fmt.Sprintf("expected error containing %q, got %v", e.Error, opErr))
	}
	if e.Code != "" && string(engine.Code(opErr)) != e.Code {
		msgs = append(msgs, fmt.Sprintf("expected error code %s, got %q", e.Code, engine.Code(opErr)))
	}
	if e.Outcome != "" && ev.Outcome != e.Outcome {
		msgs = append(msgs, fmt.Sprintf("expected outcome %s, got %q", e.Outcome, ev.Outcome))
	}
	if e.State != "" && ev.State != e.State {
		msgs = append(msgs, fmt.Sprintf("expected state %s, got %s", e.State, ev.State))
	}
	if e.RecordError != "" {
		got := ""
		if rec, ok := h.records[step.Record]; ok {
			got = rec.ErrorText()
		}
		if !strings.Contains(got, e.RecordError) {
			msgs = append(msgs, fmt.Sprintf("expected record error containing %q, got %q", e.RecordError, got))
		}
	}
	if e.Content != nil && (content == nil || *content != *e.Content) {
		got := "<none>"
		if content != nil {
			got = *content
		}
		msgs = append(msgs, fmt.Sprintf("expected content %q, got %q", *e.Content, got))
	}
	return msgs
}

func recordInput(step Step) (engine.RecordInput, error) {
	in := engine.RecordInput{Filename: step.Filename}
	if step.File != "" {
		in.File = []byte(step.File)
	}
	if step.State != "" {
		s, err := ir.ParseState(step.State)
		if err != nil {
			return in, err
		}
		in.State = s
	}
	if step.Related != "" {
		ref, err := ParseEntityRef(step.Related)
		if err != nil {
			return in, err
		}
		in.Related = ref
	}
	return in, nil
}
