package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/edix/internal/component"
	"github.com/roach88/edix/internal/ir"
)

// Constraint keys passed to component lookups. Components narrow on them
// with Component.Match or Component.MatchFunc.
const (
	ConstraintBackend      = "backend"
	ConstraintExchangeType = "exchange_type"
	ConstraintModel        = "model"
)

// opCreate labels CreateRecord precondition errors.
const opCreate ir.Operation = "create"

// RecordStore persists exchange records. Implemented by *store.Store.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec *ir.ExchangeRecord) error
	ReadRecord(ctx context.Context, id string) (*ir.ExchangeRecord, error)
	UpdateRecord(ctx context.Context, rec *ir.ExchangeRecord) error
}

// Notifier attaches a message to the record's related entity.
// Implementations must not fail the operation; see notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, rec *ir.ExchangeRecord, level ir.Level, message string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, *ir.ExchangeRecord, ir.Level, string) {}

// Config wires a Backend. Catalog, Registry and Store are required.
type Config struct {
	Backend  string
	Catalog  *ir.Catalog
	Registry *component.Registry
	Store    RecordStore
	Notifier Notifier
	Locker   Locker
	Clock    Clock
	IDs      IDGenerator
	Logger   *slog.Logger
}

// Backend drives exchange records of one backend through their lifecycle.
//
// Every guarded operation holds the record's lock from Locker, reloads the
// record from the store, checks preconditions and the idempotency guard,
// runs the strategy and writes the transition. Distinct records never
// contend. On return the caller's record reflects the persisted row.
//
// Thread-safety: Backend is safe for concurrent use.
type Backend struct {
	backend  ir.Backend
	catalog  *ir.Catalog
	registry *component.Registry
	store    RecordStore
	notifier Notifier
	locker   Locker
	clock    Clock
	ids      IDGenerator
	logger   *slog.Logger
}

// New creates a Backend from cfg.
func New(cfg Config) (*Backend, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("engine: catalog is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("engine: component registry is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("engine: record store is required")
	}
	be, ok := cfg.Catalog.Backend(cfg.Backend)
	if !ok {
		return nil, fmt.Errorf("engine: unknown backend %q", cfg.Backend)
	}

	b := &Backend{
		backend:  be,
		catalog:  cfg.Catalog,
		registry: cfg.Registry,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		locker:   cfg.Locker,
		clock:    cfg.Clock,
		ids:      cfg.IDs,
		logger:   cfg.Logger,
	}
	if b.notifier == nil {
		b.notifier = nopNotifier{}
	}
	if b.locker == nil {
		b.locker = NewKeyedMutex()
	}
	if b.clock == nil {
		b.clock = SystemClock{}
	}
	if b.ids == nil {
		b.ids = UUIDv7Generator{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("backend", be.Code)
	return b, nil
}

// Code returns the backend code.
func (b *Backend) Code() string {
	return b.backend.Code
}

// RecordInput holds the caller-supplied fields of a new record.
type RecordInput struct {
	// State defaults to new. Inbound records may start in input_received
	// when their file arrived out-of-band.
	State              ir.State
	File               []byte
	Filename           string
	ExternalIdentifier string
	Related            ir.EntityRef
}

// CreateRecord creates and persists a record of the given exchange type.
// The direction comes from the type; the filename is built from the
// type's pattern unless in.Filename is set.
func (b *Backend) CreateRecord(ctx context.Context, typeCode string, in RecordInput) (*ir.ExchangeRecord, error) {
	xt, ok := b.catalog.ExchangeType(b.backend.Code, typeCode)
	if !ok {
		return nil, NewUnknownTypeError(b.backend.Code, typeCode)
	}

	now := b.clock.Now()
	rec := &ir.ExchangeRecord{
		ID:                 b.ids.Generate(),
		Backend:            b.backend.Code,
		Type:               xt.Code,
		Direction:          xt.Direction,
		State:              in.State,
		File:               in.File,
		Filename:           in.Filename,
		ExternalIdentifier: in.ExternalIdentifier,
		Related:            in.Related,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if rec.State == "" {
		rec.State = ir.StateNew
	}

	switch {
	case rec.State == ir.StateNew:
	case rec.State == ir.StateInputReceived && rec.Direction == ir.DirectionInbound:
		if !rec.HasFile() {
			return nil, invalidState(rec, opCreate, "input_received requires a file")
		}
	default:
		return nil, invalidState(rec, opCreate, "records start in new (inbound records may start in input_received)")
	}
	if rec.Filename == "" {
		rec.Filename = BuildFilename(b.backend, xt, rec.ID, now)
	}

	if err := b.store.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	b.logger.Debug("record created",
		"record", rec.ID,
		"type", rec.Type,
		"direction", rec.Direction,
		"state", rec.State,
		"filename", rec.Filename,
	)
	return rec, nil
}

// GenerateOutput produces the outbound payload of rec.
//
// Preconditions: rec is outbound, in state new, with no file. Violations
// return *InvalidStateError. A strategy error is returned unmodified and
// nothing changes. When store is true and the output is non-empty, the
// file is attached and the record moves to output_pending. If the type
// declares a validate component the output is validated first and a
// validation error is returned the same way. The content is returned as
// text regardless of store.
func (b *Backend) GenerateOutput(ctx context.Context, rec *ir.ExchangeRecord, store bool) (string, error) {
	var content string
	err := b.withRecord(ctx, rec, func(cur *ir.ExchangeRecord) error {
		xt, err := b.exchangeType(cur)
		if err != nil {
			return err
		}
		switch {
		case cur.Direction != ir.DirectionOutbound:
			return invalidState(cur, ir.OpGenerate, "record is not outbound")
		case cur.State != ir.StateNew:
			return invalidState(cur, ir.OpGenerate, "record is not new")
		case cur.HasFile():
			return invalidState(cur, ir.OpGenerate, "record already has a file")
		}

		gen, _, err := component.Resolve[component.Generator](b.registry, b.query(xt, ir.OpGenerate, cur, false))
		if err != nil {
			return err
		}
		out, err := gen.Generate(ctx, cur)
		if err != nil {
			return err
		}
		content = string(out)
		if !store || len(out) == 0 {
			return nil
		}

		if err := b.validate(ctx, xt, cur, out); err != nil {
			var de dispatchError
			if errors.As(err, &de) {
				return de.err
			}
			return err
		}
		cur.File = out
		cur.State = ir.StateOutputPending
		cur.UpdatedAt = b.clock.Now()
		if err := b.store.UpdateRecord(ctx, cur); err != nil {
			return err
		}
		b.logger.Debug("output generated", "record", cur.ID, "bytes", len(out))
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Send transmits an outbound record.
//
// Preconditions: rec is outbound and has a file, else *InvalidStateError.
// Outside {output_pending, output_error_on_send} the call is Skipped. A
// strategy failure is recorded on the record (error text, state
// output_error_on_send, error notification) and reported as a Failed
// Outcome; the returned error is reserved for precondition, dispatch and
// store errors.
func (b *Backend) Send(ctx context.Context, rec *ir.ExchangeRecord) (Outcome, error) {
	return b.guarded(ctx, rec, guardedOp{
		op:        ir.OpSend,
		direction: ir.DirectionOutbound,
		guard:     ir.SendableStates,
		success:   ir.StateOutputSent,
		failure:   ir.StateOutputErrorOnSend,
		failLevel: ir.LevelError,
		needsFile: true,
		run: func(ctx context.Context, xt ir.ExchangeType, cur *ir.ExchangeRecord) error {
			s, _, err := component.Resolve[component.Sender](b.registry, b.query(xt, ir.OpSend, cur, false))
			if err != nil {
				return dispatchError{err}
			}
			return runStrategy(func() error { return s.Send(ctx, cur) })
		},
		onSuccess: func(cur *ir.ExchangeRecord) {
			now := b.clock.Now()
			cur.ExchangedAt = &now
		},
		successMessage: (*ir.ExchangeRecord).SentMessage,
		failureMessage: (*ir.ExchangeRecord).SendErrorMessage,
	})
}

// Process consumes a received inbound record.
//
// Preconditions: rec is inbound and has a file, else *InvalidStateError.
// Outside {input_received, input_processed_error} the call is Skipped. A
// strategy failure moves the record to input_processed_error and is
// reported as a Failed Outcome.
func (b *Backend) Process(ctx context.Context, rec *ir.ExchangeRecord) (Outcome, error) {
	return b.guarded(ctx, rec, guardedOp{
		op:        ir.OpProcess,
		direction: ir.DirectionInbound,
		guard:     ir.ProcessableStates,
		success:   ir.StateInputProcessed,
		failure:   ir.StateInputProcessedError,
		failLevel: ir.LevelError,
		needsFile: true,
		run: func(ctx context.Context, xt ir.ExchangeType, cur *ir.ExchangeRecord) error {
			p, _, err := component.Resolve[component.Processor](b.registry, b.query(xt, ir.OpProcess, cur, false))
			if err != nil {
				return dispatchError{err}
			}
			return runStrategy(func() error { return p.Process(ctx, cur) })
		},
		successMessage: (*ir.ExchangeRecord).ProcessedMessage,
		failureMessage: (*ir.ExchangeRecord).ProcessErrorMessage,
	})
}

// Receive fetches the payload of an inbound record from its source.
//
// Preconditions: rec is inbound, in state new, with no file, else
// *InvalidStateError. The content is validated when the type declares a
// validate component. On success the file is attached and the record
// moves to input_received. On failure the error is recorded, the record
// stays new and a warning is notified.
func (b *Backend) Receive(ctx context.Context, rec *ir.ExchangeRecord) (Outcome, error) {
	return b.guarded(ctx, rec, guardedOp{
		op:         ir.OpReceive,
		direction:  ir.DirectionInbound,
		guard:      []ir.State{ir.StateNew},
		strict:     true,
		success:    ir.StateInputReceived,
		failure:    ir.StateNew,
		failLevel:  ir.LevelWarning,
		rejectFile: true,
		run: func(ctx context.Context, xt ir.ExchangeType, cur *ir.ExchangeRecord) error {
			r, _, err := component.Resolve[component.Receiver](b.registry, b.query(xt, ir.OpReceive, cur, false))
			if err != nil {
				return dispatchError{err}
			}
			var content []byte
			if err := runStrategy(func() error {
				var rerr error
				content, rerr = r.Receive(ctx, cur)
				return rerr
			}); err != nil {
				return err
			}
			if len(content) == 0 {
				return errors.New("received empty content")
			}
			if err := b.validate(ctx, xt, cur, content); err != nil {
				return err
			}
			cur.File = content
			return nil
		},
		successMessage: (*ir.ExchangeRecord).ReceivedMessage,
		failureMessage: (*ir.ExchangeRecord).ReceiveErrorMessage,
	})
}

// guardedOp describes one guarded lifecycle transition.
type guardedOp struct {
	op        ir.Operation
	direction ir.Direction
	guard     []ir.State

	// strict turns a failed guard into *InvalidStateError instead of Skipped.
	strict     bool
	needsFile  bool
	rejectFile bool

	success   ir.State
	failure   ir.State
	failLevel ir.Level

	run       func(ctx context.Context, xt ir.ExchangeType, cur *ir.ExchangeRecord) error
	onSuccess func(cur *ir.ExchangeRecord)

	successMessage func(*ir.ExchangeRecord) string
	failureMessage func(*ir.ExchangeRecord) string
}

// dispatchError marks resolution failures so they are returned, not recorded.
type dispatchError struct{ err error }

func (e dispatchError) Error() string { return e.err.Error() }
func (e dispatchError) Unwrap() error { return e.err }

func (b *Backend) guarded(ctx context.Context, rec *ir.ExchangeRecord, g guardedOp) (Outcome, error) {
	var out Outcome
	err := b.withRecord(ctx, rec, func(cur *ir.ExchangeRecord) error {
		xt, err := b.exchangeType(cur)
		if err != nil {
			return err
		}
		if cur.Direction != g.direction {
			return invalidState(cur, g.op, fmt.Sprintf("record is not %s", g.direction))
		}
		if g.needsFile && !cur.HasFile() {
			return invalidState(cur, g.op, "record has no file")
		}
		if !cur.State.In(g.guard...) {
			if g.strict {
				return invalidState(cur, g.op, fmt.Sprintf("record is not %s", g.guard[0]))
			}
			b.logger.Debug("operation skipped", "op", g.op, "record", cur.ID, "state", cur.State)
			out = Outcome{Status: Skipped}
			return nil
		}
		if g.rejectFile && cur.HasFile() {
			return invalidState(cur, g.op, "record already has a file")
		}

		runErr := g.run(ctx, xt, cur)
		var de dispatchError
		if errors.As(runErr, &de) {
			return de.err
		}
		// A strategy resolving its own collaborators (webservice.Call)
		// reports wiring defects the same way.
		if component.IsDispatchError(runErr) {
			return runErr
		}

		now := b.clock.Now()
		cur.UpdatedAt = now
		level := ir.LevelInfo
		var message string
		if runErr == nil {
			cur.State = g.success
			cur.SetError(nil)
			if g.onSuccess != nil {
				g.onSuccess(cur)
			}
			message = g.successMessage(cur)
			out = Outcome{Status: Succeeded}
		} else {
			cur.State = g.failure
			cur.SetError(runErr)
			level = g.failLevel
			message = g.failureMessage(cur)
			out = Outcome{Status: Failed, Err: &StrategyExecutionError{
				RecordID:  cur.ID,
				Operation: g.op,
				Usage:     xt.Usage(g.op),
				Cause:     runErr,
			}}
		}

		if err := b.store.UpdateRecord(ctx, cur); err != nil {
			return err
		}
		if out.Status == Failed {
			b.logger.Warn("strategy failed", "op", g.op, "record", cur.ID, "state", cur.State, "error", runErr)
		} else {
			b.logger.Info("operation succeeded", "op", g.op, "record", cur.ID, "state", cur.State)
		}
		b.notifier.Notify(ctx, cur, level, message)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// withRecord runs fn on a fresh copy of rec while holding rec's lock.
// When fn succeeds its copy is written back into rec; when it fails rec
// gets the row as read, so staged changes that were never persisted are
// dropped.
func (b *Backend) withRecord(ctx context.Context, rec *ir.ExchangeRecord, fn func(cur *ir.ExchangeRecord) error) error {
	if rec == nil || rec.ID == "" {
		return errors.New("engine: record has no ID")
	}
	if rec.Backend != b.backend.Code {
		return fmt.Errorf("engine: record %s belongs to backend %q, not %q", rec.ID, rec.Backend, b.backend.Code)
	}

	unlock, err := b.locker.Lock(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("lock record %s: %w", rec.ID, err)
	}
	defer unlock()

	cur, err := b.store.ReadRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	persisted := cur.Clone()
	if err := fn(cur); err != nil {
		*rec = *persisted
		return err
	}
	*rec = *cur
	return nil
}

func (b *Backend) exchangeType(rec *ir.ExchangeRecord) (ir.ExchangeType, error) {
	xt, ok := b.catalog.ExchangeType(b.backend.Code, rec.Type)
	if !ok {
		return ir.ExchangeType{}, NewUnknownTypeError(b.backend.Code, rec.Type)
	}
	return xt, nil
}

func (b *Backend) query(xt ir.ExchangeType, op ir.Operation, rec *ir.ExchangeRecord, safe bool) component.Query {
	constraints := map[string]string{
		ConstraintBackend:      b.backend.Code,
		ConstraintExchangeType: xt.Code,
	}
	if rec.Related.Kind != "" {
		constraints[ConstraintModel] = rec.Related.Kind
	}
	return component.Query{
		BackendType: b.backend.Type,
		Usage:       xt.Usage(op),
		Constraints: constraints,
		Safe:        safe,
	}
}

// validate runs the type's validate component on content, if one is declared.
// Resolution errors come back as dispatchError.
func (b *Backend) validate(ctx context.Context, xt ir.ExchangeType, rec *ir.ExchangeRecord, content []byte) error {
	v, ok, err := component.Resolve[component.Validator](b.registry, b.query(xt, ir.OpValidate, rec, true))
	if err != nil {
		return dispatchError{err}
	}
	if !ok {
		return nil
	}
	return runStrategy(func() error { return v.Validate(ctx, rec, content) })
}

// runStrategy calls fn and converts a panic into an error.
func runStrategy(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return fn()
}
