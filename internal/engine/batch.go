package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/edix/internal/ir"
)

// DefaultBatchWorkers bounds concurrent operations in a batch.
const DefaultBatchWorkers = 4

// BatchResult is the result of one record in a batch.
// Err holds precondition, dispatch or store errors for that record;
// strategy failures are in Outcome.
type BatchResult struct {
	RecordID string
	Outcome  Outcome
	Err      error
}

// Exchanger drives many records of one backend, the way a scheduled job
// flushes pending sends or processes received files.
type Exchanger struct {
	backend *Backend
	workers int
}

// NewExchanger creates an Exchanger running up to workers records at once.
// workers <= 0 uses DefaultBatchWorkers.
func NewExchanger(b *Backend, workers int) *Exchanger {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	return &Exchanger{backend: b, workers: workers}
}

// ErrNilRecord is the result error of a nil entry passed to Batch.
var ErrNilRecord = errors.New("engine: nil record")

// Batch runs op (send, receive or process) over records.
//
// One record failing never aborts the batch: every record gets a result,
// in input order. The returned error is non-nil only for an unsupported
// op or when ctx is cancelled before all records ran.
func (x *Exchanger) Batch(ctx context.Context, op ir.Operation, records []*ir.ExchangeRecord) ([]BatchResult, error) {
	var run func(context.Context, *ir.ExchangeRecord) (Outcome, error)
	switch op {
	case ir.OpSend:
		run = x.backend.Send
	case ir.OpReceive:
		run = x.backend.Receive
	case ir.OpProcess:
		run = x.backend.Process
	default:
		return nil, fmt.Errorf("batch: unsupported operation %q", op)
	}

	results := make([]BatchResult, len(records))
	g := new(errgroup.Group)
	g.SetLimit(x.workers)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(records); j++ {
				results[j] = BatchResult{RecordID: recordID(records[j]), Err: err}
			}
			break
		}
		if rec == nil {
			results[i] = BatchResult{Err: ErrNilRecord}
			continue
		}
		g.Go(func() error {
			out, err := run(ctx, rec)
			results[i] = BatchResult{RecordID: rec.ID, Outcome: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	x.backend.logger.Info("batch finished", "op", op, "records", len(records), "summary", Summarize(results))
	return results, ctx.Err()
}

func recordID(rec *ir.ExchangeRecord) string {
	if rec == nil {
		return ""
	}
	return rec.ID
}

// BatchSummary counts batch results by status.
type BatchSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Summarize counts results.
func Summarize(results []BatchResult) BatchSummary {
	var s BatchSummary
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Errors++
		case r.Outcome.Status == Succeeded:
			s.Succeeded++
		case r.Outcome.Status == Failed:
			s.Failed++
		default:
			s.Skipped++
		}
	}
	return s
}

// Pending lists records of this backend the operation would pick up:
// sendable outbound records for send, processable inbound records for
// process, new inbound records for receive.
func (x *Exchanger) Pending(ctx context.Context, lister RecordLister, op ir.Operation, typeCode string) ([]*ir.ExchangeRecord, error) {
	var (
		direction ir.Direction
		states    []ir.State
	)
	switch op {
	case ir.OpSend:
		direction, states = ir.DirectionOutbound, ir.SendableStates
	case ir.OpProcess:
		direction, states = ir.DirectionInbound, ir.ProcessableStates
	case ir.OpReceive:
		direction, states = ir.DirectionInbound, []ir.State{ir.StateNew}
	default:
		return nil, fmt.Errorf("pending: unsupported operation %q", op)
	}
	return lister.PendingRecords(ctx, x.backend.Code(), typeCode, direction, states)
}

// RecordLister finds records awaiting an operation.
type RecordLister interface {
	PendingRecords(ctx context.Context, backend, typeCode string, direction ir.Direction, states []ir.State) ([]*ir.ExchangeRecord, error)
}
