package engine

// Status is the three-way result of a guarded operation.
type Status string

const (
	// Skipped means the idempotency guard found nothing to do.
	Skipped Status = "skipped"

	// Succeeded means the strategy ran and the success transition was written.
	Succeeded Status = "succeeded"

	// Failed means the strategy ran and failed; the failure is on the record.
	Failed Status = "failed"
)

// Outcome reports what a Send, Receive or Process call did.
// Err is the *StrategyExecutionError when Status is Failed.
type Outcome struct {
	Status Status
	Err    error
}

// OK reports whether the operation succeeded.
// Skipped and Failed are both false.
func (o Outcome) OK() bool {
	return o.Status == Succeeded
}

func (o Outcome) String() string {
	if o.Err != nil {
		return string(o.Status) + ": " + o.Err.Error()
	}
	return string(o.Status)
}
