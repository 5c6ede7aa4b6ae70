package harness

import (
	"context"
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", ev.Seq, ev.Op, ev.Record)
			if ev.Outcome != "" {
				fmt.Fprintf(&buf, " -> %s", ev.Outcome)
			}
			if ev.State != "" {
				fmt.Fprintf(&buf, " (%s)", ev.State)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// evaluate runs every assertion and returns the failure messages.
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion, result *Result) []string {
	var msgs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertRecord:
			err = h.assertRecord(ctx, a, result.Trace)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertStubCalls:
			err = h.assertStubCalls(a, result.Trace)
		case AssertActivityCount:
			err = h.assertActivityCount(ctx, a, result.Trace)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

// assertRecord re-reads the record from the store and compares the
// fields the assertion sets.
func (h *Harness) assertRecord(ctx context.Context, a Assertion, trace []TraceEvent) error {
	rec, ok := h.records[a.Record]
	if !ok {
		return &AssertionError{Type: AssertRecord, Expected: fmt.Sprintf("record %q exists", a.Record), Actual: "never created", Trace: trace}
	}
	cur, err := h.store.ReadRecord(ctx, rec.ID)
	if err != nil {
		return &AssertionError{Type: AssertRecord, Expected: fmt.Sprintf("record %q readable", a.Record), Actual: err.Error(), Trace: trace}
	}

	var diffs []string
	if a.State != "" && string(cur.State) != a.State {
		diffs = append(diffs, fmt.Sprintf("state=%s, want %s", cur.State, a.State))
	}
	if a.ExternalID != nil && cur.ExternalIdentifier != *a.ExternalID {
		diffs = append(diffs, fmt.Sprintf("external_id=%q, want %q", cur.ExternalIdentifier, *a.ExternalID))
	}
	if a.File != nil && string(cur.File) != *a.File {
		diffs = append(diffs, fmt.Sprintf("file=%q, want %q", cur.File, *a.File))
	}
	if a.Exchanged != nil && (cur.ExchangedAt != nil) != *a.Exchanged {
		diffs = append(diffs, fmt.Sprintf("exchanged=%t, want %t", cur.ExchangedAt != nil, *a.Exchanged))
	}
	if len(diffs) > 0 {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %q matches", a.Record),
			Actual:   strings.Join(diffs, ", "),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks how many steps ran op, optionally with outcome.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Op == a.Op && (a.Outcome == "" || ev.Outcome == a.Outcome) {
			count++
		}
	}
	if count != a.Count {
		label := a.Op
		if a.Outcome != "" {
			label += " " + a.Outcome
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s exactly %d time(s)", label, a.Count),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertStubCalls checks how many times a stub strategy ran.
func (h *Harness) assertStubCalls(a Assertion, trace []TraceEvent) error {
	if got := h.stubs[a.Stub].Calls(); got != a.Count {
		return &AssertionError{
			Type:     AssertStubCalls,
			Expected: fmt.Sprintf("stub %s called %d time(s)", a.Stub, a.Count),
			Actual:   fmt.Sprintf("%d", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertActivityCount checks the activity log length of an entity.
func (h *Harness) assertActivityCount(ctx context.Context, a Assertion, trace []TraceEvent) error {
	ref, err := ParseEntityRef(a.Related)
	if err != nil {
		return err
	}
	entries, err := h.store.ReadActivity(ctx, ref)
	if err != nil {
		return err
	}
	if len(entries) != a.Count {
		msgs := make([]string, len(entries))
		for i, e := range entries {
			msgs[i] = fmt.Sprintf("%s: %s", e.Level, e.Message)
		}
		return &AssertionError{
			Type:     AssertActivityCount,
			Expected: fmt.Sprintf("%d activity entries on %s", a.Count, ref),
			Actual:   fmt.Sprintf("%d %v", len(entries), msgs),
			Trace:    trace,
		}
	}
	return nil
}
