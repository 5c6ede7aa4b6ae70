// Package engine implements the exchange record lifecycle.
//
// A Backend owns the guarded operations of one configured backend:
// GenerateOutput, Send, Receive and Process. Each follows the same
// pattern:
//
//  1. Take the record's lock (Locker)
//  2. Reload the record from the store
//  3. Check preconditions (InvalidStateError on violation)
//  4. Check the idempotency guard (Skipped when there is nothing to do)
//  5. Resolve the strategy through the component registry
//  6. Run it and write the transition with an optimistic version check
//  7. Notify the related entity
//
// ERROR MODEL:
//
// Precondition violations, dispatch errors (component not found,
// ambiguous, wrong type) and store errors are returned. Strategy failures
// of Send, Receive and Process are data: the error text is stored on the
// record, the state moves to the failure state, and the call returns a
// Failed Outcome with a nil error. GenerateOutput runs before anything is
// committed, so its strategy errors are returned unmodified.
//
// The Exchanger drives many records at once with bounded parallelism;
// one bad record never aborts a batch.
package engine
