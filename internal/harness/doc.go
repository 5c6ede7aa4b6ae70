// Package harness runs scripted exchange scenarios against the engine.
//
// A scenario creates exchange records and drives them through generate,
// send, receive and process steps. Strategies are stubs scripted from the
// scenario file; the engine, store and notifier are the real ones, backed
// by an in-memory database, a fixed clock and sequential record IDs.
//
// # Scenario Format
//
//	name: outbound_send_retry
//	description: "What this scenario validates"
//	catalog: ../catalog          # optional, defaults to the demo catalog
//	stubs:
//	  - name: send
//	    op: send
//	    type: orders_out
//	    error: partner down
//	steps:
//	  - op: create
//	    record: out1
//	    type: orders_out
//	    related: sale.order:SO042
//	  - op: send
//	    record: out1
//	    expect:
//	      outcome: failed
//	      state: output_error_on_send
//	  - op: stub                 # rescript a stub between steps
//	    stub: send
//	    error: ""
//	assertions:
//	  - type: record
//	    record: out1
//	    state: output_sent
//	  - type: stub_calls
//	    stub: send
//	    count: 2
//
// Unknown YAML fields are rejected.
//
// # Golden Traces
//
// Every step appends a TraceEvent. RunWithGolden compares the canonical
// JSON of the trace with testdata/golden/<name>.golden; run the tests
// with -update to regenerate.
package harness
