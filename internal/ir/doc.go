// Package ir provides the core data model for EDI exchanges.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Record state is always consistent with record direction: inbound
//     records never hold output_* states, outbound records never hold
//     input_* states (see State.Allowed).
//   - The Catalog (backend types, backends, exchange types, webservices)
//     is built once at process start and never mutated afterwards.
//   - The related entity of a record is a reference only (EntityRef); the
//     engine never manages its lifecycle.
//   - All JSON tags use snake_case.
package ir
