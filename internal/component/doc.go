// Package component resolves the pluggable strategy serving one lifecycle
// operation of one exchange type.
//
// Components declare the usage keys they answer to, an optional backend
// type, and optional narrowing predicates. Resolution filters the registry
// by usage, then by backend type, then by predicates, and requires exactly
// one survivor:
//
//   - zero matches with Query.Safe: (zero, false, nil)
//   - zero matches otherwise: *ComponentNotFoundError
//   - two or more matches: *AmbiguousComponentError, always
//
// The registry is written during startup and frozen before the engine
// runs; lookups on a frozen registry take no locks.
package component
