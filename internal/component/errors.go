package component

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ComponentNotFoundError means no component answers a non-safe query.
// A wiring defect: never recorded on a record, always returned.
type ComponentNotFoundError struct {
	Usage       string
	BackendType string
	Constraints map[string]string
}

func (e *ComponentNotFoundError) Error() string {
	msg := fmt.Sprintf("no component found for usage %q (backend type %q)", e.Usage, e.BackendType)
	if len(e.Constraints) > 0 {
		msg += " with " + formatConstraints(e.Constraints)
	}
	return msg
}

// AmbiguousComponentError means more than one component answers a query.
type AmbiguousComponentError struct {
	Usage       string
	BackendType string
	Candidates  []string
}

func (e *AmbiguousComponentError) Error() string {
	return fmt.Sprintf("ambiguous components for usage %q (backend type %q): %s",
		e.Usage, e.BackendType, strings.Join(e.Candidates, ", "))
}

// ComponentTypeError means the resolved component does not implement the
// strategy interface the caller asked for.
type ComponentTypeError struct {
	Name     string
	Usage    string
	Expected string
	Actual   string
}

func (e *ComponentTypeError) Error() string {
	return fmt.Sprintf("component %q for usage %q is %s, want %s", e.Name, e.Usage, e.Actual, e.Expected)
}

// IsDispatchError reports whether err is a resolution failure.
// Uses errors.As to handle wrapped errors.
func IsDispatchError(err error) bool {
	var nf *ComponentNotFoundError
	var amb *AmbiguousComponentError
	var te *ComponentTypeError
	return errors.As(err, &nf) || errors.As(err, &amb) || errors.As(err, &te)
}

func formatConstraints(c map[string]string) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + c[k]
	}
	return strings.Join(parts, ",")
}
