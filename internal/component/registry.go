package component

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Component is one registered strategy implementation.
type Component struct {
	// Name uniquely identifies the component in a registry.
	Name string

	// Usage lists the usage keys this component answers to.
	Usage []string

	// BackendType restricts the component to one backend type; empty matches all.
	BackendType string

	// Match holds narrowing predicates. A query matches when, for every key,
	// it either does not carry the key or carries the same value.
	Match map[string]string

	// MatchFunc is an optional custom predicate evaluated after Match.
	MatchFunc func(constraints map[string]string) bool

	// Impl is the strategy: a Generator, Sender, Receiver, Validator,
	// Processor, or any collaborator resolved with Resolve.
	Impl any
}

// Query describes one lookup.
type Query struct {
	BackendType string
	Usage       string
	Constraints map[string]string

	// Safe turns "not found" into an absent result instead of an error.
	Safe bool
}

// ErrFrozen is returned by Register after Freeze.
var ErrFrozen = errors.New("component registry is frozen")

// Registry holds components. Register during startup, then Freeze.
type Registry struct {
	mu         sync.RWMutex
	frozen     atomic.Bool
	components []Component
	byName     map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds c to the registry.
func (r *Registry) Register(c Component) error {
	if r.frozen.Load() {
		return fmt.Errorf("register %q: %w", c.Name, ErrFrozen)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("register component: name is required")
	}
	if len(c.Usage) == 0 {
		return fmt.Errorf("register %q: at least one usage is required", c.Name)
	}
	if c.Impl == nil {
		return fmt.Errorf("register %q: implementation is nil", c.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[c.Name]; exists {
		return fmt.Errorf("register %q: duplicate component name", c.Name)
	}
	c.Usage = append([]string(nil), c.Usage...)
	r.byName[c.Name] = len(r.components)
	r.components = append(r.components, c)
	return nil
}

// MustRegister is like Register but panics on error.
// Use only during static startup wiring or in tests.
func (r *Registry) MustRegister(c Component) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only. Safe to call more than once.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for _, c := range r.components {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves exactly one component for q.
func (r *Registry) Lookup(q Query) (Component, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Component
	for _, c := range r.components {
		if !c.answers(q.Usage) {
			continue
		}
		if c.BackendType != "" && c.BackendType != q.BackendType {
			continue
		}
		if !c.narrows(q.Constraints) {
			continue
		}
		matches = append(matches, c)
	}

	switch len(matches) {
	case 0:
		if q.Safe {
			return Component{}, false, nil
		}
		return Component{}, false, &ComponentNotFoundError{Usage: q.Usage, BackendType: q.BackendType, Constraints: q.Constraints}
	case 1:
		return matches[0], true, nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		sort.Strings(names)
		return Component{}, false, &AmbiguousComponentError{Usage: q.Usage, BackendType: q.BackendType, Candidates: names}
	}
}

// Resolve looks up the component for q and asserts its implementation is a T.
func Resolve[T any](r *Registry, q Query) (T, bool, error) {
	var zero T
	c, ok, err := r.Lookup(q)
	if err != nil || !ok {
		return zero, ok, err
	}
	impl, isT := c.Impl.(T)
	if !isT {
		return zero, false, &ComponentTypeError{
			Name:     c.Name,
			Usage:    q.Usage,
			Expected: fmt.Sprintf("%T", (*T)(nil))[1:],
			Actual:   fmt.Sprintf("%T", c.Impl),
		}
	}
	return impl, true, nil
}

func (c *Component) answers(usage string) bool {
	for _, u := range c.Usage {
		if u == usage {
			return true
		}
	}
	return false
}

func (c *Component) narrows(constraints map[string]string) bool {
	for key, want := range c.Match {
		if got, present := constraints[key]; present && got != want {
			return false
		}
	}
	if c.MatchFunc != nil {
		return c.MatchFunc(constraints)
	}
	return true
}
