package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/edix/internal/ir"
)

// ActivityLogger appends a notification to an entity's communication log.
type ActivityLogger interface {
	LogActivity(ctx context.Context, n ir.Notification) error
}

// ActivityLoggerFunc adapts a function to ActivityLogger.
type ActivityLoggerFunc func(ctx context.Context, n ir.Notification) error

func (f ActivityLoggerFunc) LogActivity(ctx context.Context, n ir.Notification) error {
	return f(ctx, n)
}

// EntityRegistry maps entity kinds (e.g. "sale.order") to the handler
// logging activity for them. It is a Sink.
type EntityRegistry struct {
	mu       sync.RWMutex
	handlers map[string]ActivityLogger
}

// NewEntityRegistry creates an empty registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{handlers: make(map[string]ActivityLogger)}
}

// Register sets the handler for kind.
func (r *EntityRegistry) Register(kind string, h ActivityLogger) error {
	if kind == "" {
		return fmt.Errorf("register activity logger: kind is required")
	}
	if h == nil {
		return fmt.Errorf("register activity logger %q: handler is nil", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("register activity logger %q: duplicate kind", kind)
	}
	r.handlers[kind] = h
	return nil
}

// Supports reports whether kind has a handler.
func (r *EntityRegistry) Supports(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *EntityRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Deliver routes n to the handler of its related entity kind.
// Unsupported kinds are a silent no-op.
func (r *EntityRegistry) Deliver(ctx context.Context, n ir.Notification) error {
	r.mu.RLock()
	h, ok := r.handlers[n.Related.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := h.LogActivity(ctx, n); err != nil {
		return fmt.Errorf("log activity on %s: %w", n.Related, err)
	}
	return nil
}

// ActivityStore persists activity entries. Implemented by *store.Store.
type ActivityStore interface {
	AppendActivity(ctx context.Context, n ir.Notification) (string, error)
}

// StoreActivityLog logs activity into the SQLite activity_log table.
type StoreActivityLog struct {
	store ActivityStore
}

// NewStoreActivityLog creates an ActivityLogger backed by s.
func NewStoreActivityLog(s ActivityStore) *StoreActivityLog {
	return &StoreActivityLog{store: s}
}

func (l *StoreActivityLog) LogActivity(ctx context.Context, n ir.Notification) error {
	_, err := l.store.AppendActivity(ctx, n)
	return err
}
