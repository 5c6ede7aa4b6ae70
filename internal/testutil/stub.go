package testutil

import (
	"context"
	"sync"

	"github.com/roach88/edix/internal/ir"
)

// Stub is a scriptable strategy implementing every lifecycle interface.
//
// It returns Content (generate, receive) and Err, sets ExternalID on
// validate, and counts calls. Hook, when set, runs first on every call.
//
// Thread-safety: Stub is safe for concurrent use via internal mutex.
type Stub struct {
	mu         sync.Mutex
	content    []byte
	err        error
	externalID string
	hook       func(ctx context.Context, rec *ir.ExchangeRecord)
	calls      int
}

// NewStub creates a stub that succeeds with content.
func NewStub(content string) *Stub {
	return &Stub{content: []byte(content)}
}

// Fail makes subsequent calls return err.
func (s *Stub) Fail(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// WithContent replaces the content returned by generate and receive.
func (s *Stub) WithContent(content string) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = []byte(content)
	return s
}

// Succeed clears the scripted error.
func (s *Stub) Succeed() *Stub {
	return s.Fail(nil)
}

// WithExternalID makes Validate set rec.ExternalIdentifier to id.
func (s *Stub) WithExternalID(id string) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.externalID = id
	return s
}

// WithHook runs fn at the start of every call.
func (s *Stub) WithHook(fn func(ctx context.Context, rec *ir.ExchangeRecord)) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
	return s
}

// Calls returns how many times the stub ran.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Stub) call(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	hook, content, err := s.hook, s.content, s.err
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), content...), nil
}

func (s *Stub) Generate(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error) {
	return s.call(ctx, rec)
}

func (s *Stub) Send(ctx context.Context, rec *ir.ExchangeRecord) error {
	_, err := s.call(ctx, rec)
	return err
}

func (s *Stub) Receive(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error) {
	return s.call(ctx, rec)
}

func (s *Stub) Validate(ctx context.Context, rec *ir.ExchangeRecord, content []byte) error {
	if _, err := s.call(ctx, rec); err != nil {
		return err
	}
	s.mu.Lock()
	id := s.externalID
	s.mu.Unlock()
	if id != "" {
		rec.ExternalIdentifier = id
	}
	return nil
}

func (s *Stub) Process(ctx context.Context, rec *ir.ExchangeRecord) error {
	_, err := s.call(ctx, rec)
	return err
}
