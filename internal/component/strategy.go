package component

import (
	"context"

	"github.com/roach88/edix/internal/ir"
)

// Generator produces the outbound payload of a record.
type Generator interface {
	Generate(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error)
}

// Sender transmits an outbound record. Success is a nil error.
type Sender interface {
	Send(ctx context.Context, rec *ir.ExchangeRecord) error
}

// Receiver fetches the payload of an inbound record from its source.
type Receiver interface {
	Receive(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error)
}

// Validator checks content and may fill record fields such as
// ExternalIdentifier. Returns an error for invalid content.
type Validator interface {
	Validate(ctx context.Context, rec *ir.ExchangeRecord, content []byte) error
}

// Processor consumes the file of a received record and applies its effect.
type Processor interface {
	Process(ctx context.Context, rec *ir.ExchangeRecord) error
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error)

func (f GeneratorFunc) Generate(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error) {
	return f(ctx, rec)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, rec *ir.ExchangeRecord) error

func (f SenderFunc) Send(ctx context.Context, rec *ir.ExchangeRecord) error {
	return f(ctx, rec)
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error)

func (f ReceiverFunc) Receive(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error) {
	return f(ctx, rec)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, rec *ir.ExchangeRecord, content []byte) error

func (f ValidatorFunc) Validate(ctx context.Context, rec *ir.ExchangeRecord, content []byte) error {
	return f(ctx, rec, content)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, rec *ir.ExchangeRecord) error

func (f ProcessorFunc) Process(ctx context.Context, rec *ir.ExchangeRecord) error {
	return f(ctx, rec)
}
