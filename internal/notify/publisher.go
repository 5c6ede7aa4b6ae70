package notify

import (
	"context"
	"fmt"

	"github.com/nsqio/go-nsq"

	"github.com/roach88/edix/internal/ir"
)

// DefaultTopic is the NSQ topic exchange events are published to.
const DefaultTopic = "edi.exchange.events"

// Publisher publishes a message body to a topic. Implemented by *nsq.Producer.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// EventPublisher publishes notifications as canonical JSON so downstream
// consumers see every exchange transition.
type EventPublisher struct {
	pub   Publisher
	topic string
}

// NewEventPublisher creates a Sink publishing to topic ("" uses DefaultTopic).
func NewEventPublisher(pub Publisher, topic string) *EventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &EventPublisher{pub: pub, topic: topic}
}

// Deliver publishes n. go-nsq's Publish takes no context; ctx is unused.
func (p *EventPublisher) Deliver(ctx context.Context, n ir.Notification) error {
	body, err := ir.MarshalNotification(n)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	if err := p.pub.Publish(p.topic, body); err != nil {
		return fmt.Errorf("publish event to %s: %w", p.topic, err)
	}
	return nil
}

// NewNSQProducer connects a producer to the nsqd at addr.
func NewNSQProducer(addr string) (*nsq.Producer, error) {
	cfg := nsq.NewConfig()
	p, err := nsq.NewProducer(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("nsq producer %s: %w", addr, err)
	}
	return p, nil
}
