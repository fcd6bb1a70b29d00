package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamPublisher is the part of jetstream.JetStream the Publisher needs.
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js StreamPublisher
}

// NewPublisher creates a new Publisher.
func NewPublisher(js StreamPublisher) *Publisher {
	return &Publisher{js: js}
}

// PublishTurnEvent publishes a completed-turn event.
func (p *Publisher) PublishTurnEvent(ctx context.Context, event TurnEvent) error {
	return p.publish(ctx, SubjectTurnEvent, event.TurnID, event)
}

// publish sets the JetStream message id so a re-sent event is deduplicated.
func (p *Publisher) publish(ctx context.Context, subject, id string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(id))
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
