// Package events publishes session progress for observers. Publishing is
// strictly advisory: a dropped or failed event never affects the session.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/spawn-mcp/researcher/pkg/schemas"
)

// Publisher receives progress events from a running session.
type Publisher interface {
	Publish(ctx context.Context, event schemas.ProgressEvent) error
}

// NopPublisher discards all events. It is the default.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(ctx context.Context, event schemas.ProgressEvent) error {
	return nil
}

// PubSubPublisher forwards progress events to a Pub/Sub topic so external
// observers can follow long-running sessions.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher creates a publisher on an existing topic handle.
func NewPubSubPublisher(topic *pubsub.Topic) *PubSubPublisher {
	return &PubSubPublisher{topic: topic}
}

// Publish sends the event as a JSON message and waits for the server ack.
func (p *PubSubPublisher) Publish(ctx context.Context, event schemas.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}

	msg := &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"session_id": event.SessionID, "type": event.Type},
	}
	if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("failed to publish progress event: %w", err)
	}
	return nil
}
