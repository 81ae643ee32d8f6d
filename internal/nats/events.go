package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mentorloop/relationship-engine/internal/model"
)

const (
	// StreamName is the name of the relationship events stream.
	StreamName = "RELATIONSHIPS"

	// SubjectPrefix is the prefix for all relationship event subjects.
	SubjectPrefix = "rel"
)

// Publisher writes relationship transition events to JetStream. Notification
// delivery and activity feeds consume the stream; the engine only produces.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher over an established client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the relationship events stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Relationship lifecycle state transitions",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EventSubject returns the subject an event type publishes on, e.g.
// rel.connection.accepted.
func EventSubject(t model.EventType) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, t)
}

// Publish writes one event to the stream.
func (p *Publisher) Publish(ctx context.Context, event *model.RelationshipEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.client.JetStream().Publish(ctx, EventSubject(event.Type), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
