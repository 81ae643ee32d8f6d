// Package service provides business logic for the relationship engine.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

// EventPublisher delivers relationship transition events to downstream
// consumers (notification delivery, activity feeds). Implementations must be
// safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.RelationshipEvent) error
}

// publishEvent emits a transition event after the fact. Publish failures are
// logged and dropped; user operations never fail on notification plumbing.
func publishEvent(ctx context.Context, pub EventPublisher, log *logger.Logger, t model.EventType, actor *model.ActorRef, subject uuid.UUID, meta map[string]any) {
	if pub == nil {
		return
	}
	ev := &model.RelationshipEvent{
		ID:        uuid.Must(uuid.NewV7()),
		Type:      t,
		Actor:     actor,
		Subject:   subject,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn("failed to publish event",
			zap.String("event_type", string(t)),
			zap.String("subject", subject.String()),
			zap.Error(err))
	}
}
