package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a relationship state transition.
type EventType string

const (
	EventConnectionRequested EventType = "connection.requested"
	EventConnectionAccepted  EventType = "connection.accepted"
	EventConnectionRejected  EventType = "connection.rejected"
	EventMessageSent         EventType = "message.sent"
	EventEngagementStarted   EventType = "engagement.started"
	EventEngagementStatus    EventType = "engagement.status_changed"
	EventSessionScheduled    EventType = "session.scheduled"
	EventSessionCompleted    EventType = "session.completed"
	EventSessionCancelled    EventType = "session.cancelled"
	EventSessionsExpired     EventType = "sessions.expired"
)

// RelationshipEvent is published to JetStream after every state transition.
// Notification delivery is a downstream consumer of these events; the engine
// itself never blocks on them.
type RelationshipEvent struct {
	ID        uuid.UUID      `json:"id"`
	Type      EventType      `json:"type"`
	Actor     *ActorRef      `json:"actor,omitempty"`
	Subject   uuid.UUID      `json:"subject"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
