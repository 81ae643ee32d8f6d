package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/store"
	"github.com/mentorloop/relationship-engine/pkg/logger"
	"github.com/mentorloop/relationship-engine/pkg/metrics"
)

// ConversationService handles message threads and unread accounting.
// Conversations are created by the Orchestrator at acceptance; sending into
// a missing conversation is NotFound, never implicit creation.
type ConversationService struct {
	conversations store.ConversationRepo
	events        EventPublisher
	logger        *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(conversations store.ConversationRepo, events EventPublisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		events:        events,
		logger:        log,
	}
}

// Get retrieves a conversation the actor participates in.
func (s *ConversationService) Get(ctx context.Context, id uuid.UUID, actor model.ActorRef) (*model.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.Participant(actor) {
		return nil, fmt.Errorf("actor %s is not a participant: %w", actor.ID, model.ErrForbidden)
	}
	return conv, nil
}

// ListFor returns the actor's conversations, most recent activity first.
func (s *ConversationService) ListFor(ctx context.Context, actor model.ActorRef) ([]model.Conversation, error) {
	return s.conversations.ListFor(ctx, actor.ID)
}

// Send appends a message. The insert, the last-message cache refresh, and
// the recipient's unread increment land as one atomic unit in the store.
func (s *ConversationService) Send(ctx context.Context, conversationID uuid.UUID, sender model.ActorRef, content string) (*model.Message, error) {
	conv, err := s.Get(ctx, conversationID, sender)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	recipient := conv.Other(sender)
	if err := s.conversations.AppendMessage(ctx, msg, recipient.ID); err != nil {
		return nil, err
	}

	s.logger.Info("message sent",
		zap.String("conversation_id", conversationID.String()),
		zap.String("message_id", msg.ID.String()),
	)
	metrics.MessagesTotal.WithLabelValues(string(sender.Role)).Inc()
	publishEvent(ctx, s.events, s.logger, model.EventMessageSent, &sender, conversationID, map[string]any{
		"message_id": msg.ID,
		"recipient":  recipient,
	})
	return msg, nil
}

// MarkRead zeroes the actor's unread counter. A no-op when already zero.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID uuid.UUID, actor model.ActorRef) error {
	if _, err := s.Get(ctx, conversationID, actor); err != nil {
		return err
	}
	if err := s.conversations.ResetUnread(ctx, conversationID, actor.ID, time.Now().UTC()); err != nil {
		return err
	}
	metrics.UnreadResetsTotal.Inc()
	return nil
}

// ListMessages returns messages oldest first, restartable via afterID keyset
// pagination.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID uuid.UUID, actor model.ActorRef, afterID uuid.UUID, limit int) ([]model.Message, error) {
	if _, err := s.Get(ctx, conversationID, actor); err != nil {
		return nil, err
	}
	return s.conversations.ListMessages(ctx, conversationID, afterID, limit)
}
