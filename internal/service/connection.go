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

// ConnectionService handles connection request submission and listing.
// Responding to a request is the Orchestrator's job: acceptance fans out
// into conversation and engagement creation.
type ConnectionService struct {
	requests store.ConnectionRepo
	events   EventPublisher
	logger   *logger.Logger
}

// NewConnectionService creates a new connection service.
func NewConnectionService(requests store.ConnectionRepo, events EventPublisher, log *logger.Logger) *ConnectionService {
	return &ConnectionService{
		requests: requests,
		events:   events,
		logger:   log,
	}
}

// Create submits a new pending connection request from the actor to the
// recipient named in in, carrying any mentorship terms the requester stated.
func (s *ConnectionService) Create(ctx context.Context, from model.ActorRef, in model.CreateConnectionRequest) (*model.ConnectionRequest, error) {
	to := model.ActorRef{Role: in.ToRole, ID: in.ToID}
	if !from.Role.Valid() || !to.Role.Valid() || to.ID == uuid.Nil {
		return nil, fmt.Errorf("unknown actor role: %w", model.ErrInvalidActor)
	}
	if from.ID == to.ID {
		return nil, fmt.Errorf("cannot connect an actor to itself: %w", model.ErrInvalidActor)
	}
	if in.PlannedSessions < 0 {
		return nil, fmt.Errorf("planned sessions cannot be negative: %w", model.ErrInvalidActor)
	}

	req := &model.ConnectionRequest{
		ID:               uuid.Must(uuid.NewV7()),
		From:             from,
		To:               to,
		PairKey:          model.PairKey(from.ID, to.ID),
		Status:           model.ConnectionPending,
		Message:          in.Message,
		MentorshipIntent: in.MentorshipIntent,
		SkillsToLearn:    in.SkillsToLearn,
		Goals:            in.Goals,
		PlannedSessions:  in.PlannedSessions,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("connection request created",
		zap.String("request_id", req.ID.String()),
		zap.String("from", from.ID.String()),
		zap.String("to", to.ID.String()),
	)
	metrics.ConnectionRequestsTotal.WithLabelValues(string(model.ConnectionPending)).Inc()
	publishEvent(ctx, s.events, s.logger, model.EventConnectionRequested, &from, req.ID, map[string]any{
		"to": to,
	})
	return req, nil
}

// ListFor returns requests where the actor is sender or recipient, newest
// first. filter is "pending" or "all".
func (s *ConnectionService) ListFor(ctx context.Context, actor model.ActorRef, filter string) ([]model.ConnectionRequest, error) {
	return s.requests.ListFor(ctx, actor.ID, filter == "pending")
}
