package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/store"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

// MentorshipService tracks long-lived engagements and their progress.
// Engagement creation happens in the Orchestrator at acceptance time.
type MentorshipService struct {
	engagements store.MentorshipRepo
	events      EventPublisher
	logger      *logger.Logger
}

// NewMentorshipService creates a new mentorship service.
func NewMentorshipService(engagements store.MentorshipRepo, events EventPublisher, log *logger.Logger) *MentorshipService {
	return &MentorshipService{
		engagements: engagements,
		events:      events,
		logger:      log,
	}
}

// Get retrieves an engagement the actor participates in.
func (s *MentorshipService) Get(ctx context.Context, id uuid.UUID, actor model.ActorRef) (*model.MentorshipEngagement, error) {
	e, err := s.engagements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Participant(actor) {
		return nil, fmt.Errorf("actor %s is not a participant: %w", actor.ID, model.ErrForbidden)
	}
	return e, nil
}

// ListFor returns the actor's engagements with derived progress.
func (s *MentorshipService) ListFor(ctx context.Context, actor model.ActorRef) ([]model.EngagementView, error) {
	rows, err := s.engagements.ListFor(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := make([]model.EngagementView, len(rows))
	for i, e := range rows {
		out[i] = model.EngagementView{MentorshipEngagement: e, Progress: e.Progress()}
	}
	return out, nil
}

// SetStatus transitions an engagement between active, paused, and completed.
// Completed is terminal: the conditional update excludes it, so a write
// against a completed engagement surfaces as ErrStateError rather than a
// silent overwrite.
func (s *MentorshipService) SetStatus(ctx context.Context, id uuid.UUID, by model.ActorRef, status model.EngagementStatus) (*model.MentorshipEngagement, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown engagement status %q: %w", status, model.ErrStateError)
	}
	e, err := s.Get(ctx, id, by)
	if err != nil {
		return nil, err
	}
	if e.Status == status {
		return e, nil
	}

	rows, err := s.engagements.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("engagement %s is completed: %w", id, model.ErrStateError)
	}

	s.logger.Info("engagement status changed",
		zap.String("engagement_id", id.String()),
		zap.String("status", string(status)),
	)
	publishEvent(ctx, s.events, s.logger, model.EventEngagementStatus, &by, id, map[string]any{
		"status": status,
	})
	return s.engagements.GetByID(ctx, id)
}
