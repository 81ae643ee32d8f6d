package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/store"
	"github.com/mentorloop/relationship-engine/pkg/logger"
	"github.com/mentorloop/relationship-engine/pkg/metrics"
)

// Orchestrator owns the only multi-entity write in the engine: resolving a
// pending connection request. Acceptance atomically flips the request,
// creates the conversation, and (for mentorship-intent requests) creates the
// engagement, in a single transaction. Every step inside is idempotent keyed
// on the request or pair, so re-running the handler after a partial failure
// converges instead of duplicating.
type Orchestrator struct {
	db     *gorm.DB
	events EventPublisher
	logger *logger.Logger

	// autoEngage treats every acceptance as mentorship intent.
	autoEngage   bool
	totalPlanned int
}

// NewOrchestrator creates the relationship orchestrator. totalPlanned is the
// default planned-session count for new engagements.
func NewOrchestrator(db *gorm.DB, events EventPublisher, autoEngage bool, totalPlanned int, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		db:           db,
		events:       events,
		logger:       log,
		autoEngage:   autoEngage,
		totalPlanned: totalPlanned,
	}
}

// Respond resolves a pending request. Only the recipient may respond; a
// second response fails with ErrAlreadyResolved and leaves the first outcome
// untouched.
func (o *Orchestrator) Respond(ctx context.Context, requestID uuid.UUID, by model.ActorRef, decision model.Decision, responseMessage string) (*model.ConnectionRequest, error) {
	if decision != model.DecisionAccept && decision != model.DecisionReject {
		return nil, fmt.Errorf("decision must be accept or reject: %w", model.ErrStateError)
	}

	var (
		out        *model.ConnectionRequest
		engagement *model.MentorshipEngagement
		convID     uuid.UUID
	)
	now := time.Now().UTC()

	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := store.NewConnectionRepo(tx)

		req, err := requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.To.Equal(by) {
			return fmt.Errorf("only the recipient may respond: %w", model.ErrForbidden)
		}

		status := model.ConnectionRejected
		if decision == model.DecisionAccept {
			status = model.ConnectionAccepted
		}
		rows, err := requests.Resolve(ctx, requestID, status, responseMessage, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return model.ErrAlreadyResolved
		}
		req.Status = status
		req.ResponseMessage = responseMessage
		req.RespondedAt = &now
		out = req

		if decision != model.DecisionAccept {
			return nil
		}

		// Acceptance unlocks the conversation; GetOrCreate absorbs retries.
		conv, err := store.NewConversationRepo(tx).GetOrCreate(ctx, req.From, req.To)
		if err != nil {
			return err
		}
		convID = conv.ID

		if req.MentorshipIntent || o.autoEngage {
			mentor, mentee := assignMentor(req.From, req.To)
			planned := req.PlannedSessions
			if planned <= 0 {
				planned = o.totalPlanned
			}
			engagement, err = store.NewMentorshipRepo(tx).CreateIfAbsent(ctx, &model.MentorshipEngagement{
				ID:                   uuid.Must(uuid.NewV7()),
				ConnectionRequestID:  req.ID,
				Mentor:               mentor,
				Mentee:               mentee,
				Status:               model.EngagementActive,
				SkillsToLearn:        req.SkillsToLearn,
				Goals:                req.Goals,
				TotalPlannedSessions: planned,
				CreatedAt:            now,
				UpdatedAt:            now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("connection request resolved",
		zap.String("request_id", requestID.String()),
		zap.String("status", string(out.Status)),
	)
	metrics.ConnectionRequestsTotal.WithLabelValues(string(out.Status)).Inc()

	if out.Status == model.ConnectionAccepted {
		publishEvent(ctx, o.events, o.logger, model.EventConnectionAccepted, &by, out.ID, map[string]any{
			"conversation_id": convID,
		})
		if engagement != nil {
			publishEvent(ctx, o.events, o.logger, model.EventEngagementStarted, &by, engagement.ID, map[string]any{
				"connection_request_id": out.ID,
			})
			metrics.EngagementsStartedTotal.Inc()
		}
	} else {
		publishEvent(ctx, o.events, o.logger, model.EventConnectionRejected, &by, out.ID, nil)
	}
	return out, nil
}

// assignMentor decides which side of an accepted pair mentors the other: the
// senior participant, or the recipient when both share a role.
func assignMentor(from, to model.ActorRef) (mentor, mentee model.ActorRef) {
	if from.Role == model.RoleSenior && to.Role == model.RoleJunior {
		return from, to
	}
	return to, from
}
