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

// SessionService schedules sessions under an engagement and owns the
// expiration sweep.
type SessionService struct {
	db          *gorm.DB
	sessions    store.SessionRepo
	engagements store.MentorshipRepo
	mentorship  *MentorshipService
	events      EventPublisher
	logger      *logger.Logger
}

// NewSessionService creates a new session service. db is the handle cross-repo
// writes are wrapped in.
func NewSessionService(db *gorm.DB, mentorship *MentorshipService, events EventPublisher, log *logger.Logger) *SessionService {
	return &SessionService{
		db:          db,
		sessions:    store.NewSessionRepo(db),
		engagements: store.NewMentorshipRepo(db),
		mentorship:  mentorship,
		events:      events,
		logger:      log,
	}
}

// Schedule creates a scheduled session. The time must be strictly in the
// future and the parent engagement active.
func (s *SessionService) Schedule(ctx context.Context, engagementID uuid.UUID, by model.ActorRef, at time.Time, durationMinutes int, topic string) (*model.Session, error) {
	e, err := s.mentorship.Get(ctx, engagementID, by)
	if err != nil {
		return nil, err
	}
	if e.Status != model.EngagementActive {
		return nil, fmt.Errorf("engagement is %s: %w", e.Status, model.ErrStateError)
	}
	now := time.Now().UTC()
	if !at.After(now) {
		return nil, fmt.Errorf("scheduled time must be in the future: %w", model.ErrInvalidTime)
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive: %w", model.ErrInvalidTime)
	}

	sess := &model.Session{
		ID:              uuid.Must(uuid.NewV7()),
		EngagementID:    engagementID,
		ScheduledAt:     at.UTC(),
		DurationMinutes: durationMinutes,
		ExpiresAt:       at.UTC().Add(time.Duration(durationMinutes) * time.Minute),
		Status:          model.SessionScheduled,
		Topic:           topic,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.engagements.AdvanceNextSession(ctx, engagementID, sess.ScheduledAt); err != nil {
		s.logger.Warn("failed to advance next_session_at", zap.Error(err))
	}

	s.logger.Info("session scheduled",
		zap.String("session_id", sess.ID.String()),
		zap.String("engagement_id", engagementID.String()),
	)
	publishEvent(ctx, s.events, s.logger, model.EventSessionScheduled, &by, sess.ID, map[string]any{
		"engagement_id": engagementID,
		"scheduled_at":  sess.ScheduledAt,
	})
	return sess, nil
}

// ListForEngagement returns an engagement's sessions, soonest first.
func (s *SessionService) ListForEngagement(ctx context.Context, engagementID uuid.UUID, by model.ActorRef) ([]model.Session, error) {
	if _, err := s.mentorship.Get(ctx, engagementID, by); err != nil {
		return nil, err
	}
	return s.sessions.ListByEngagement(ctx, engagementID)
}

// Complete resolves a scheduled session as held and records it on the
// engagement's progress. The resolution and the progress bump commit in one
// transaction, so a failure on either side leaves the session scheduled.
func (s *SessionService) Complete(ctx context.Context, sessionID uuid.UUID, by model.ActorRef) (*model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mentorship.Get(ctx, sess.EngagementID, by); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := store.NewSessionRepo(tx).Resolve(ctx, sessionID, model.SessionCompleted)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, model.ErrStateError)
		}
		_, err = store.NewMentorshipRepo(tx).IncrementCompleted(ctx, sess.EngagementID)
		return err
	})
	if err != nil {
		return nil, err
	}
	sess.Status = model.SessionCompleted

	publishEvent(ctx, s.events, s.logger, model.EventSessionCompleted, &by, sessionID, map[string]any{
		"engagement_id": sess.EngagementID,
	})
	return sess, nil
}

// Cancel resolves a scheduled session as cancelled.
func (s *SessionService) Cancel(ctx context.Context, sessionID uuid.UUID, by model.ActorRef) (*model.Session, error) {
	sess, err := s.resolve(ctx, sessionID, by, model.SessionCancelled)
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.events, s.logger, model.EventSessionCancelled, &by, sessionID, map[string]any{
		"engagement_id": sess.EngagementID,
	})
	return sess, nil
}

func (s *SessionService) resolve(ctx context.Context, sessionID uuid.UUID, by model.ActorRef, to model.SessionStatus) (*model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mentorship.Get(ctx, sess.EngagementID, by); err != nil {
		return nil, err
	}
	rows, err := s.sessions.Resolve(ctx, sessionID, to)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, model.ErrStateError)
	}
	sess.Status = to
	return sess, nil
}

// SweepExpired expires every scheduled session whose window elapsed before
// now and re-derives stale next-session pointers. Idempotent; safe to invoke
// concurrently with actor resolutions, which always win.
func (s *SessionService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	count, err := s.sessions.SweepExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep failed: %w", err)
	}
	if err := s.engagements.RefreshNextSessions(ctx, now); err != nil {
		// Pointer refresh is cosmetic relative to session state; leave it
		// for the next tick.
		s.logger.Warn("failed to refresh next_session_at pointers", zap.Error(err))
	}
	if count > 0 {
		s.logger.Info("expired stale sessions", zap.Int64("count", count))
		metrics.SessionsExpiredTotal.Add(float64(count))
		publishEvent(ctx, s.events, s.logger, model.EventSessionsExpired, nil, uuid.Nil, map[string]any{
			"count": count,
		})
	}
	return count, nil
}
