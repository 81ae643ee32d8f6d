package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mentorloop/relationship-engine/internal/model"
)

// MentorshipRepo persists mentorship engagements.
type MentorshipRepo interface {
	// Create inserts the engagement; a second insert for the same connection
	// request fails with model.ErrConflict.
	Create(ctx context.Context, e *model.MentorshipEngagement) error
	// CreateIfAbsent is the orchestrator's idempotent variant: conflict-
	// tolerant insert followed by a re-read keyed on the request id, so a
	// re-run acceptance converges on the existing row.
	CreateIfAbsent(ctx context.Context, e *model.MentorshipEngagement) (*model.MentorshipEngagement, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.MentorshipEngagement, error)
	ListFor(ctx context.Context, actorID uuid.UUID) ([]model.MentorshipEngagement, error)
	// IncrementCompleted bumps sessions_completed, capped by the number of
	// session rows actually marked completed, and returns the fresh row.
	IncrementCompleted(ctx context.Context, id uuid.UUID) (*model.MentorshipEngagement, error)
	// SetStatus conditionally transitions a non-completed engagement and
	// returns the rows changed; completed is terminal at the store level.
	SetStatus(ctx context.Context, id uuid.UUID, status model.EngagementStatus) (int64, error)
	// RefreshNextSessions re-derives next_session_at for engagements whose
	// pointer has fallen into the past, from their earliest remaining
	// scheduled session.
	RefreshNextSessions(ctx context.Context, now time.Time) error
	AdvanceNextSession(ctx context.Context, id uuid.UUID, at time.Time) error
}

type mentorshipRepo struct {
	db *gorm.DB
}

// NewMentorshipRepo creates an engagement repository over db, which may be a
// transaction handle.
func NewMentorshipRepo(db *gorm.DB) MentorshipRepo {
	return &mentorshipRepo{db: db}
}

func (r *mentorshipRepo) Create(ctx context.Context, e *model.MentorshipEngagement) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.ErrConflict
		}
		return err
	}
	return nil
}

func (r *mentorshipRepo) CreateIfAbsent(ctx context.Context, e *model.MentorshipEngagement) (*model.MentorshipEngagement, error) {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e).Error; err != nil {
		return nil, err
	}
	var out model.MentorshipEngagement
	if err := r.db.WithContext(ctx).
		Where("connection_request_id = ?", e.ConnectionRequestID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *mentorshipRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.MentorshipEngagement, error) {
	var out model.MentorshipEngagement
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *mentorshipRepo) ListFor(ctx context.Context, actorID uuid.UUID) ([]model.MentorshipEngagement, error) {
	var out []model.MentorshipEngagement
	if err := r.db.WithContext(ctx).
		Where("mentor_id = ? OR mentee_id = ?", actorID, actorID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mentorshipRepo) IncrementCompleted(ctx context.Context, id uuid.UUID) (*model.MentorshipEngagement, error) {
	// The subquery cap defends against double-counting when two completions
	// of the same session race the tracker.
	if err := r.db.WithContext(ctx).
		Model(&model.MentorshipEngagement{}).
		Where("id = ? AND sessions_completed < (?)", id,
			r.db.Model(&model.Session{}).
				Select("COUNT(*)").
				Where("engagement_id = ? AND status = ?", id, model.SessionCompleted),
		).
		Updates(map[string]interface{}{
			"sessions_completed": gorm.Expr("sessions_completed + 1"),
			"updated_at":         time.Now().UTC(),
		}).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *mentorshipRepo) SetStatus(ctx context.Context, id uuid.UUID, status model.EngagementStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.MentorshipEngagement{}).
		Where("id = ? AND status <> ?", id, model.EngagementCompleted).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *mentorshipRepo) RefreshNextSessions(ctx context.Context, now time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE mentorship_engagements
		SET next_session_at = (
			SELECT MIN(scheduled_at) FROM sessions
			WHERE sessions.engagement_id = mentorship_engagements.id
			  AND sessions.status = ?
			  AND sessions.scheduled_at > ?
		)
		WHERE next_session_at IS NOT NULL AND next_session_at <= ?`,
		model.SessionScheduled, now, now).Error
}

func (r *mentorshipRepo) AdvanceNextSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.MentorshipEngagement{}).
		Where("id = ? AND (next_session_at IS NULL OR next_session_at > ?)", id, at).
		Update("next_session_at", at).Error
}
