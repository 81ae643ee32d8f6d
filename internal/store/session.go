package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mentorloop/relationship-engine/internal/model"
)

// SessionRepo persists scheduled sessions.
type SessionRepo interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	ListByEngagement(ctx context.Context, engagementID uuid.UUID) ([]model.Session, error)
	// Resolve conditionally moves a scheduled session to a terminal status
	// and returns the rows changed. Zero rows means the session was already
	// resolved; a racing sweep or actor won.
	Resolve(ctx context.Context, id uuid.UUID, to model.SessionStatus) (int64, error)
	// SweepExpired transitions every scheduled session whose window elapsed
	// before now. The predicate re-checks status at write time, so a
	// concurrent cancel or complete always wins over the sweep.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo creates a session repository over db, which may be a
// transaction handle.
func NewSessionRepo(db *gorm.DB) SessionRepo {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *model.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var out model.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) ListByEngagement(ctx context.Context, engagementID uuid.UUID) ([]model.Session, error) {
	var out []model.Session
	if err := r.db.WithContext(ctx).
		Where("engagement_id = ?", engagementID).
		Order("scheduled_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) Resolve(ctx context.Context, id uuid.UUID, to model.SessionStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND status = ?", id, model.SessionScheduled).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *sessionRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("status = ? AND expires_at < ?", model.SessionScheduled, now).
		Updates(map[string]interface{}{
			"status":     model.SessionExpired,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
