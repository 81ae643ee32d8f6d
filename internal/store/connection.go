package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mentorloop/relationship-engine/internal/model"
)

// ConnectionRepo persists connection requests.
type ConnectionRepo interface {
	Create(ctx context.Context, req *model.ConnectionRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ConnectionRequest, error)
	// Resolve conditionally moves a pending request to a terminal status and
	// returns the number of rows changed. Zero rows means the request was
	// already resolved (or never existed); callers distinguish via GetByID.
	Resolve(ctx context.Context, id uuid.UUID, status model.ConnectionStatus, responseMessage string, at time.Time) (int64, error)
	ListFor(ctx context.Context, actorID uuid.UUID, pendingOnly bool) ([]model.ConnectionRequest, error)
}

type connectionRepo struct {
	db *gorm.DB
}

// NewConnectionRepo creates a connection request repository over db, which
// may be a transaction handle.
func NewConnectionRepo(db *gorm.DB) ConnectionRepo {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) Create(ctx context.Context, req *model.ConnectionRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.ErrDuplicatePending
		}
		return err
	}
	return nil
}

func (r *connectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.ConnectionRequest, error) {
	var out model.ConnectionRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *connectionRepo) Resolve(ctx context.Context, id uuid.UUID, status model.ConnectionStatus, responseMessage string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ConnectionRequest{}).
		Where("id = ? AND status = ?", id, model.ConnectionPending).
		Updates(map[string]interface{}{
			"status":           status,
			"response_message": responseMessage,
			"responded_at":     at,
		})
	return res.RowsAffected, res.Error
}

func (r *connectionRepo) ListFor(ctx context.Context, actorID uuid.UUID, pendingOnly bool) ([]model.ConnectionRequest, error) {
	q := r.db.WithContext(ctx).
		Model(&model.ConnectionRequest{}).
		Where("from_id = ? OR to_id = ?", actorID, actorID)
	if pendingOnly {
		q = q.Where("status = ?", model.ConnectionPending)
	}
	var out []model.ConnectionRequest
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
