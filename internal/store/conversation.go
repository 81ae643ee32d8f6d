package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mentorloop/relationship-engine/internal/model"
)

// ConversationRepo persists conversations, their messages, and the
// per-participant unread counters.
type ConversationRepo interface {
	// GetOrCreate returns the single conversation for the unordered pair,
	// inserting it (with both unread counters at zero) if absent. Safe under
	// concurrent first contact: the insert is conflict-tolerant and the loser
	// re-reads the winner's row.
	GetOrCreate(ctx context.Context, a, b model.ActorRef) (*model.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	ListFor(ctx context.Context, actorID uuid.UUID) ([]model.Conversation, error)
	// AppendMessage applies the three effects of a send as one transaction:
	// insert the message, refresh the last-message cache, and increment the
	// recipient's unread counter in place (no read-modify-write).
	AppendMessage(ctx context.Context, msg *model.Message, recipientID uuid.UUID) error
	// ResetUnread zeroes the actor's counter and stamps read_at on inbound
	// messages that had none. Idempotent.
	ResetUnread(ctx context.Context, conversationID, participantID uuid.UUID, at time.Time) error
	ListMessages(ctx context.Context, conversationID, afterID uuid.UUID, limit int) ([]model.Message, error)
}

type conversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo creates a conversation repository over db, which may be
// a transaction handle.
func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) GetOrCreate(ctx context.Context, a, b model.ActorRef) (*model.Conversation, error) {
	key := model.PairKey(a.ID, b.ID)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := &model.Conversation{
			ID:           uuid.Must(uuid.NewV7()),
			PairKey:      key,
			ParticipantA: a,
			ParticipantB: b,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(conv)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // lost the race; winner's row is read below
		}
		counters := []model.UnreadCount{
			{ConversationID: conv.ID, ParticipantID: a.ID, Count: 0},
			{ConversationID: conv.ID, ParticipantID: b.ID, Count: 0},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counters).Error
	})
	if err != nil {
		return nil, err
	}

	var out model.Conversation
	if err := r.db.WithContext(ctx).
		Preload("UnreadCounts").
		Where("pair_key = ?", key).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var out model.Conversation
	if err := r.db.WithContext(ctx).
		Preload("UnreadCounts").
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) ListFor(ctx context.Context, actorID uuid.UUID) ([]model.Conversation, error) {
	var out []model.Conversation
	if err := r.db.WithContext(ctx).
		Preload("UnreadCounts").
		Where("participant_a_id = ? OR participant_b_id = ?", actorID, actorID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) AppendMessage(ctx context.Context, msg *model.Message, recipientID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		// Only advance the cache; a send committing after a message with a
		// greater (created_at, id) must not regress it.
		res := tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Where("last_message_at IS NULL OR last_message_at < ? OR (last_message_at = ? AND last_message_id < ?)",
				msg.CreatedAt, msg.CreatedAt, msg.ID).
			Updates(map[string]interface{}{
				"last_message_id":        msg.ID,
				"last_message_content":   msg.Content,
				"last_message_sender_id": msg.Sender.ID,
				"last_message_at":        msg.CreatedAt,
				"updated_at":             msg.CreatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Either the cache already points at a newer message or the
			// conversation is gone; only the latter is an error.
			var n int64
			if err := tx.Model(&model.Conversation{}).
				Where("id = ?", msg.ConversationID).
				Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("conversation %s vanished during send: %w", msg.ConversationID, model.ErrNotFound)
			}
		}
		return tx.Model(&model.UnreadCount{}).
			Where("conversation_id = ? AND participant_id = ?", msg.ConversationID, recipientID).
			Update("count", gorm.Expr("count + 1")).Error
	})
}

func (r *conversationRepo) ResetUnread(ctx context.Context, conversationID, participantID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.UnreadCount{}).
			Where("conversation_id = ? AND participant_id = ?", conversationID, participantID).
			Update("count", 0).Error; err != nil {
			return err
		}
		return tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, participantID).
			Update("read_at", at).Error
	})
}

func (r *conversationRepo) ListMessages(ctx context.Context, conversationID, afterID uuid.UUID, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ?", conversationID)

	if afterID != uuid.Nil {
		var anchor model.Message
		if err := r.db.WithContext(ctx).
			Where("id = ? AND conversation_id = ?", afterID, conversationID).
			Take(&anchor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, model.ErrNotFound
			}
			return nil, err
		}
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
	}

	var out []model.Message
	if err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
