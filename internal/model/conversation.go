package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the message thread unlocked between two actors once a
// connection request is accepted. Exactly one exists per unordered pair,
// enforced by the unique index on pair_key.
type Conversation struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PairKey      string    `json:"-" gorm:"type:varchar(80);uniqueIndex"`
	ParticipantA ActorRef  `json:"participant_a" gorm:"embedded;embeddedPrefix:participant_a_"`
	ParticipantB ActorRef  `json:"participant_b" gorm:"embedded;embeddedPrefix:participant_b_"`

	// Denormalized cache of the most recent message in the thread, by
	// (created_at, id). Updated in the same transaction as every send so it
	// can never lag the thread; the refresh is conditional so a send that
	// commits late cannot regress it.
	LastMessageID       *uuid.UUID `json:"last_message_id,omitempty" gorm:"type:uuid"`
	LastMessageContent  *string    `json:"last_message_content,omitempty"`
	LastMessageSenderID *uuid.UUID `json:"last_message_sender_id,omitempty" gorm:"type:uuid"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Populated on read, one row per participant.
	UnreadCounts []UnreadCount `json:"unread_counts,omitempty" gorm:"foreignKey:ConversationID"`
}

// Participant reports whether the actor is one of the two participants.
func (c *Conversation) Participant(actor ActorRef) bool {
	return c.ParticipantA.Equal(actor) || c.ParticipantB.Equal(actor)
}

// Other returns the participant that is not the given actor.
func (c *Conversation) Other(actor ActorRef) ActorRef {
	if c.ParticipantA.Equal(actor) {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// UnreadCount is the per-participant counter of messages sent by the other
// side since the participant's last read acknowledgement.
type UnreadCount struct {
	ConversationID uuid.UUID `json:"-" gorm:"type:uuid;primaryKey"`
	ParticipantID  uuid.UUID `json:"participant_id" gorm:"type:uuid;primaryKey"`
	Count          int       `json:"count"`
}

// Message is one append-only entry in a conversation thread. Ordering is
// (created_at, id); IDs are UUIDv7 so the tiebreak follows insertion order.
type Message struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID  `json:"conversation_id" gorm:"type:uuid;index:idx_messages_thread"`
	Sender         ActorRef   `json:"sender" gorm:"embedded;embeddedPrefix:sender_"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index:idx_messages_thread"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// SendMessageRequest is the body for POST /conversations/{id}/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
