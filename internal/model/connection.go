package model

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus is the lifecycle state of a connection request.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
)

// Terminal reports whether the status can never change again.
func (s ConnectionStatus) Terminal() bool {
	return s == ConnectionAccepted || s == ConnectionRejected
}

// Decision is the recipient's answer to a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ConnectionRequest is the pending/accepted/rejected proposal linking two
// actors. At most one pending request may exist per unordered pair; the
// partial unique index on pair_key enforces that at the store level.
type ConnectionRequest struct {
	ID               uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	From             ActorRef         `json:"from" gorm:"embedded;embeddedPrefix:from_"`
	To               ActorRef         `json:"to" gorm:"embedded;embeddedPrefix:to_"`
	PairKey          string           `json:"-" gorm:"type:varchar(80);index:idx_pending_pair,unique,where:status = 'pending'"`
	Status           ConnectionStatus `json:"status" gorm:"type:varchar(16);index"`
	Message          string           `json:"message"`
	MentorshipIntent bool             `json:"mentorship_intent"`

	// Mentorship terms stated by the requester; carried onto the engagement
	// when acceptance starts one.
	SkillsToLearn   []string `json:"skills_to_learn,omitempty" gorm:"serializer:json"`
	Goals           string   `json:"goals,omitempty"`
	PlannedSessions int      `json:"planned_sessions,omitempty"`

	ResponseMessage string     `json:"response_message,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CreateConnectionRequest is the body for POST /connections.
type CreateConnectionRequest struct {
	ToRole           Role      `json:"to_role"`
	ToID             uuid.UUID `json:"to_id"`
	Message          string    `json:"message"`
	MentorshipIntent bool      `json:"mentorship_intent"`
	SkillsToLearn    []string  `json:"skills_to_learn,omitempty"`
	Goals            string    `json:"goals,omitempty"`
	PlannedSessions  int       `json:"planned_sessions,omitempty"`
}

// RespondConnectionRequest is the body for PUT /connections/{id}/respond.
type RespondConnectionRequest struct {
	Decision        Decision `json:"decision"`
	ResponseMessage string   `json:"response_message,omitempty"`
}

// ListConnectionsResponse is the response for listing connection requests.
type ListConnectionsResponse struct {
	Requests []ConnectionRequest `json:"requests"`
	Total    int                 `json:"total"`
}
