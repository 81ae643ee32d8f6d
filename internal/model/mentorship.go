package model

import (
	"time"

	"github.com/google/uuid"
)

// EngagementStatus is the lifecycle state of a mentorship engagement.
type EngagementStatus string

const (
	EngagementActive    EngagementStatus = "active"
	EngagementPaused    EngagementStatus = "paused"
	EngagementCompleted EngagementStatus = "completed"
)

// Valid reports whether the status is a known engagement state.
func (s EngagementStatus) Valid() bool {
	return s == EngagementActive || s == EngagementPaused || s == EngagementCompleted
}

// MentorshipEngagement is the long-lived tracked relationship created when a
// mentorship-intent connection request is accepted. One per request, enforced
// by the unique index on connection_request_id.
type MentorshipEngagement struct {
	ID                  uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	ConnectionRequestID uuid.UUID        `json:"connection_request_id" gorm:"type:uuid;uniqueIndex"`
	Mentor              ActorRef         `json:"mentor" gorm:"embedded;embeddedPrefix:mentor_"`
	Mentee              ActorRef         `json:"mentee" gorm:"embedded;embeddedPrefix:mentee_"`
	Status              EngagementStatus `json:"status" gorm:"type:varchar(16);index"`
	SkillsToLearn       []string         `json:"skills_to_learn" gorm:"serializer:json"`
	Goals               string           `json:"goals"`

	// SessionsCompleted never exceeds the count of Session rows actually
	// marked completed; the increment is conditional on that count.
	SessionsCompleted    int        `json:"sessions_completed"`
	TotalPlannedSessions int        `json:"total_planned_sessions"`
	NextSessionAt        *time.Time `json:"next_session_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participant reports whether the actor is the mentor or the mentee.
func (e *MentorshipEngagement) Participant(actor ActorRef) bool {
	return e.Mentor.Equal(actor) || e.Mentee.Equal(actor)
}

// Progress returns completion as a percentage in [0,100]. Over-delivery
// beyond the planned count clamps at 100 rather than overflowing.
func (e *MentorshipEngagement) Progress() int {
	if e.TotalPlannedSessions <= 0 {
		return 0
	}
	p := e.SessionsCompleted * 100 / e.TotalPlannedSessions
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// SessionStatus is the lifecycle state of a scheduled session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionExpired   SessionStatus = "expired"
)

// Session is one scheduled meeting instance under an engagement.
// scheduled -> completed|cancelled by explicit actor action,
// scheduled -> expired only by the sweep; all three are final.
type Session struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EngagementID    uuid.UUID `json:"engagement_id" gorm:"type:uuid;index"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	// ExpiresAt is scheduled_at + duration, materialized at creation so the
	// sweep's predicate is a single indexable comparison.
	ExpiresAt time.Time     `json:"expires_at" gorm:"index"`
	Status    SessionStatus `json:"status" gorm:"type:varchar(16);index"`
	Topic     string        `json:"topic,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// EngagementView decorates an engagement with its derived progress for API
// responses; progress is computed, never stored.
type EngagementView struct {
	MentorshipEngagement
	Progress int `json:"progress"`
}

// ScheduleSessionRequest is the body for POST /mentorships/{id}/sessions.
type ScheduleSessionRequest struct {
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Topic           string    `json:"topic,omitempty"`
}

// SetEngagementStatusRequest is the body for PUT /mentorships/{id}/status.
type SetEngagementStatusRequest struct {
	Status EngagementStatus `json:"status"`
}

// SweepResponse reports how many sessions a sweep pass expired.
type SweepResponse struct {
	Expired int64 `json:"expired"`
}
