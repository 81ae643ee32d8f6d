package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mentorloop/relationship-engine/internal/middleware"
	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/service"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

// MentorshipHandler handles engagement and session endpoints.
type MentorshipHandler struct {
	mentorships *service.MentorshipService
	sessions    *service.SessionService
	logger      *logger.Logger
}

// NewMentorshipHandler creates a new mentorship handler.
func NewMentorshipHandler(mentorships *service.MentorshipService, sessions *service.SessionService, log *logger.Logger) *MentorshipHandler {
	return &MentorshipHandler{
		mentorships: mentorships,
		sessions:    sessions,
		logger:      log,
	}
}

// List handles GET /api/v1/mentorships
func (h *MentorshipHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := middleware.GetActor(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	engagements, err := h.mentorships.ListFor(ctx, actor)
	if err != nil {
		h.logger.Error("failed to list engagements")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"engagements": engagements,
		"total":       len(engagements),
	})
}

// SetStatus handles PUT /api/v1/mentorships/{id}/status
func (h *MentorshipHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := middleware.GetActor(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	id, err := middleware.ValidateID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SetEngagementStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be active, paused, or completed")
		return
	}

	e, err := h.mentorships.SetStatus(ctx, id, actor, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &model.EngagementView{MentorshipEngagement: *e, Progress: e.Progress()})
}

// ScheduleSession handles POST /api/v1/mentorships/{id}/sessions
func (h *MentorshipHandler) ScheduleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := middleware.GetActor(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	id, err := middleware.ValidateID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ScheduleSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.sessions.Schedule(ctx, id, actor, req.ScheduledAt, req.DurationMinutes, req.Topic)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// ListSessions handles GET /api/v1/mentorships/{id}/sessions
func (h *MentorshipHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := middleware.GetActor(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	id, err := middleware.ValidateID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := h.sessions.ListForEngagement(ctx, id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// CheckExpired handles GET /api/v1/mentorships/sessions/check-expired.
// A client nudge into the same idempotent pass the background sweeper runs.
func (h *MentorshipHandler) CheckExpired(w http.ResponseWriter, r *http.Request) {
	count, err := h.sessions.SweepExpired(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("on-demand sweep failed")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &model.SweepResponse{Expired: count})
}
