package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mentorloop/relationship-engine/internal/middleware"
	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/service"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

// SessionHandler handles individual session resolution endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   log,
	}
}

type resolveOp func(ctx context.Context, id uuid.UUID, actor model.ActorRef) (*model.Session, error)

// Complete handles PUT /api/v1/sessions/{id}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.sessions.Complete)
}

// Cancel handles PUT /api/v1/sessions/{id}/cancel
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.sessions.Cancel)
}

func (h *SessionHandler) resolve(w http.ResponseWriter, r *http.Request, op resolveOp) {
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

	sess, err := op(ctx, id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
