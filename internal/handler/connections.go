// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mentorloop/relationship-engine/internal/middleware"
	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/service"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

// ConnectionHandler handles connection request endpoints.
type ConnectionHandler struct {
	connections  *service.ConnectionService
	orchestrator *service.Orchestrator
	logger       *logger.Logger
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(connections *service.ConnectionService, orchestrator *service.Orchestrator, log *logger.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connections:  connections,
		orchestrator: orchestrator,
		logger:       log,
	}
}

// Create handles POST /api/v1/connections
func (h *ConnectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := middleware.GetActor(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req model.CreateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateRequestMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.connections.Create(ctx, actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Respond handles PUT /api/v1/connections/{id}/respond
func (h *ConnectionHandler) Respond(w http.ResponseWriter, r *http.Request) {
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

	var req model.RespondConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Decision != model.DecisionAccept && req.Decision != model.DecisionReject {
		writeError(w, http.StatusBadRequest, "decision must be accept or reject")
		return
	}
	if err := middleware.ValidateRequestMessage(req.ResponseMessage); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resolved, err := h.orchestrator.Respond(ctx, id, actor, req.Decision, req.ResponseMessage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// List handles GET /api/v1/connections?filter=pending|all
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := middleware.GetActor(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = "all"
	}
	if filter != "pending" && filter != "all" {
		writeError(w, http.StatusBadRequest, "filter must be pending or all")
		return
	}

	requests, err := h.connections.ListFor(ctx, actor, filter)
	if err != nil {
		h.logger.Error("failed to list connection requests")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &model.ListConnectionsResponse{
		Requests: requests,
		Total:    len(requests),
	})
}
