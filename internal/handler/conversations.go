package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mentorloop/relationship-engine/internal/middleware"
	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/service"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

// ConversationHandler handles conversation and message endpoints.
type ConversationHandler struct {
	conversations *service.ConversationService
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(conversations *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		logger:        log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := middleware.GetActor(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	convs, err := h.conversations.ListFor(ctx, actor)
	if err != nil {
		h.logger.Error("failed to list conversations")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	})
}

// ListMessages handles GET /api/v1/conversations/{id}/messages
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
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

	afterID := uuid.Nil
	if after := r.URL.Query().Get("after_id"); after != "" {
		if afterID, err = middleware.ValidateID(after); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	messages, err := h.conversations.ListMessages(ctx, id, actor, afterID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: messages,
		HasMore:  len(messages) == limit,
	})
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
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

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.conversations.Send(ctx, id, actor, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// MarkRead handles POST /api/v1/conversations/{id}/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
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

	if err := h.conversations.MarkRead(ctx, id, actor); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
