package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorloop/relationship-engine/internal/handler"
	"github.com/mentorloop/relationship-engine/internal/middleware"
	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/service"
	"github.com/mentorloop/relationship-engine/internal/store"
	"github.com/mentorloop/relationship-engine/internal/store/storetest"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

const testSecret = "test-secret"

func token(t *testing.T, actor model.ActorRef) string {
	t.Helper()
	claims := &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: actor.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// newServer wires the full API surface over an in-memory store, mirroring
// the production router minus rate limiting.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := storetest.DB(t)
	log := logger.NewNop()

	connectionRepo := store.NewConnectionRepo(db)
	conversationRepo := store.NewConversationRepo(db)
	mentorshipRepo := store.NewMentorshipRepo(db)

	connectionSvc := service.NewConnectionService(connectionRepo, nil, log)
	conversationSvc := service.NewConversationService(conversationRepo, nil, log)
	mentorshipSvc := service.NewMentorshipService(mentorshipRepo, nil, log)
	sessionSvc := service.NewSessionService(db, mentorshipSvc, nil, log)
	orchestrator := service.NewOrchestrator(db, nil, false, 5, log)

	connectionHandler := handler.NewConnectionHandler(connectionSvc, orchestrator, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	mentorshipHandler := handler.NewMentorshipHandler(mentorshipSvc, sessionSvc, log)
	sessionHandler := handler.NewSessionHandler(sessionSvc, log)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(testSecret))

		r.Route("/connections", func(r chi.Router) {
			r.Post("/", connectionHandler.Create)
			r.Get("/", connectionHandler.List)
			r.Put("/{id}/respond", connectionHandler.Respond)
		})
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", conversationHandler.ListMessages)
				r.Post("/messages", conversationHandler.Send)
				r.Post("/read", conversationHandler.MarkRead)
			})
		})
		r.Route("/mentorships", func(r chi.Router) {
			r.Get("/", mentorshipHandler.List)
			r.Get("/sessions/check-expired", mentorshipHandler.CheckExpired)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/status", mentorshipHandler.SetStatus)
				r.Post("/sessions", mentorshipHandler.ScheduleSession)
				r.Get("/sessions", mentorshipHandler.ListSessions)
			})
		})
		r.Route("/sessions", func(r chi.Router) {
			r.Put("/{id}/complete", sessionHandler.Complete)
			r.Put("/{id}/cancel", sessionHandler.Cancel)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, as model.ActorRef, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, as))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestAuthRequired(t *testing.T) {
	srv := newServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/connections", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectionLifecycleOverHTTP(t *testing.T) {
	srv := newServer(t)

	junior := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}
	senior := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}

	resp, raw := do(t, srv, junior, http.MethodPost, "/api/v1/connections", model.CreateConnectionRequest{
		ToRole:           model.RoleSenior,
		ToID:             senior.ID,
		Message:          "interested in mentoring",
		MentorshipIntent: true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var created model.ConnectionRequest
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, model.ConnectionPending, created.Status)

	// A duplicate pending request for the pair is a conflict.
	resp, _ = do(t, srv, junior, http.MethodPost, "/api/v1/connections", model.CreateConnectionRequest{
		ToRole: model.RoleSenior, ToID: senior.ID, Message: "again",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The recipient sees it pending.
	resp, raw = do(t, srv, senior, http.MethodGet, "/api/v1/connections?filter=pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed model.ListConnectionsResponse
	require.NoError(t, json.Unmarshal(raw, &listed))
	require.Equal(t, 1, listed.Total)

	// Only the recipient may respond.
	respondPath := fmt.Sprintf("/api/v1/connections/%s/respond", created.ID)
	resp, _ = do(t, srv, junior, http.MethodPut, respondPath, model.RespondConnectionRequest{Decision: model.DecisionAccept})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = do(t, srv, senior, http.MethodPut, respondPath, model.RespondConnectionRequest{
		Decision:        model.DecisionAccept,
		ResponseMessage: "happy to help",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	// A second response conflicts.
	resp, _ = do(t, srv, senior, http.MethodPut, respondPath, model.RespondConnectionRequest{Decision: model.DecisionReject})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Acceptance unlocked the conversation.
	resp, raw = do(t, srv, junior, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var convs model.ListConversationsResponse
	require.NoError(t, json.Unmarshal(raw, &convs))
	require.Equal(t, 1, convs.Total)
	convID := convs.Conversations[0].ID

	// Messaging and unread accounting.
	resp, _ = do(t, srv, junior, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%s/messages", convID), model.SendMessageRequest{Content: "thanks!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw = do(t, srv, senior, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &convs))
	require.Len(t, convs.Conversations[0].UnreadCounts, 2)
	for _, uc := range convs.Conversations[0].UnreadCounts {
		if uc.ParticipantID == senior.ID {
			assert.Equal(t, 1, uc.Count)
		} else {
			assert.Zero(t, uc.Count)
		}
	}

	resp, _ = do(t, srv, senior, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%s/read", convID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The mentorship-intent acceptance started an engagement.
	resp, raw = do(t, srv, junior, http.MethodGet, "/api/v1/mentorships", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var engagements struct {
		Engagements []model.EngagementView `json:"engagements"`
		Total       int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(raw, &engagements))
	require.Equal(t, 1, engagements.Total)
	engagementID := engagements.Engagements[0].ID
	assert.Equal(t, senior.ID, engagements.Engagements[0].Mentor.ID)

	// Schedule, complete, and watch progress move.
	resp, raw = do(t, srv, senior, http.MethodPost, fmt.Sprintf("/api/v1/mentorships/%s/sessions", engagementID), model.ScheduleSessionRequest{
		ScheduledAt:     time.Now().UTC().Add(2 * time.Hour),
		DurationMinutes: 45,
		Topic:           "career goals",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var sess model.Session
	require.NoError(t, json.Unmarshal(raw, &sess))

	resp, raw = do(t, srv, junior, http.MethodPut, fmt.Sprintf("/api/v1/sessions/%s/complete", sess.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = do(t, srv, junior, http.MethodGet, "/api/v1/mentorships", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &engagements))
	assert.Equal(t, 1, engagements.Engagements[0].SessionsCompleted)
	assert.Equal(t, 20, engagements.Engagements[0].Progress)

	// Completing again conflicts.
	resp, _ = do(t, srv, junior, http.MethodPut, fmt.Sprintf("/api/v1/sessions/%s/complete", sess.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestValidationErrors(t *testing.T) {
	srv := newServer(t)
	actor := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}

	resp, _ := do(t, srv, actor, http.MethodPost, "/api/v1/connections", model.CreateConnectionRequest{
		ToRole: "wizard", ToID: uuid.New(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, actor, http.MethodPost, "/api/v1/connections", model.CreateConnectionRequest{
		ToRole: model.RoleSenior, ToID: actor.ID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, actor, http.MethodPut, "/api/v1/connections/not-a-uuid/respond", model.RespondConnectionRequest{Decision: model.DecisionAccept})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, actor, http.MethodPut, fmt.Sprintf("/api/v1/connections/%s/respond", uuid.New()), model.RespondConnectionRequest{Decision: "maybe"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, actor, http.MethodPut, fmt.Sprintf("/api/v1/connections/%s/respond", uuid.New()), model.RespondConnectionRequest{Decision: model.DecisionAccept})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, actor, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%s/messages", uuid.New()), model.SendMessageRequest{Content: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, actor, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%s/messages", uuid.New()), model.SendMessageRequest{Content: "hello"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckExpiredEndpoint(t *testing.T) {
	srv := newServer(t)
	actor := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}

	resp, raw := do(t, srv, actor, http.MethodGet, "/api/v1/mentorships/sessions/check-expired", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sweep model.SweepResponse
	require.NoError(t, json.Unmarshal(raw, &sweep))
	assert.Zero(t, sweep.Expired)
}
