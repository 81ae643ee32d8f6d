package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorloop/relationship-engine/internal/middleware"
	"github.com/mentorloop/relationship-engine/internal/model"
)

const secret = "auth-test-secret"

func sign(t *testing.T, claims *middleware.Claims, key string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestAuthResolvesActor(t *testing.T) {
	actorID := uuid.New()
	var got model.ActorRef
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.GetActor(r.Context())
		require.NoError(t, err)
		got = actor
		w.WriteHeader(http.StatusOK)
	})

	tok := sign(t, &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: model.RoleSenior,
	}, secret)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	middleware.Auth(secret)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ActorRef{Role: model.RoleSenior, ID: actorID}, got)
}

func TestAuthRejections(t *testing.T) {
	expired := sign(t, &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: model.RoleJunior,
	}, secret)
	wrongKey := sign(t, &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: model.RoleJunior,
	}, "other-secret")
	badRole := sign(t, &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "admin",
	}, secret)
	badSubject := sign(t, &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: model.RoleJunior,
	}, secret)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer garbage"},
		{"expired token", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"unknown role", "Bearer " + badRole},
		{"non-uuid subject", "Bearer " + badSubject},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with invalid credentials")
	})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			middleware.Auth(secret)(next).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestGetActorWithoutAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := middleware.GetActor(req.Context())
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, middleware.ValidateMessageContent("hello"))
	assert.Error(t, middleware.ValidateMessageContent(""))
	assert.Error(t, middleware.ValidateMessageContent(strings.Repeat("a", 100001)))
	assert.Error(t, middleware.ValidateMessageContent("\xff\xfe"))
}

func TestValidateRequestMessage(t *testing.T) {
	assert.NoError(t, middleware.ValidateRequestMessage(""))
	assert.NoError(t, middleware.ValidateRequestMessage("interested in mentoring"))
	assert.Error(t, middleware.ValidateRequestMessage(strings.Repeat("a", 2001)))
}

func TestValidateID(t *testing.T) {
	id := uuid.New()
	parsed, err := middleware.ValidateID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = middleware.ValidateID("nope")
	assert.Error(t, err)
}
