// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mentorloop/relationship-engine/internal/model"
)

// ContextKey is a type for context keys.
type ContextKey string

// ActorKey is the context key for the authenticated actor.
const ActorKey ContextKey = "actor"

// Claims represents JWT claims. Subject carries the actor id; Role carries
// the actor kind, so identity resolves to a full (role, id) pair without a
// profile lookup.
type Claims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
}

// Auth creates JWT authentication middleware that resolves the bearer token
// to an ActorRef and stores it in the request context.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			actorID, err := uuid.Parse(claims.Subject)
			if err != nil || !claims.Role.Valid() {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			actor := model.ActorRef{Role: claims.Role, ID: actorID}
			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor returns the authenticated actor from the context.
func GetActor(ctx context.Context) (model.ActorRef, error) {
	if v, ok := ctx.Value(ActorKey).(model.ActorRef); ok {
		return v, nil
	}
	return model.ActorRef{}, model.ErrUnauthenticated
}
