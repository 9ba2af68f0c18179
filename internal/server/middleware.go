package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/token"
)

type ctxKey int

const userIDKey ctxKey = iota

// WithUserID stores the authenticated user id on the request context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, or "" when the request was not
// authenticated.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Auth resolves the Bearer credential on every request before the handler
// runs. Missing, malformed, expired and invalid credentials are all refused
// with distinct machine codes.
func Auth(verifier token.Verifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				apperr.WriteHTTP(w, apperr.Unauthenticated("token_missing", "access token not provided"))
				return
			}

			userID, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				apperr.WriteHTTP(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
