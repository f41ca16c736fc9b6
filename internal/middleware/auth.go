package middleware

import (
	"net/http"
	"strings"

	"github.com/guildtools/dkpledger/internal/auth"
	"github.com/guildtools/dkpledger/internal/handler"
)

// Auth validates the bearer token and places the resulting Actor, including
// its guild scope, in the request context. Every route behind it is
// tenant-scoped by that actor.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			actor, err := auth.ValidateToken(token, secret)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOfficer rejects callers below officer before any read or write
// happens. It must sit behind Auth.
func RequireOfficer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.ActorFromContext(r.Context())
		if !ok {
			handler.RespondAppError(w, handler.ErrMissingToken, nil)
			return
		}
		if !actor.Role.CanMutatePoints() {
			handler.RespondAppError(w, handler.ErrOfficerRequired, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
