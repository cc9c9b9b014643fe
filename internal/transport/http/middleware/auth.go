package middleware

import (
	"context"
	"net/http"
	"strings"

	"selfeval/internal/domain/auth"
	"selfeval/internal/transport/http/api"
)

// Auth puts the actor of a valid bearer token into the request context.
// Requests without a valid token pass through anonymous.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.Actor())))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, actor auth.Actor) context.Context {
	return context.WithValue(ctx, ctxKeyUser, actor)
}

func GetUser(ctx context.Context) (auth.Actor, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.Actor)
	return user, ok && user.Authenticated()
}

// Actor returns the request's actor, or the zero actor when anonymous.
func Actor(r *http.Request) auth.Actor {
	user, _ := GetUser(r.Context())
	return user
}
