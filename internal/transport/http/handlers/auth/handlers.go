package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/users"
	"selfeval/internal/transport/http/api"
	"selfeval/internal/transport/http/middleware"
	"selfeval/internal/transport/http/shared"
)

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

type Handler struct {
	Users    *users.Service
	Google   IdentityVerifier
	Secret   string
	TokenTTL time.Duration
}

func NewHandler(svc *users.Service, google IdentityVerifier, secret string, ttl time.Duration) *Handler {
	return &Handler{Users: svc, Google: google, Secret: secret, TokenTTL: ttl}
}

// RegisterPublicRoutes mounts the sign-in endpoints, which run without a session.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/google", h.HandleGoogle)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.HandleMe)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	IDToken string `json:"idToken"`
}

type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      users.Profile `json:"user"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Email("email", payload.Email)
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, reqID) {
		return
	}

	profile, err := h.Users.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Warn("local login failed", "email", payload.Email, "err", err)
		}
		api.FailError(w, err, reqID)
		return
	}
	h.issue(w, profile, reqID)
}

func (h *Handler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Google == nil {
		api.Fail(w, http.StatusNotImplemented, "provider_disabled", "google sign-in is not configured", reqID)
		return
	}
	var payload googleRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("idToken", payload.IDToken, "is required")
	if v.Reject(w, reqID) {
		return
	}

	identity, err := h.Google.Verify(r.Context(), payload.IDToken)
	if err != nil {
		slog.Warn("google token rejected", "err", err)
		api.Fail(w, http.StatusUnauthorized, "invalid_token", "invalid identity token", reqID)
		return
	}
	profile, err := h.Users.SignIn(r.Context(), identity)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	h.issue(w, profile, reqID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	profile, err := h.Users.Get(r.Context(), user.Email)
	if errors.Is(err, users.ErrNotFound) {
		profile = users.Profile{Email: user.Email, Name: user.Name, Roles: user.Roles}
	} else if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]any{
		"profile":     profile,
		"permissions": permissionsOf(user),
	}, reqID)
}

func (h *Handler) issue(w http.ResponseWriter, profile users.Profile, reqID string) {
	actor := auth.Actor{Email: profile.Email, Name: profile.Name, Roles: profile.Roles}
	token, err := auth.GenerateToken(h.Secret, actor, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", reqID)
		return
	}
	api.Success(w, sessionResponse{Token: token, ExpiresAt: time.Now().Add(h.TokenTTL).UTC(), User: profile}, reqID)
}

func permissionsOf(actor auth.Actor) []string {
	out := []string{}
	for _, p := range []string{
		auth.PermFormFill,
		auth.PermCatalogEdit,
		auth.PermUsersManage,
		auth.PermResponsesReview,
		auth.PermLibraryReview,
		auth.PermReportsRead,
	} {
		if actor.Can(p) {
			out = append(out, p)
		}
	}
	return out
}
