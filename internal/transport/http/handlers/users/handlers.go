package usershandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/users"
	"selfeval/internal/transport/http/api"
	"selfeval/internal/transport/http/middleware"
	"selfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *users.Service
}

func NewHandler(service *users.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermUsersManage))
		r.Get("/", h.handleList)
		r.Put("/{email}/roles", h.handleSetRoles)
	})
}

type rolesRequest struct {
	Roles []string `json:"roles"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	list, err := h.Service.List(r.Context(), middleware.Actor(r))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	w.Header().Set("X-Total-Count", strconv.Itoa(len(list)))
	api.Success(w, shared.Page(list, page), reqID)
}

func (h *Handler) handleSetRoles(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload rolesRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	for _, role := range payload.Roles {
		v.Enum("roles", role, auth.KnownRoles, "unknown role "+role)
	}
	if v.Reject(w, reqID) {
		return
	}
	profile, err := h.Service.SetRoles(r.Context(), middleware.Actor(r), chi.URLParam(r, "email"), payload.Roles)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, profile, reqID)
}
