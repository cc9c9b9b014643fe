package responseshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"selfeval/internal/domain/responses"
	"selfeval/internal/transport/http/api"
	"selfeval/internal/transport/http/middleware"
)

type Handler struct {
	Service *responses.Service
}

func NewHandler(service *responses.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/responses", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Delete("/{responseID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor := middleware.Actor(r)
	list, err := h.Service.ListForUser(r.Context(), actor, actor.Email, r.URL.Query().Get("category"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if list == nil {
		list = []responses.Response{}
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor := middleware.Actor(r)
	if err := h.Service.Remove(r.Context(), actor, actor.Email, chi.URLParam(r, "responseID")); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}
