package notificationshandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"selfeval/internal/domain/notifications"
	"selfeval/internal/transport/http/api"
	"selfeval/internal/transport/http/middleware"
	"selfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
}

func NewHandler(service *notifications.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	items, err := h.Service.List(r.Context(), middleware.Actor(r), unreadOnly)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	api.Success(w, shared.Page(items, page), reqID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if err := h.Service.MarkRead(r.Context(), middleware.Actor(r), chi.URLParam(r, "notificationID")); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"status": "read"}, reqID)
}
