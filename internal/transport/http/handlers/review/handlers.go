package reviewhandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/responses"
	"selfeval/internal/transport/http/api"
	"selfeval/internal/transport/http/middleware"
	"selfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *responses.Service
}

func NewHandler(service *responses.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/review", func(r chi.Router) {
		r.Use(middleware.RequireAnyPermission(auth.PermResponsesReview, auth.PermLibraryReview))
		r.Get("/queue", h.handleQueue)
		r.Post("/users/{email}/responses/{responseID}/status", h.handleStatus)
		library := r.With(middleware.RequirePermission(auth.PermLibraryReview))
		library.Put("/users/{email}/responses/{responseID}/articles", h.handleArticles)
		library.Post("/batch-approve", h.handleBatchApprove)
	})
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type articlesRequest struct {
	Articles []responses.Article `json:"articles"`
}

type batchRequest struct {
	Refs []responses.Ref `json:"refs"`
}

var decisions = []string{string(responses.StatusApproved), string(responses.StatusRejected)}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	filter := responses.QueueFilter{
		Status:   responses.Status(q.Get("status")),
		Category: q.Get("category"),
	}
	if raw := q.Get("library"); raw != "" {
		libraryOnly, err := strconv.ParseBool(raw)
		if err != nil {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "library", Reason: "must be a boolean"}})
			return
		}
		filter.LibraryOnly = libraryOnly
	}

	items, err := h.Service.ReviewQueue(r.Context(), middleware.Actor(r), filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	api.Success(w, shared.Page(items, page), reqID)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload statusRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("status", payload.Status, "is required")
	v.Enum("status", payload.Status, decisions, "must be approved or rejected")
	if v.Reject(w, reqID) {
		return
	}

	updated, err := h.Service.SetStatus(r.Context(), middleware.Actor(r),
		chi.URLParam(r, "email"), chi.URLParam(r, "responseID"),
		responses.Status(payload.Status), payload.Reason)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleArticles(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload articlesRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	updated, err := h.Service.SetArticles(r.Context(), middleware.Actor(r),
		chi.URLParam(r, "email"), chi.URLParam(r, "responseID"), payload.Articles)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleBatchApprove(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload batchRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	if len(payload.Refs) == 0 {
		v.Add("refs", "must not be empty")
	}
	for _, ref := range payload.Refs {
		v.Required("refs.userId", ref.UserID, "is required")
		v.Required("refs.responseId", ref.ResponseID, "is required")
	}
	if v.Reject(w, reqID) {
		return
	}
	outcomes, err := h.Service.BatchApprove(r.Context(), middleware.Actor(r), payload.Refs)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, outcomes, reqID)
}
