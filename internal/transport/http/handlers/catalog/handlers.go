package cataloghandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/catalog"
	"selfeval/internal/transport/http/api"
	"selfeval/internal/transport/http/middleware"
	"selfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/categories", h.handleCategories)
		r.Get("/categories/{category}/questions", h.handleQuestions)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(auth.PermCatalogEdit))
			r.Post("/questions", h.handleCreate)
			r.Put("/questions/{questionID}", h.handleUpdate)
			r.Delete("/questions/{questionID}", h.handleDelete)
			r.Post("/seed", h.handleSeed)
		})
	})
}

type questionRequest struct {
	Title            string             `json:"title"`
	Category         string             `json:"category"`
	Points           catalog.PointValue `json:"points"`
	Tooltip          []string           `json:"tooltip"`
	LibraryEvaluated bool               `json:"libraryEvaluated"`
}

func (q questionRequest) question(id string) catalog.Question {
	return catalog.Question{
		ID:               id,
		Title:            q.Title,
		Category:         q.Category,
		Points:           q.Points,
		Tooltip:          q.Tooltip,
		LibraryEvaluated: q.LibraryEvaluated,
	}
}

func (q questionRequest) validate() *shared.Validator {
	v := shared.NewValidator()
	v.Required("title", q.Title, "is required")
	v.Required("category", q.Category, "is required")
	return v
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	categories, err := h.Service.Categories(r.Context())
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, categories, reqID)
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	questions, err := h.Service.ListByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, questions, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload questionRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	if payload.validate().Reject(w, reqID) {
		return
	}
	q, err := h.Service.Create(r.Context(), middleware.Actor(r), payload.question(""))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, q, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload questionRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	if payload.validate().Reject(w, reqID) {
		return
	}
	q, err := h.Service.Update(r.Context(), middleware.Actor(r), payload.question(chi.URLParam(r, "questionID")))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, q, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if err := h.Service.Delete(r.Context(), middleware.Actor(r), chi.URLParam(r, "questionID")); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

type seedRequest struct {
	Category string `json:"category"`
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload seedRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("category", payload.Category, "is required")
	if v.Reject(w, reqID) {
		return
	}
	result, err := h.Service.BulkSeed(r.Context(), middleware.Actor(r), payload.Category)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, result, reqID)
}
