package formhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"selfeval/internal/domain/reconcile"
	"selfeval/internal/transport/http/api"
	"selfeval/internal/transport/http/middleware"
	"selfeval/internal/transport/http/shared"
)

type Handler struct {
	Engine *reconcile.Engine
}

func NewHandler(engine *reconcile.Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/form", func(r chi.Router) {
		r.Post("/switch", h.handleSwitch)
		r.Get("/{category}", h.handleGet)
		r.Post("/{category}/save", h.handleSave)
		r.Delete("/{category}/items/{questionID}", h.handleDeleteItem)
	})
}

type saveRequest struct {
	Items []reconcile.Edit `json:"items"`
}

type saveResponse struct {
	Form   *reconcile.Form      `json:"form"`
	Result reconcile.SaveResult `json:"result"`
}

type switchRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	form, err := h.Engine.Load(r.Context(), middleware.Actor(r), chi.URLParam(r, "category"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, form, reqID)
}

// handleSave answers 200 even when some items failed; per-item outcomes are in the result.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload saveRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	for _, item := range payload.Items {
		v.Required("items.questionId", item.QuestionID, "is required")
	}
	if v.Reject(w, reqID) {
		return
	}

	form, result, err := h.Engine.SaveEdits(r.Context(), middleware.Actor(r), chi.URLParam(r, "category"), payload.Items)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, saveResponse{Form: form, Result: result}, reqID)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor := middleware.Actor(r)
	form, err := h.Engine.Load(r.Context(), actor, chi.URLParam(r, "category"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if err := h.Engine.Delete(r.Context(), actor, form, chi.URLParam(r, "questionID")); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, form, reqID)
}

func (h *Handler) handleSwitch(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload switchRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("to", payload.To, "is required")
	if v.Reject(w, reqID) {
		return
	}
	form, err := h.Engine.Switch(r.Context(), middleware.Actor(r), payload.From, payload.To)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, form, reqID)
}
