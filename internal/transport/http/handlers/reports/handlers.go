package reportshandler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"selfeval/internal/domain/reports"
	"selfeval/internal/transport/http/api"
	"selfeval/internal/transport/http/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/me", h.handleMe)
		r.Get("/users/{email}", h.handleUser)
		r.Get("/users/{email}/pdf", h.handleUserPDF)
		r.Get("/library", h.handleLibrary)
		r.Get("/library/xlsx", h.handleLibraryXLSX)
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Actor(r)
	h.writeReport(w, r, actor.Email)
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r, chi.URLParam(r, "email"))
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, email string) {
	reqID := middleware.GetRequestID(r.Context())
	report, err := h.Service.UserReport(r.Context(), middleware.Actor(r), email)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, report, reqID)
}

func (h *Handler) handleUserPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	email := chi.URLParam(r, "email")
	report, err := h.Service.UserReport(r.Context(), middleware.Actor(r), email)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteUserPDF(&buf, report); err != nil {
		slog.Warn("report pdf render failed", "user", email, "err", err)
		api.Fail(w, http.StatusInternalServerError, "render_failed", "failed to render report", reqID)
		return
	}
	writeFile(w, "application/pdf", "report-"+fileSafe(report.Email)+".pdf", buf.Bytes())
}

func (h *Handler) handleLibrary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	rows, err := h.Service.LibraryOverview(r.Context(), middleware.Actor(r))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, rows, reqID)
}

func (h *Handler) handleLibraryXLSX(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	rows, err := h.Service.LibraryOverview(r.Context(), middleware.Actor(r))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteLibraryXLSX(&buf, rows); err != nil {
		slog.Warn("library xlsx render failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "render_failed", "failed to render overview", reqID)
		return
	}
	writeFile(w, xlsxContentType, "library-overview.xlsx", buf.Bytes())
}

func writeFile(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("write file failed", "file", name, "err", err)
	}
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.ToLower(s))
}
