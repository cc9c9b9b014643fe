package api

import (
	"errors"
	"log/slog"
	"net/http"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/catalog"
	"selfeval/internal/domain/notifications"
	"selfeval/internal/domain/reconcile"
	"selfeval/internal/domain/responses"
	"selfeval/internal/domain/users"
	"selfeval/internal/platform/docstore"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{auth.ErrNotAuthenticated, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
	{responses.ErrEditForbidden, http.StatusConflict, "edit_forbidden"},
	{responses.ErrNotFound, http.StatusNotFound, "not_found"},
	{catalog.ErrNotFound, http.StatusNotFound, "not_found"},
	{users.ErrNotFound, http.StatusNotFound, "not_found"},
	{notifications.ErrNotFound, http.StatusNotFound, "not_found"},
	{docstore.ErrNotFound, http.StatusNotFound, "not_found"},
	{catalog.ErrInvalidQuestion, http.StatusBadRequest, "invalid_question"},
	{catalog.ErrNoSeedSource, http.StatusBadRequest, "no_seed_source"},
	{reconcile.ErrInvalidPoints, http.StatusBadRequest, "invalid_points"},
	{reconcile.ErrUnknownQuestion, http.StatusBadRequest, "unknown_question"},
	{responses.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{responses.ErrInvalidArticles, http.StatusBadRequest, "invalid_articles"},
	{users.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{docstore.ErrUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
}

// Status maps a domain error to its HTTP status and error code.
func Status(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// FailError writes the envelope for a domain error. Unmapped errors are logged
// and reported without detail.
func FailError(w http.ResponseWriter, err error, requestID string) {
	status, code := Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "requestId", requestID, "err", err)
		message = "internal error"
	}
	Fail(w, status, code, message, requestID)
}
