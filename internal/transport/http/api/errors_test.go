package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/reconcile"
	"selfeval/internal/domain/responses"
	"selfeval/internal/platform/docstore"
)

func TestStatusMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{auth.ErrNotAuthenticated, http.StatusUnauthorized, "unauthorized"},
		{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("save: %w", responses.ErrEditForbidden), http.StatusConflict, "edit_forbidden"},
		{responses.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: %q", reconcile.ErrInvalidPoints, "x"), http.StatusBadRequest, "invalid_points"},
		{docstore.Unavailable("find", errors.New("conn refused")), http.StatusServiceUnavailable, "store_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := Status(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("Status(%v) = %d %s; want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestFailErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, errors.New("pq: secret detail"), "req-1")

	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || env.Success || env.Error.Message != "internal error" || env.RequestID != "req-1" {
		t.Fatalf("unexpected envelope: %d %+v", rec.Code, env)
	}
}
