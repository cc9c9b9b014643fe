package shared

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidatorCollectsSortedIssues(t *testing.T) {
	v := NewValidator()
	v.Required("status", " ", "is required")
	v.Enum("category", "Other", []string{"Publikacje"}, "is unknown")
	v.Email("email", "not-an-email")
	v.Email("owner", "jan@uni.edu")

	issues := v.Issues()
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %+v", issues)
	}
	if issues[0].Field != "category" || issues[1].Field != "email" || issues[2].Field != "status" {
		t.Fatalf("unexpected order: %+v", issues)
	}

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req") || rec.Code != http.StatusBadRequest {
		t.Fatalf("expected rejection, got %d", rec.Code)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := Page(items, Pagination{Limit: 2, Offset: 1}); len(got) != 2 || got[0] != 2 {
		t.Fatalf("unexpected page: %v", got)
	}
	if got := Page(items, Pagination{Limit: 10, Offset: 4}); len(got) != 1 || got[0] != 5 {
		t.Fatalf("unexpected tail page: %v", got)
	}
	if got := Page(items, Pagination{Limit: 2, Offset: 9}); len(got) != 0 {
		t.Fatalf("expected empty page, got %v", got)
	}
}

func TestParsePaginationClampsLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=900&offset=-3", nil)
	p := ParsePagination(req, 50, 200)
	if p.Limit != 200 || p.Offset != 0 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Status string `json:"status"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"status":"approved"}`))
	if !DecodeJSON(httptest.NewRecorder(), req, &dst, "") || dst.Status != "approved" {
		t.Fatalf("decode failed: %+v", dst)
	}

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{`))
	if DecodeJSON(rec, req, &dst, "") || rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
