package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesRecordedSeries(t *testing.T) {
	c := New()
	c.Record(http.MethodGet, 200, 15*time.Millisecond)
	c.Record(http.MethodPost, 429, time.Millisecond)
	c.CacheLookup("catalog", true)
	c.EventPublished("responses_changed")
	c.SaveOutcome("saved", 2)
	c.JobRun("notification_mail", errors.New("smtp down"))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`selfeval_http_requests_total{method="GET",status="2xx"} 1`,
		`selfeval_http_rate_limited_total 1`,
		`selfeval_cache_lookups_total{result="hit",view="catalog"} 1`,
		`selfeval_events_published_total{event="responses_changed"} 1`,
		`selfeval_form_save_items_total{outcome="saved"} 2`,
		`selfeval_jobs_total{job="notification_mail",result="failed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestStatusClass(t *testing.T) {
	if statusClass(503) != "5xx" || statusClass(201) != "2xx" {
		t.Fatal("unexpected status class")
	}
}
