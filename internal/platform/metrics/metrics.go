package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	rateLimited  prometheus.Counter
	cacheLookups *prometheus.CounterVec
	events       *prometheus.CounterVec
	saveOutcomes *prometheus.CounterVec
	jobs         *prometheus.CounterVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "selfeval_http_requests_total",
			Help: "HTTP requests by method and status class",
		}, []string{"method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "selfeval_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfeval_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "selfeval_cache_lookups_total",
			Help: "Cache lookups by view and result",
		}, []string{"view", "result"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "selfeval_events_published_total",
			Help: "Domain events published by name",
		}, []string{"event"}),
		saveOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "selfeval_form_save_items_total",
			Help: "Form save item outcomes",
		}, []string{"outcome"}),
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "selfeval_jobs_total",
			Help: "Background jobs by type and result",
		}, []string{"job", "result"}),
	}
}

func (c *Collector) Record(method string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, statusClass(status)).Inc()
	c.duration.WithLabelValues(method).Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) CacheLookup(view string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(view, result).Inc()
}

func (c *Collector) EventPublished(name string) {
	c.events.WithLabelValues(name).Inc()
}

func (c *Collector) SaveOutcome(outcome string, n int) {
	c.saveOutcomes.WithLabelValues(outcome).Add(float64(n))
}

func (c *Collector) JobRun(jobType string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	c.jobs.WithLabelValues(jobType, result).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
