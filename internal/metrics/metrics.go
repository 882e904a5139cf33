// Package metrics collects Prometheus metrics for the relay.
//
// A nil [*Recorder] is valid and records nothing, so components can be built without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatify"

// Outcome labels shared by the counters.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder owns a private registry and the relay's collectors.
type Recorder struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	logins          prometheus.Counter
	callbacks       *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	chatTurns       *prometheus.CounterVec
	completions     *prometheus.HistogramVec
	recommendations *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// NewRecorder creates a Recorder with process and Go runtime collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_started_total",
			Help:      "Authorization redirects issued.",
		}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_callbacks_total",
			Help:      "OAuth callbacks by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns by classified intent and outcome.",
		}, []string{"intent", "outcome"}),
		completions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Completion provider latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "outcome"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation replies by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}, []string{"route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests,
		r.requestDuration,
		r.logins,
		r.callbacks,
		r.refreshes,
		r.chatTurns,
		r.completions,
		r.recommendations,
		r.rateLimited,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for tests and additional collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordRequest records a served HTTP request. route is the matched pattern, not the raw path.
func (r *Recorder) RecordRequest(route, method string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (r *Recorder) RecordLogin() {
	if r == nil {
		return
	}
	r.logins.Inc()
}

// RecordCallback records a callback result such as "ok", "state_mismatch" or "invalid_token".
func (r *Recorder) RecordCallback(result string) {
	if r == nil {
		return
	}
	r.callbacks.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordRefresh(outcome string) {
	if r == nil {
		return
	}
	r.refreshes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordChatTurn(intent, outcome string) {
	if r == nil {
		return
	}
	r.chatTurns.WithLabelValues(intent, outcome).Inc()
}

func (r *Recorder) RecordCompletion(provider, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.completions.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

// RecordRecommendation records a recommendation result such as "ok", "no_history" or "error".
func (r *Recorder) RecordRecommendation(result string) {
	if r == nil {
		return
	}
	r.recommendations.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordRateLimited(route string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(route).Inc()
}
