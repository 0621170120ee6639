// Package metrics records session progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zklogin"

// Recorder owns a private registry so several controllers can coexist in one process
type Recorder struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	proofs      *prometheus.HistogramVec
	submissions *prometheus.CounterVec
	staleDrops  prometheus.Counter
}

// NewRecorder registers the collectors on a private registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Session state transitions by target state.",
		}, []string{"from", "to"}),
		proofs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proof_request_duration_seconds",
			Help:      "Latency of zero-knowledge proof requests.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_submissions_total",
			Help:      "Transaction submissions by intent and outcome.",
		}, []string{"intent", "outcome"}),
		staleDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_dropped_total",
			Help:      "Asynchronous results discarded because the session moved on.",
		}),
	}
	r.registry.MustRegister(r.transitions, r.proofs, r.submissions, r.staleDrops)
	return r
}

// Transition counts one state change
func (r *Recorder) Transition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

// ProofFetched observes a proving service round trip
func (r *Recorder) ProofFetched(d time.Duration, err error) {
	r.proofs.WithLabelValues(outcome(err)).Observe(d.Seconds())
}

// Submission counts one submission by intent and outcome
func (r *Recorder) Submission(intent string, err error) {
	r.submissions.WithLabelValues(intent, outcome(err)).Inc()
}

// StaleResult counts a result dropped after a reset
func (r *Recorder) StaleResult() {
	r.staleDrops.Inc()
}

// Registry exposes the underlying registry, mostly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
