// Package metrics counts classifier verdicts, executions and confirmation
// decisions on a private prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

const namespace = "shellgate"

// Recorder implements ports.MetricsRecorder.
type Recorder struct {
	registry      *prometheus.Registry
	verdicts      *prometheus.CounterVec
	executions    *prometheus.CounterVec
	retries       prometheus.Counter
	duration      prometheus.Histogram
	confirmations *prometheus.CounterVec
}

// NewRecorder registers the shellgate collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Safety verdicts by risk level.",
		}, []string{"risk"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Finished executions by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_retries_total",
			Help:      "Attempts beyond the first across all executions.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock time per execution including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Confirmation prompts and their answers.",
		}, []string{"decision"}),
	}
	r.registry.MustRegister(r.verdicts, r.executions, r.retries, r.duration, r.confirmations)
	return r
}

// ObserveVerdict counts one classification.
func (r *Recorder) ObserveVerdict(verdict domain.SafetyVerdict) {
	r.verdicts.WithLabelValues(string(verdict.RiskLevel)).Inc()
}

// ObserveExecution counts one finished execution.
func (r *Recorder) ObserveExecution(result domain.ExecutionResult) {
	outcome := "success"
	if !result.Success {
		outcome = string(result.Failure)
		if outcome == "" {
			outcome = "failure"
		}
	}
	r.executions.WithLabelValues(outcome).Inc()
	r.retries.Add(float64(result.Retries))
	r.duration.Observe(result.Duration.Seconds())
}

// ObserveConfirmation counts a prompt ("requested") or an answer ("confirmed", "cancelled").
func (r *Recorder) ObserveConfirmation(decision string) {
	r.confirmations.WithLabelValues(decision).Inc()
}

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Nop discards observations.
type Nop struct{}

func (Nop) ObserveVerdict(domain.SafetyVerdict)     {}
func (Nop) ObserveExecution(domain.ExecutionResult) {}
func (Nop) ObserveConfirmation(string)              {}

var (
	_ ports.MetricsRecorder = (*Recorder)(nil)
	_ ports.MetricsRecorder = Nop{}
)
