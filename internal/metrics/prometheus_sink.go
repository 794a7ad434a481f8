// Package metrics records bridge invocation metrics with Prometheus collectors.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/temirov/sentinelctl/internal/bridge"
)

const (
	defaultNamespaceConstant = "sentinelctl"
	functionLabelConstant    = "function"
	targetLabelConstant      = "target"
	statusLabelConstant      = "status"
	kindLabelConstant        = "kind"
	attemptLabelConstant     = "attempt"
	successStatusConstant    = "success"
	failureStatusConstant    = "failure"
	unclassifiedKindConstant = "unclassified"
)

// Invocation durations span interactive lookups through long exports, in seconds.
var defaultDurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// ErrTextfilePathMissing indicates that no path was given for the metrics textfile.
var ErrTextfilePathMissing = errors.New("metrics textfile path must be provided")

// PrometheusSink is a bridge.EventSink backed by a private Prometheus registry. It is safe for concurrent use.
type PrometheusSink struct {
	registry *prometheus.Registry

	invocationsTotal   *prometheus.CounterVec
	attemptFailures    *prometheus.CounterVec
	failuresTotal      *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	inFlight           prometheus.Gauge
}

// NewPrometheusSink creates and registers the bridge collectors under namespace.
func NewPrometheusSink(namespace string, buckets []float64) *PrometheusSink {
	if len(namespace) == 0 {
		namespace = defaultNamespaceConstant
	}
	if len(buckets) == 0 {
		buckets = defaultDurationBuckets
	}

	sink := &PrometheusSink{
		registry: prometheus.NewRegistry(),

		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of bridge invocations by final status",
			},
			[]string{functionLabelConstant, targetLabelConstant, statusLabelConstant},
		),

		attemptFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempt_failures_total",
				Help:      "Total number of failed attempts, including those that were retried",
			},
			[]string{functionLabelConstant, kindLabelConstant, attemptLabelConstant},
		),

		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocation_failures_total",
				Help:      "Total number of invocations that failed, by failure kind",
			},
			[]string{functionLabelConstant, kindLabelConstant},
		),

		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Wall-clock duration of bridge invocations including retries",
				Buckets:   buckets,
			},
			[]string{functionLabelConstant, statusLabelConstant},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "invocations_in_flight",
				Help:      "Number of invocations currently executing",
			},
		),
	}

	sink.registry.MustRegister(
		sink.invocationsTotal,
		sink.attemptFailures,
		sink.failuresTotal,
		sink.invocationDuration,
		sink.inFlight,
	)
	return sink
}

// Registry exposes the underlying registry.
func (sink *PrometheusSink) Registry() *prometheus.Registry {
	return sink.registry
}

// InvocationStarted tracks the invocation as in flight.
func (sink *PrometheusSink) InvocationStarted(bridge.InvocationEvent) {
	sink.inFlight.Inc()
}

// AttemptFailed counts the failed attempt by kind.
func (sink *PrometheusSink) AttemptFailed(event bridge.InvocationEvent, attempt int, failure error) {
	sink.attemptFailures.WithLabelValues(event.FunctionName, kindLabel(failure), strconv.Itoa(attempt)).Inc()
}

// InvocationSucceeded records a successful invocation.
func (sink *PrometheusSink) InvocationSucceeded(event bridge.InvocationEvent, outcome bridge.InvocationOutcome) {
	sink.inFlight.Dec()
	sink.invocationsTotal.WithLabelValues(event.FunctionName, string(event.Target), successStatusConstant).Inc()
	sink.invocationDuration.WithLabelValues(event.FunctionName, successStatusConstant).Observe(outcome.Duration.Seconds())
}

// InvocationFailed records a failed invocation.
func (sink *PrometheusSink) InvocationFailed(event bridge.InvocationEvent, failure error, elapsed time.Duration) {
	sink.inFlight.Dec()
	sink.invocationsTotal.WithLabelValues(event.FunctionName, string(event.Target), failureStatusConstant).Inc()
	sink.failuresTotal.WithLabelValues(event.FunctionName, kindLabel(failure)).Inc()
	sink.invocationDuration.WithLabelValues(event.FunctionName, failureStatusConstant).Observe(elapsed.Seconds())
}

// WriteTextfile writes the collected metrics in the text exposition format for the node exporter textfile collector.
func (sink *PrometheusSink) WriteTextfile(textfilePath string) error {
	if len(textfilePath) == 0 {
		return ErrTextfilePathMissing
	}
	return prometheus.WriteToTextfile(textfilePath, sink.registry)
}

func kindLabel(failure error) string {
	if failureKind := bridge.KindOf(failure); len(failureKind) > 0 {
		return string(failureKind)
	}
	return unclassifiedKindConstant
}
