package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ResilienceObserver exports retry counts and circuit breaker states.
type ResilienceObserver struct {
	service      string
	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newResilienceObserver(registry *prometheus.Registry, service string) *ResilienceObserver {
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Total retried calls to external dependencies.",
		},
		[]string{"service", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)
	registry.MustRegister(retriesTotal, breakerState)

	return &ResilienceObserver{
		service:      service,
		retriesTotal: retriesTotal,
		breakerState: breakerState,
	}
}

func (o *ResilienceObserver) ObserveRetry(operation string) {
	o.retriesTotal.WithLabelValues(o.service, operation).Inc()
}

func (o *ResilienceObserver) ObserveBreakerState(operation string, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	o.breakerState.WithLabelValues(o.service, operation).Set(value)
}
