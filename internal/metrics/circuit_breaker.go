// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// circuitBreakerState is one-hot per component: exactly one of the
	// states in circuitStates reads 1, the others read 0.
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "camrec_circuit_breaker_state",
		Help: "Upstream circuit breaker state by component (1 for the active state, 0 otherwise)",
	}, []string{"component", "state"})

	// circuitBreakerTrips counts transitions into open. reason is
	// threshold_exceeded or half_open_failure.
	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_circuit_breaker_trips_total",
		Help: "Times the upstream circuit breaker opened, by component and reason",
	}, []string{"component", "reason"})
)

// circuitStates mirrors resilience.State values.
var circuitStates = []string{"closed", "half-open", "open"}

// SetCircuitBreakerState marks state as the active one for component and
// clears the others, so a scrape never sees two active states.
func SetCircuitBreakerState(component, state string) {
	for _, s := range circuitStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		circuitBreakerState.WithLabelValues(component, s).Set(value)
	}
}

// RecordCircuitBreakerTrip counts one open transition of component.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, reason).Inc()
}
