// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeOutcome(t *testing.T) {
	assert.Equal(t, OutcomePublished, normalizeOutcome(" Published "))
	assert.Equal(t, OutcomeDebounced, normalizeOutcome("debounced"))
	assert.Equal(t, "unknown", normalizeOutcome("exploded"))
	assert.Equal(t, "unknown", normalizeOutcome(""))
}

func TestIncRecording(t *testing.T) {
	before := testutil.ToFloat64(recordingsTotal.WithLabelValues(OutcomeRecordFailed))
	IncRecording(OutcomeRecordFailed)
	after := testutil.ToFloat64(recordingsTotal.WithLabelValues(OutcomeRecordFailed))
	assert.Equal(t, before+1, after)
}

func TestSetCircuitBreakerState_OneHot(t *testing.T) {
	SetCircuitBreakerState("upstream-test", "open")

	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("upstream-test", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("upstream-test", "closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("upstream-test", "half-open")))
}

func TestInFlightGauge(t *testing.T) {
	start := testutil.ToFloat64(recordingsInFlight)
	RecordingStarted()
	assert.Equal(t, start+1, testutil.ToFloat64(recordingsInFlight))
	RecordingFinished(0)
	assert.Equal(t, start, testutil.ToFloat64(recordingsInFlight))
}
