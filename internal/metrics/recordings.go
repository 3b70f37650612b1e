// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recording outcomes. Anything else is folded into "unknown".
const (
	OutcomePublished     = "published"
	OutcomeDebounced     = "debounced"
	OutcomeNotFound      = "not_found"
	OutcomeRecordFailed  = "record_failed"
	OutcomePublishFailed = "publish_failed"
	OutcomePanicked      = "panicked"
)

var (
	recordingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_recordings_total",
		Help: "Recording attempts by outcome",
	}, []string{"outcome"})

	recordingsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camrec_recordings_in_flight",
		Help: "Number of cameras currently recording",
	})

	recordingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "camrec_recording_pipeline_seconds",
		Help:    "Wall time of a recording pipeline run from acquire to release",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 90, 120, 180},
	})

	camerasKnown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camrec_cameras_known",
		Help: "Number of cameras registered at startup enumeration",
	})

	staleArtifactsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camrec_stale_artifacts_removed_total",
		Help: "Files removed by the startup stale artifact sweep",
	})
)

// IncRecording records a recording attempt outcome with a normalized label.
func IncRecording(outcome string) {
	recordingsTotal.WithLabelValues(normalizeOutcome(outcome)).Inc()
}

func normalizeOutcome(outcome string) string {
	o := strings.ToLower(strings.TrimSpace(outcome))
	switch o {
	case OutcomePublished, OutcomeDebounced, OutcomeNotFound,
		OutcomeRecordFailed, OutcomePublishFailed, OutcomePanicked:
		return o
	default:
		return "unknown"
	}
}

// RecordingStarted marks a camera as busy in the in-flight gauge.
func RecordingStarted() { recordingsInFlight.Inc() }

// RecordingFinished releases the in-flight gauge and observes the pipeline latency.
func RecordingFinished(elapsed time.Duration) {
	recordingsInFlight.Dec()
	recordingSeconds.Observe(elapsed.Seconds())
}

// SetCamerasKnown publishes the size of the device registry.
func SetCamerasKnown(n int) { camerasKnown.Set(float64(n)) }

// AddStaleArtifactsRemoved counts files removed at startup.
func AddStaleArtifactsRemoved(n int) { staleArtifactsRemoved.Add(float64(n)) }
