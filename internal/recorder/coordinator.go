// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package recorder serializes recordings per camera and runs the
// record-then-publish pipeline.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/camrec/internal/artifact"
	"github.com/ManuGH/camrec/internal/camera"
	camlog "github.com/ManuGH/camrec/internal/log"
	"github.com/ManuGH/camrec/internal/metrics"
	"github.com/ManuGH/camrec/internal/resilience"
	"github.com/ManuGH/camrec/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrBusy means the camera already has a recording in flight.
	ErrBusy = errors.New("recorder: camera busy")
	// ErrClosed means the coordinator is shutting down.
	ErrClosed = errors.New("recorder: shutting down")
)

// Availability is the per-camera busy flag owned by the device registry.
type Availability interface {
	TryMarkBusy(locationID, cameraID string) bool
	MarkAvailable(locationID, cameraID string)
}

// Publisher stages and atomically publishes recordings.
type Publisher interface {
	Stage(locationID, cameraID string) (*artifact.Staged, error)
	Publish(st *artifact.Staged) error
	Discard(st *artifact.Staged) error
}

// Request is one recording request. It lives only as long as its pipeline run.
type Request struct {
	LocationID  string
	CameraID    string
	Duration    time.Duration
	RequestedAt time.Time
}

// Coordinator guarantees at most one recording per camera at a time. A
// request for a busy camera is dropped, never queued.
type Coordinator struct {
	avail   Availability
	cameras camera.Service
	store   Publisher
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
	tracer  trace.Tracer

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBreaker guards upstream calls with cb instead of the default breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Coordinator) { c.breaker = cb }
}

// New wires a coordinator.
func New(avail Availability, cameras camera.Service, store Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		avail:   avail,
		cameras: cameras,
		store:   store,
		logger:  camlog.WithComponent("recorder"),
		tracer:  telemetry.Tracer("camrec/recorder"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker("upstream", 5, 30*time.Second,
			resilience.WithFailureFilter(camera.IsTransient))
	}
	return c
}

// TryAcquire marks the camera busy. It never blocks: false means the camera is
// unknown or already recording.
func (c *Coordinator) TryAcquire(locationID, cameraID string) bool {
	if !c.avail.TryMarkBusy(locationID, cameraID) {
		return false
	}
	c.logger.Debug().
		Str(camlog.FieldEvent, "recorder.locked").
		Str(camlog.FieldLocationID, locationID).
		Str(camlog.FieldCameraID, cameraID).
		Msg("locking access to camera")
	return true
}

// Release marks the camera available again, unconditionally.
func (c *Coordinator) Release(locationID, cameraID string) {
	c.avail.MarkAvailable(locationID, cameraID)
	c.logger.Debug().
		Str(camlog.FieldEvent, "recorder.unlocked").
		Str(camlog.FieldLocationID, locationID).
		Str(camlog.FieldCameraID, cameraID).
		Msg("unlocking access to camera")
}

func (c *Coordinator) debounced(ctx context.Context, req Request) {
	metrics.IncRecording(metrics.OutcomeDebounced)
	l := camlog.WithContext(ctx, c.logger)
	l.Info().
		Str(camlog.FieldEvent, "recording.debounced").
		Str(camlog.FieldLocationID, req.LocationID).
		Str(camlog.FieldCameraID, req.CameraID).
		Msg("debouncing request, camera busy")
}

// RecordSnapshot runs the whole pipeline synchronously: acquire, resolve the
// camera upstream, record into a staged temporary, publish, release. It
// returns ErrBusy without side effects when the camera is already recording.
func (c *Coordinator) RecordSnapshot(ctx context.Context, req Request) error {
	if !c.TryAcquire(req.LocationID, req.CameraID) {
		c.debounced(ctx, req)
		return ErrBusy
	}
	return c.run(ctx, req)
}

// Submit acquires the camera and starts the pipeline in the background. The
// pipeline is detached from ctx cancellation: a caller that goes away does not
// abort the recording. It returns false, and starts nothing, when the camera
// is busy or the coordinator is closing.
func (c *Coordinator) Submit(ctx context.Context, req Request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return false
	}
	if !c.TryAcquire(req.LocationID, req.CameraID) {
		c.debounced(ctx, req)
		return false
	}

	c.wg.Add(1)
	go func(ctx context.Context) {
		defer c.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				metrics.IncRecording(metrics.OutcomePanicked)
				l := camlog.WithContext(ctx, c.logger)
				l.Error().
					Str(camlog.FieldEvent, "recording.panic").
					Str(camlog.FieldLocationID, req.LocationID).
					Str(camlog.FieldCameraID, req.CameraID).
					Interface("panic_value", rec).
					Msg("recording pipeline panicked")
			}
		}()
		// Errors are logged inside run; nobody is waiting for them.
		_ = c.run(ctx, req)
	}(context.WithoutCancel(ctx))
	return true
}

// Close stops accepting submissions and waits for in-flight recordings.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	return c.Wait(ctx)
}

// Wait blocks until every background recording has finished or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for recordings: %w", ctx.Err())
	}
}

// run executes the pipeline for an already acquired camera and always releases it.
func (c *Coordinator) run(ctx context.Context, req Request) (err error) {
	started := time.Now()
	metrics.RecordingStarted()
	defer func() {
		c.Release(req.LocationID, req.CameraID)
		metrics.RecordingFinished(time.Since(started))
	}()

	ctx, span := c.tracer.Start(ctx, "recorder.record",
		trace.WithAttributes(telemetry.RecordingAttributes(req.LocationID, req.CameraID, int(req.Duration/time.Second))...))
	defer span.End()

	logger := camlog.WithContext(ctx, c.logger).With().
		Str(camlog.FieldLocationID, req.LocationID).
		Str(camlog.FieldCameraID, req.CameraID).
		Int(camlog.FieldDuration, int(req.Duration/time.Second)).
		Logger()

	outcome, err := c.pipeline(ctx, req, logger)
	metrics.IncRecording(outcome)
	span.SetAttributes(attribute.String(telemetry.RecordingOutcomeKey, outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return err
}

func (c *Coordinator) pipeline(ctx context.Context, req Request, logger zerolog.Logger) (string, error) {
	var cam camera.Camera
	err := c.breaker.Execute(func() error {
		var err error
		cam, err = c.cameras.FindCamera(ctx, req.LocationID, req.CameraID)
		return err
	})
	if err != nil {
		if errors.Is(err, camera.ErrCameraNotFound) {
			// Known locally but not upstream: the inventory drifted since startup.
			logger.Error().Err(err).Str(camlog.FieldEvent, "recording.camera_missing").Msg("no camera found upstream for registered camera")
			return metrics.OutcomeNotFound, fmt.Errorf("resolve camera: %w", err)
		}
		logger.Error().Err(err).Str(camlog.FieldEvent, "recording.resolve_failed").Msg("resolving camera failed")
		return metrics.OutcomeRecordFailed, fmt.Errorf("resolve camera: %w", err)
	}

	staged, err := c.store.Stage(req.LocationID, req.CameraID)
	if err != nil {
		logger.Error().Err(err).Str(camlog.FieldEvent, "recording.stage_failed").Msg("staging recording failed")
		return metrics.OutcomePublishFailed, fmt.Errorf("stage recording: %w", err)
	}
	logger = logger.With().Str(camlog.FieldTempPath, staged.Path()).Logger()
	logger.Info().Str(camlog.FieldEvent, "recording.started").Msg("video snapshot recording requested")

	err = c.breaker.Execute(func() error {
		return c.cameras.RecordToFile(ctx, cam, staged.Path(), req.Duration)
	})
	if err != nil {
		if derr := c.store.Discard(staged); derr != nil {
			logger.Warn().Err(derr).Msg("discarding failed recording")
		}
		logger.Error().Err(err).Str(camlog.FieldEvent, "recording.failed").Msg("recording failed")
		return metrics.OutcomeRecordFailed, fmt.Errorf("record clip: %w", err)
	}

	if err := c.store.Publish(staged); err != nil {
		logger.Error().Err(err).Str(camlog.FieldEvent, "recording.publish_failed").Msg("publishing recording failed, temporary kept")
		return metrics.OutcomePublishFailed, fmt.Errorf("publish recording: %w", err)
	}

	logger.Info().
		Str(camlog.FieldEvent, "recording.published").
		Str(camlog.FieldFinalPath, staged.StablePath()).
		Dur("elapsed", time.Since(req.RequestedAt)).
		Msg("video snapshot ready")
	return metrics.OutcomePublished, nil
}
