// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the recorder over HTTP.
package api

import (
	"context"
	"net/http"
	"os"

	"github.com/ManuGH/camrec/internal/api/middleware"
	"github.com/ManuGH/camrec/internal/health"
	camlog "github.com/ManuGH/camrec/internal/log"
	"github.com/ManuGH/camrec/internal/recorder"
	"github.com/ManuGH/camrec/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Registry is the read side of the device registry.
type Registry interface {
	Ready() bool
	LocationExists(locationID string) bool
	CameraExists(locationID, cameraID string) bool
	Snapshot() registry.Snapshot
}

// Recorder accepts recording requests without blocking.
type Recorder interface {
	Submit(ctx context.Context, req recorder.Request) bool
}

// Artifacts opens published recordings.
type Artifacts interface {
	Open(locationID, cameraID string) (*os.File, os.FileInfo, error)
}

// Config holds the HTTP surface settings.
type Config struct {
	// MaxDuration is the longest clip, in seconds, a snapshot may request.
	MaxDuration int
	// RateLimitRPM is the per-IP budget. Zero disables rate limiting.
	RateLimitRPM int
	// TracingService names the tracer; empty disables request spans.
	TracingService string
}

// Server wires the HTTP routes to the registry, coordinator and store.
type Server struct {
	cfg       Config
	registry  Registry
	recorder  Recorder
	artifacts Artifacts
	health    *health.Manager
	logger    zerolog.Logger
	router    chi.Router
}

// New builds the server and its routes. hm may be nil.
func New(cfg Config, reg Registry, rec Recorder, artifacts Artifacts, hm *health.Manager) *Server {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = defaultMaxDuration
	}
	s := &Server{
		cfg:       cfg,
		registry:  reg,
		recorder:  rec,
		artifacts: artifacts,
		health:    hm,
		logger:    camlog.WithComponent("api"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
		RateLimitRPM:          s.cfg.RateLimitRPM,
	})

	r.Get("/status", s.handleStatus)
	r.Group(func(r chi.Router) {
		r.Use(s.requireReady)
		r.Get("/snapshot/location/{locationId}/camera/{cameraId}/duration/{duration}", s.handleSnapshot)
		r.Get("/collect/location/{locationId}/camera/{cameraId}", s.handleCollect)
	})

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}
	return r
}
