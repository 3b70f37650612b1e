// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fake provides an in-memory camera.Service for tests.
package fake

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/camrec/internal/camera"
)

// RecordFunc replaces the default clip writer.
type RecordFunc func(ctx context.Context, cam camera.Camera, path string, d time.Duration) error

// Service is a scripted camera.Service. The zero value has no locations and
// writes a small fake clip on every recording.
type Service struct {
	mu        sync.Mutex
	locations []camera.Location
	listErr   error
	record    RecordFunc

	recordings atomic.Int64
	lists      atomic.Int64
}

// New returns a fake with the given locations.
func New(locations ...camera.Location) *Service {
	s := &Service{}
	s.SetLocations(locations...)
	return s
}

// SetLocations replaces the upstream inventory.
func (s *Service) SetLocations(locations ...camera.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = make([]camera.Location, len(locations))
	for i, loc := range locations {
		cams := make([]camera.Camera, len(loc.Cameras))
		for j, c := range loc.Cameras {
			c.LocationID = loc.ID
			cams[j] = c
		}
		loc.Cameras = cams
		s.locations[i] = loc
	}
}

// FailList makes ListLocations return err (nil restores success).
func (s *Service) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// OnRecord installs fn as the recording behavior.
func (s *Service) OnRecord(fn RecordFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = fn
}

// Recordings returns how many RecordToFile calls were made.
func (s *Service) Recordings() int { return int(s.recordings.Load()) }

// Lists returns how many ListLocations calls were made.
func (s *Service) Lists() int { return int(s.lists.Load()) }

func (s *Service) ListLocations(_ context.Context) ([]camera.Location, error) {
	s.lists.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]camera.Location, len(s.locations))
	copy(out, s.locations)
	return out, nil
}

func (s *Service) FindCamera(ctx context.Context, locationID, cameraID string) (camera.Camera, error) {
	locations, err := s.ListLocations(ctx)
	if err != nil {
		return camera.Camera{}, err
	}
	return camera.FindIn(locations, locationID, cameraID)
}

func (s *Service) RecordToFile(ctx context.Context, cam camera.Camera, path string, d time.Duration) error {
	s.recordings.Add(1)
	s.mu.Lock()
	fn := s.record
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, cam, path, d)
	}
	return WriteClip(path, cam, d)
}

// WriteClip writes a deterministic payload identifying cam and d.
func WriteClip(path string, cam camera.Camera, d time.Duration) error {
	payload := []byte("clip:" + cam.LocationID + "/" + cam.ID + ":" + d.String())
	return os.WriteFile(path, payload, 0o600)
}

var _ camera.Service = (*Service)(nil)
