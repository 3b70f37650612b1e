// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package registry holds the cameras known to the process and their
// availability for recording.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/camrec/internal/camera"
	camlog "github.com/ManuGH/camrec/internal/log"
	"github.com/ManuGH/camrec/internal/metrics"
	"github.com/rs/zerolog"
)

// State is the availability of a camera.
type State string

const (
	Available State = "available"
	Busy      State = "busy"
)

// ErrAlreadyInitialized is returned by a second Initialize call.
var ErrAlreadyInitialized = errors.New("registry: already initialized")

// Purger removes recordings left over from a previous run.
type Purger interface {
	PurgeStale() ([]string, error)
}

type key struct {
	location string
	camera   string
}

type location struct {
	loc     camera.Location
	cameras []string
}

// Registry is the process-wide device inventory. Locations and cameras are
// fixed after Initialize; only camera availability changes afterwards, and
// only through TryMarkBusy / MarkAvailable.
type Registry struct {
	svc    camera.Service
	purger Purger
	logger zerolog.Logger

	mu        sync.Mutex
	order     []string
	locations map[string]*location
	state     map[key]State
	cameras   map[key]camera.Camera

	initialized atomic.Bool
	ready       atomic.Bool
}

// New returns an empty, not yet ready registry.
func New(svc camera.Service, purger Purger) *Registry {
	return &Registry{
		svc:       svc,
		purger:    purger,
		logger:    camlog.WithComponent("registry"),
		locations: make(map[string]*location),
		state:     make(map[key]State),
		cameras:   make(map[key]camera.Camera),
	}
}

// Initialize enumerates locations and cameras from the upstream, marks every
// camera available, sweeps stale artifacts and then flips readiness. An
// enumeration error leaves the registry not ready; callers treat it as fatal.
func (r *Registry) Initialize(ctx context.Context) error {
	if !r.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	locations, err := r.svc.ListLocations(ctx)
	if err != nil {
		r.initialized.Store(false)
		return fmt.Errorf("enumerate locations: %w", err)
	}

	total := 0
	r.mu.Lock()
	for _, loc := range locations {
		r.logger.Info().
			Str(camlog.FieldEvent, "registry.location").
			Str(camlog.FieldLocationID, loc.ID).
			Str("name", loc.Name).
			Int("cameras", len(loc.Cameras)).
			Int("devices", len(loc.Devices)).
			Msg("location discovered")
		for _, d := range loc.Devices {
			r.logger.Debug().
				Str(camlog.FieldLocationID, loc.ID).
				Str("device_id", d.ID).
				Str("name", d.Name).
				Str("device_type", d.DeviceType).
				Msg("device discovered")
		}

		// Locations without cameras have nothing to record.
		if len(loc.Cameras) == 0 {
			continue
		}
		entry, ok := r.locations[loc.ID]
		if !ok {
			entry = &location{loc: loc}
			r.locations[loc.ID] = entry
			r.order = append(r.order, loc.ID)
		}
		for _, cam := range loc.Cameras {
			cam.LocationID = loc.ID
			k := key{loc.ID, cam.ID}
			if _, dup := r.state[k]; dup {
				continue
			}
			r.state[k] = Available
			r.cameras[k] = cam
			entry.cameras = append(entry.cameras, cam.ID)
			total++
			r.logger.Info().
				Str(camlog.FieldEvent, "registry.camera").
				Str(camlog.FieldLocationID, loc.ID).
				Str(camlog.FieldCameraID, cam.ID).
				Str("name", cam.Name).
				Str("device_type", cam.DeviceType).
				Msg("camera registered")
		}
	}
	r.mu.Unlock()
	metrics.SetCamerasKnown(total)

	if r.purger != nil {
		removed, err := r.purger.PurgeStale()
		for _, name := range removed {
			r.logger.Info().
				Str(camlog.FieldEvent, "registry.stale_removed").
				Str(camlog.FieldPath, name).
				Msg("removing stale video file")
		}
		metrics.AddStaleArtifactsRemoved(len(removed))
		if err != nil {
			// Leftovers are overwritten by the next publish anyway.
			r.logger.Warn().Err(err).Str(camlog.FieldEvent, "registry.stale_sweep_failed").Msg("stale artifact sweep incomplete")
		}
	}

	r.ready.Store(true)
	r.logger.Info().
		Str(camlog.FieldEvent, "registry.ready").
		Int("locations", len(r.order)).
		Int("cameras", total).
		Msg("device enumeration complete")
	return nil
}

// Ready reports whether the initial enumeration has completed.
func (r *Registry) Ready() bool {
	return r.ready.Load()
}

// LocationExists reports whether locationID is known.
func (r *Registry) LocationExists(locationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locations[locationID]
	return ok
}

// CameraExists reports whether the camera is known within the location.
func (r *Registry) CameraExists(locationID, cameraID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.state[key{locationID, cameraID}]
	return ok
}

// Camera returns the registered camera.
func (r *Registry) Camera(locationID, cameraID string) (camera.Camera, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cam, ok := r.cameras[key{locationID, cameraID}]
	return cam, ok
}

// TryMarkBusy moves a camera from Available to Busy in one step. It returns
// false without waiting if the camera is unknown or already Busy.
func (r *Registry) TryMarkBusy(locationID, cameraID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{locationID, cameraID}
	if st, ok := r.state[k]; !ok || st != Available {
		return false
	}
	r.state[k] = Busy
	return true
}

// MarkAvailable moves a known camera back to Available unconditionally.
func (r *Registry) MarkAvailable(locationID, cameraID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{locationID, cameraID}
	if _, ok := r.state[k]; ok {
		r.state[k] = Available
	}
}

// CameraStatus is one camera in a Snapshot.
type CameraStatus struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceType string `json:"deviceType"`
	State      State  `json:"state"`
}

// LocationStatus is one location in a Snapshot.
type LocationStatus struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Cameras []CameraStatus  `json:"cameras"`
	Devices []camera.Device `json:"devices,omitempty"`
}

// Snapshot is a point in time copy of the registry.
type Snapshot struct {
	Ready     bool             `json:"applicationReady"`
	Locations []LocationStatus `json:"locations"`
}

// Snapshot returns a read-only copy of all locations, cameras and their
// availability. Locations and cameras are sorted by ID.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{Ready: r.ready.Load(), Locations: make([]LocationStatus, 0, len(r.order))}
	for _, id := range r.order {
		entry := r.locations[id]
		ls := LocationStatus{
			ID:      id,
			Name:    entry.loc.Name,
			Cameras: make([]CameraStatus, 0, len(entry.cameras)),
			Devices: append([]camera.Device(nil), entry.loc.Devices...),
		}
		for _, camID := range entry.cameras {
			k := key{id, camID}
			cam := r.cameras[k]
			ls.Cameras = append(ls.Cameras, CameraStatus{
				ID:         cam.ID,
				Name:       cam.Name,
				DeviceType: cam.DeviceType,
				State:      r.state[k],
			})
		}
		slices.SortFunc(ls.Cameras, func(a, b CameraStatus) int { return strings.Compare(a.ID, b.ID) })
		snap.Locations = append(snap.Locations, ls)
	}
	slices.SortFunc(snap.Locations, func(a, b LocationStatus) int { return strings.Compare(a.ID, b.ID) })
	return snap
}
