// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package camera defines the upstream camera cloud contract and its REST client.
package camera

import (
	"context"
	"time"
)

// Camera is a recordable device inside a location.
type Camera struct {
	LocationID string `json:"locationId"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceType string `json:"deviceType"`
}

// Device is any other device the upstream reports for a location (sensors,
// chimes, base stations). Devices are listed but never recorded.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceType string `json:"deviceType"`
}

// Location groups the cameras and devices of one site.
type Location struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Cameras []Camera `json:"cameras"`
	Devices []Device `json:"devices"`
}

// Camera returns the camera with the given id.
func (l Location) Camera(id string) (Camera, bool) {
	for _, c := range l.Cameras {
		if c.ID == id {
			return c, true
		}
	}
	return Camera{}, false
}

// Service is everything the recorder needs from the camera cloud.
type Service interface {
	// ListLocations enumerates every location with its cameras and devices.
	ListLocations(ctx context.Context) ([]Location, error)

	// FindCamera resolves a camera by location and camera id. It returns an
	// error wrapping ErrCameraNotFound when the pair is unknown upstream.
	FindCamera(ctx context.Context, locationID, cameraID string) (Camera, error)

	// RecordToFile records d of live video from cam into the file at path and
	// blocks until the clip is complete.
	RecordToFile(ctx context.Context, cam Camera, path string, d time.Duration) error
}

// FindIn performs the keyed location/camera lookup shared by Service implementations.
func FindIn(locations []Location, locationID, cameraID string) (Camera, error) {
	for _, loc := range locations {
		if loc.ID != locationID {
			continue
		}
		if cam, ok := loc.Camera(cameraID); ok {
			return cam, nil
		}
		break
	}
	return Camera{}, &UpstreamError{
		Sentinel:  ErrCameraNotFound,
		Operation: "FindCamera",
		Body:      "location=" + locationID + " camera=" + cameraID,
	}
}
