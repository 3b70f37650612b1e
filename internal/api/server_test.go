// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/camrec/internal/artifact"
	"github.com/ManuGH/camrec/internal/camera"
	"github.com/ManuGH/camrec/internal/camera/fake"
	"github.com/ManuGH/camrec/internal/health"
	"github.com/ManuGH/camrec/internal/recorder"
	"github.com/ManuGH/camrec/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	svc   *fake.Service
	reg   *registry.Registry
	store *artifact.Store
	coord *recorder.Coordinator
	srv   *httptest.Server
}

func newEnv(t *testing.T, initialize bool) *env {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	svc := fake.New(
		camera.Location{ID: "L1", Name: "Home", Cameras: []camera.Camera{
			{ID: "C1", Name: "Front Door", DeviceType: "doorbell"},
			{ID: "C2", Name: "Garage", DeviceType: "stickup_cam"},
		}},
		camera.Location{ID: "L2", Name: "Cabin", Cameras: []camera.Camera{{ID: "C9", Name: "Porch"}}},
	)
	reg := registry.New(svc, store)
	if initialize {
		require.NoError(t, reg.Initialize(context.Background()))
	}
	coord := recorder.New(reg, svc, store)

	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewReadinessChecker("registry", reg.Ready))

	srv := httptest.NewServer(New(Config{MaxDuration: 120}, reg, coord, store, hm).Handler())
	e := &env{svc: svc, reg: reg, store: store, coord: coord, srv: srv}
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = coord.Close(ctx)
	})
	return e
}

func (e *env) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.srv.Client().Get(e.srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestNotReady(t *testing.T) {
	e := newEnv(t, false)

	resp, body := e.get(t, "/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "status is always served")
	var snap registry.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.False(t, snap.Ready)

	for _, path := range []string{
		"/snapshot/location/L1/camera/C1/duration/5",
		"/snapshot/location/nope/camera/nope/duration/abc",
		"/collect/location/L1/camera/C1",
	} {
		resp, _ := e.get(t, path)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}

	resp, _ = e.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, e.svc.Recordings())
}

func TestStatus(t *testing.T) {
	e := newEnv(t, true)

	resp, body := e.get(t, "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, true, raw["applicationReady"])
	locations := raw["locations"].([]any)
	require.Len(t, locations, 2)
	first := locations[0].(map[string]any)
	assert.Equal(t, "L1", first["id"])
	cams := first["cameras"].([]any)
	assert.Equal(t, "available", cams[0].(map[string]any)["state"])
}

func TestSnapshot_Validation(t *testing.T) {
	e := newEnv(t, true)

	tests := []struct {
		path string
		want int
	}{
		{"/snapshot/location/nope/camera/C1/duration/5", http.StatusNotFound},
		{"/snapshot/location/L1/camera/nope/duration/5", http.StatusNotFound},
		{"/snapshot/location/L1/camera/C9/duration/5", http.StatusNotFound},
		{"/snapshot/location/L1/camera/C1/duration/abc", http.StatusNotFound},
		{"/snapshot/location/L1/camera/C1/duration/0", http.StatusNotFound},
		{"/snapshot/location/L1/camera/C1/duration/-3", http.StatusNotFound},
		{"/snapshot/location/L1/camera/C1/duration/121", http.StatusNotFound},
		{"/snapshot/location/L1/camera/C1/duration/1.5", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, _ := e.get(t, tt.path)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, e.svc.Recordings(), "rejected requests never record")
}

func TestSnapshot_BoundsAccepted(t *testing.T) {
	e := newEnv(t, true)

	for _, path := range []string{
		"/snapshot/location/L1/camera/C1/duration/1",
		"/snapshot/location/L1/camera/C2/duration/120",
	} {
		resp, _ := e.get(t, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
	require.NoError(t, e.coord.Wait(context.Background()))
	assert.Equal(t, 2, e.svc.Recordings())
}

func TestSnapshot_ThenCollect(t *testing.T) {
	e := newEnv(t, true)

	resp, _ := e.get(t, "/collect/location/L1/camera/C1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "nothing recorded yet")

	resp, body := e.get(t, "/snapshot/location/L1/camera/C1/duration/5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ack SnapshotResponse
	require.NoError(t, json.Unmarshal(body, &ack))
	assert.Equal(t, SnapshotResponse{LocationID: "L1", CameraID: "C1", Duration: 5, Time: ack.Time}, ack)
	_, err := time.Parse(time.RFC3339, ack.Time)
	require.NoError(t, err)

	require.NoError(t, e.coord.Wait(context.Background()))

	resp, body = e.get(t, "/collect/location/L1/camera/C1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, "clip:L1/C1:5s", string(body))

	resp, _ = e.get(t, "/collect/location/L1/camera/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSnapshot_TwoRapidCallsRecordOnce(t *testing.T) {
	e := newEnv(t, true)
	release := make(chan struct{})
	e.svc.OnRecord(func(_ context.Context, cam camera.Camera, path string, d time.Duration) error {
		<-release
		return fake.WriteClip(path, cam, d)
	})

	first, _ := e.get(t, "/snapshot/location/L1/camera/C1/duration/5")
	second, _ := e.get(t, "/snapshot/location/L1/camera/C1/duration/7")
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, http.StatusOK, second.StatusCode, "debounced requests are still acknowledged")

	close(release)
	require.NoError(t, e.coord.Wait(context.Background()))
	assert.Equal(t, 1, e.svc.Recordings())

	_, body := e.get(t, "/collect/location/L1/camera/C1")
	assert.Equal(t, "clip:L1/C1:5s", string(body))
}

func TestHealthEndpoints(t *testing.T) {
	e := newEnv(t, true)

	resp, _ := e.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	e := newEnv(t, true)
	resp, _ := e.get(t, "/snapshot/location/L1/camera/C1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
