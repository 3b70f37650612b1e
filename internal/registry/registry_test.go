// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ManuGH/camrec/internal/camera"
	"github.com/ManuGH/camrec/internal/camera/fake"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	calls   int
	removed []string
	err     error
}

func (p *stubPurger) PurgeStale() ([]string, error) {
	p.calls++
	return p.removed, p.err
}

func inventory() []camera.Location {
	return []camera.Location{
		{
			ID:   "L1",
			Name: "Home",
			Cameras: []camera.Camera{
				{ID: "C1", Name: "Front Door", DeviceType: "doorbell"},
				{ID: "C2", Name: "Garage", DeviceType: "stickup_cam"},
			},
			Devices: []camera.Device{{ID: "D1", Name: "Chime", DeviceType: "chime"}},
		},
		{ID: "L2", Name: "Empty"},
	}
}

func newReady(t *testing.T) *Registry {
	t.Helper()
	r := New(fake.New(inventory()...), &stubPurger{})
	require.NoError(t, r.Initialize(context.Background()))
	return r
}

func TestInitialize(t *testing.T) {
	purger := &stubPurger{removed: []string{"L1.C1.mp4"}}
	svc := fake.New(inventory()...)
	r := New(svc, purger)
	assert.False(t, r.Ready())

	require.NoError(t, r.Initialize(context.Background()))
	assert.True(t, r.Ready())
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, 1, svc.Lists())

	assert.True(t, r.LocationExists("L1"))
	assert.False(t, r.LocationExists("L2"), "locations without cameras are not registered")
	assert.False(t, r.LocationExists("X"))
	assert.True(t, r.CameraExists("L1", "C2"))
	assert.False(t, r.CameraExists("L1", "Y"))
	assert.False(t, r.CameraExists("X", "C1"))

	cam, ok := r.Camera("L1", "C1")
	require.True(t, ok)
	assert.Equal(t, "L1", cam.LocationID)
}

func TestInitialize_Twice(t *testing.T) {
	r := newReady(t)
	assert.ErrorIs(t, r.Initialize(context.Background()), ErrAlreadyInitialized)
}

func TestInitialize_EnumerationFailure(t *testing.T) {
	svc := fake.New(inventory()...)
	boom := errors.New("cloud down")
	svc.FailList(boom)
	purger := &stubPurger{}
	r := New(svc, purger)

	err := r.Initialize(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, r.Ready())
	assert.Zero(t, purger.calls, "no sweep before a successful enumeration")
}

func TestInitialize_PurgeErrorIsNotFatal(t *testing.T) {
	r := New(fake.New(inventory()...), &stubPurger{err: errors.New("permission denied")})
	require.NoError(t, r.Initialize(context.Background()))
	assert.True(t, r.Ready())
}

func TestTryMarkBusy(t *testing.T) {
	r := newReady(t)

	assert.True(t, r.TryMarkBusy("L1", "C1"))
	assert.False(t, r.TryMarkBusy("L1", "C1"), "busy camera is rejected")
	assert.True(t, r.TryMarkBusy("L1", "C2"), "other cameras are independent")
	assert.False(t, r.TryMarkBusy("L1", "nope"))

	r.MarkAvailable("L1", "C1")
	assert.True(t, r.TryMarkBusy("L1", "C1"))

	// Unknown cameras are ignored, never created.
	r.MarkAvailable("X", "Y")
	assert.False(t, r.CameraExists("X", "Y"))
}

func TestTryMarkBusy_SingleWinner(t *testing.T) {
	r := newReady(t)

	const n = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if r.TryMarkBusy("L1", "C1") {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestSnapshot(t *testing.T) {
	r := newReady(t)
	require.True(t, r.TryMarkBusy("L1", "C2"))

	want := Snapshot{
		Ready: true,
		Locations: []LocationStatus{{
			ID:   "L1",
			Name: "Home",
			Cameras: []CameraStatus{
				{ID: "C1", Name: "Front Door", DeviceType: "doorbell", State: Available},
				{ID: "C2", Name: "Garage", DeviceType: "stickup_cam", State: Busy},
			},
			Devices: []camera.Device{{ID: "D1", Name: "Chime", DeviceType: "chime"}},
		}},
	}
	if diff := cmp.Diff(want, r.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	// The snapshot is a copy.
	snap := r.Snapshot()
	snap.Locations[0].Cameras[0].State = Busy
	assert.Equal(t, Available, r.Snapshot().Locations[0].Cameras[0].State)
}

func TestSnapshot_SortedByID(t *testing.T) {
	r := New(fake.New(
		camera.Location{ID: "Lb", Name: "Office", Cameras: []camera.Camera{
			{ID: "Cz", Name: "Hall"},
			{ID: "Ca", Name: "Desk"},
		}},
		camera.Location{ID: "La", Name: "Cabin", Cameras: []camera.Camera{{ID: "C1", Name: "Porch"}}},
	), &stubPurger{})
	require.NoError(t, r.Initialize(context.Background()))

	snap := r.Snapshot()
	require.Len(t, snap.Locations, 2)
	assert.Equal(t, "La", snap.Locations[0].ID)
	assert.Equal(t, "Lb", snap.Locations[1].ID)
	require.Len(t, snap.Locations[1].Cameras, 2)
	assert.Equal(t, "Ca", snap.Locations[1].Cameras[0].ID)
	assert.Equal(t, "Cz", snap.Locations[1].Cameras[1].ID)
}

func TestSnapshot_NotReady(t *testing.T) {
	r := New(fake.New(), nil)
	snap := r.Snapshot()
	assert.False(t, snap.Ready)
	assert.Empty(t, snap.Locations)
}
