// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package artifact publishes finished recordings so that readers only ever
// see complete files.
//
// A recording is written into a staged temporary in the data directory and
// then renamed over the stable per-camera path. rename(2) is atomic on a
// single filesystem: a reader that opened the previous artifact keeps reading
// it, a reader that opens after the rename gets the new one.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/camrec/internal/fsutil"
	"github.com/google/renameio/v2"
)

// Ext is the extension of every published artifact. Staged temporaries carry
// it inside their name as well, which is what the stale sweep keys on.
const Ext = ".mp4"

var (
	// ErrNoArtifact means no recording has been published for the camera yet.
	ErrNoArtifact = errors.New("artifact: no recording published")
	// ErrInvalidID rejects ids that cannot be used as a file name component.
	ErrInvalidID = errors.New("artifact: invalid id")
)

// Store owns the artifact namespace inside one directory.
type Store struct {
	dir string
}

// NewStore creates dir if needed and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute artifact directory.
func (s *Store) Dir() string { return s.dir }

func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// nameEscaper escapes the component separator so distinct id pairs never
// share a file name. Ids without '.' or '%' are unchanged.
var nameEscaper = strings.NewReplacer("%", "%25", ".", "%2E")

// StablePath returns the deterministic artifact path for a camera:
// <dir>/<loc>.<cam>.mp4, with '.' and '%' inside ids percent-escaped.
func (s *Store) StablePath(locationID, cameraID string) (string, error) {
	if err := validID(locationID); err != nil {
		return "", err
	}
	if err := validID(cameraID); err != nil {
		return "", err
	}
	name := nameEscaper.Replace(locationID) + "." + nameEscaper.Replace(cameraID) + Ext
	return fsutil.ConfineRelPath(s.dir, name)
}

// Staged is a pending recording that has not been published yet.
type Staged struct {
	LocationID string
	CameraID   string

	stable  string
	pending *renameio.PendingFile
}

// Path is the temporary file the recording must be written to.
func (st *Staged) Path() string { return st.pending.Name() }

// StablePath is where Publish will place the recording.
func (st *Staged) StablePath() string { return st.stable }

// Stage creates a uniquely named temporary next to the camera's artifact.
// Names are random and created with O_EXCL, so concurrent stages never collide.
func (s *Store) Stage(locationID, cameraID string) (*Staged, error) {
	stable, err := s.StablePath(locationID, cameraID)
	if err != nil {
		return nil, err
	}
	pending, err := renameio.NewPendingFile(stable,
		renameio.WithTempDir(s.dir),
		renameio.WithPermissions(0o644),
	)
	if err != nil {
		return nil, fmt.Errorf("create pending artifact: %w", err)
	}
	return &Staged{
		LocationID: locationID,
		CameraID:   cameraID,
		stable:     stable,
		pending:    pending,
	}, nil
}

// Publish fsyncs the staged file and atomically replaces the camera's
// artifact with it. On failure the temporary is left in place.
func (s *Store) Publish(st *Staged) error {
	if err := st.pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", filepath.Base(st.stable), err)
	}
	return nil
}

// Discard removes a staged temporary that will not be published.
func (s *Store) Discard(st *Staged) error {
	if err := st.pending.Cleanup(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard pending artifact: %w", err)
	}
	return nil
}

// Open opens the current artifact of a camera for reading. The returned file
// stays valid even if a newer recording is published while it is read.
func (s *Store) Open(locationID, cameraID string) (*os.File, os.FileInfo, error) {
	path, err := s.StablePath(locationID, cameraID)
	if err != nil {
		return nil, nil, err
	}
	// #nosec G304 -- path is confined to the artifact dir
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrNoArtifact
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("artifact is not a regular file: %s", path)
	}
	return f, info, nil
}

// PurgeStale removes every artifact and staged temporary in the directory.
// They are left over from a previous process and may be orphaned or
// incomplete. It returns the names removed.
func (s *Store) PurgeStale() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}
	var removed []string
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.Contains(e.Name(), Ext) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, e.Name())
	}
	return removed, errors.Join(errs...)
}
