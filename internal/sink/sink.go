// Package sink writes annotated frames to disk, either for every frame in
// continuous mode or on demand as snapshots.
package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/store"
)

// Extension is the image format of every saved frame.
const Extension = ".jpg"

// Catalog records saved frames. *store.CaptureRepository implements it.
type Catalog interface {
	Create(c *store.Capture) error
}

// Config configures a Sink.
type Config struct {
	// Dir receives the frames.
	Dir string
	// Continuous creates Dir up front because every frame will be saved.
	Continuous bool
	// SessionID tags catalog entries; optional.
	SessionID string
	// Catalog is optional.
	Catalog Catalog
}

// Sink persists frames under collision-resistant names.
type Sink struct {
	dir       string
	sessionID string
	catalog   Catalog
	saved     int
}

// New creates a Sink. In continuous mode the output directory is created
// immediately so that a bad path fails before the first frame.
func New(cfg Config) (*Sink, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("sink: output directory is required")
	}

	s := &Sink{
		dir:       cfg.Dir,
		sessionID: cfg.SessionID,
		catalog:   cfg.Catalog,
	}

	if cfg.Continuous {
		if err := s.ensureDir(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Dir returns the output directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Saved returns the number of frames written so far.
func (s *Sink) Saved() int {
	return s.saved
}

// SaveContinuous writes one frame of the continuous stream.
func (s *Sink) SaveContinuous(frame gocv.Mat, hands int) (string, error) {
	return s.write(frame, hands, store.CaptureContinuous)
}

// SaveSnapshot writes a frame on user request. The output directory is
// created if needed, whether or not continuous mode is on.
func (s *Sink) SaveSnapshot(frame gocv.Mat, hands int) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}
	return s.write(frame, hands, store.CaptureSnapshot)
}

func (s *Sink) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

func (s *Sink) write(frame gocv.Mat, hands int, mode store.CaptureMode) (string, error) {
	id, err := NewName()
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, id+Extension)
	if ok := gocv.IMWrite(path, frame); !ok {
		return "", fmt.Errorf("write frame %s: encoder or disk failure", path)
	}

	if s.catalog != nil {
		err := s.catalog.Create(&store.Capture{
			ID:        id,
			SessionID: s.sessionID,
			Path:      path,
			Mode:      mode,
			Hands:     hands,
			Width:     frame.Cols(),
			Height:    frame.Rows(),
		})
		if err != nil {
			// An uncatalogued file would be invisible to the preview API.
			os.Remove(path)
			return "", fmt.Errorf("record capture %s: %w", id, err)
		}
	}

	s.saved++
	return path, nil
}

// NewName returns a fresh time-ordered UUID for a frame file name.
// Version 1 UUIDs combine a 100ns timestamp, a clock sequence and the node
// ID, so concurrent runs writing to one directory do not collide.
func NewName() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("generate frame name: %w", err)
	}
	return id.String(), nil
}
