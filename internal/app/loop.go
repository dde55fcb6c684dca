// Package app runs the interactive hand tracking loop: capture, detect,
// draw, save and show, one frame at a time, until the user quits.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/display"
	"github.com/ayusman/handpose/internal/log"
	"github.com/ayusman/handpose/internal/overlay"
	"github.com/ayusman/handpose/internal/sink"
)

// State is the lifecycle state of a Loop.
type State int

const (
	// StateRunning is the state from construction until termination.
	StateRunning State = iota
	// StateTerminated is final.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Key bindings. Keys are matched case-sensitively on the low byte of the
// key code.
const (
	KeyQuit     = 'q'
	KeySnapshot = 's'
)

// KeyTimeout is how long each iteration waits for a key press.
const KeyTimeout = 10 * time.Millisecond

// Publisher receives every annotated frame. Publish must not retain frame
// and must not block.
type Publisher interface {
	Publish(frame gocv.Mat, hands []detector.HandLandmarks)
}

// SessionRecorder closes the catalog record of a run.
// *store.SessionRepository implements it.
type SessionRecorder interface {
	Finish(id string, frames, saved int) error
}

// Config wires a Loop to its collaborators. Publisher and Sessions are
// optional.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Renderer *overlay.Renderer
	Sink     *sink.Sink
	Display  display.Display

	// Continuous saves every processed frame.
	Continuous bool

	Publisher Publisher
	Sessions  SessionRecorder
	SessionID string
}

// Loop is the interaction state machine. It is not safe for concurrent use.
type Loop struct {
	cfg    Config
	state  State
	frames int
	rgb    gocv.Mat
	closed bool
	log    *slog.Logger
}

// New validates cfg and returns a running Loop.
func New(cfg Config) (*Loop, error) {
	switch {
	case cfg.Camera == nil:
		return nil, errors.New("app: camera is required")
	case cfg.Detector == nil:
		return nil, errors.New("app: detector is required")
	case cfg.Renderer == nil:
		return nil, errors.New("app: renderer is required")
	case cfg.Sink == nil:
		return nil, errors.New("app: sink is required")
	case cfg.Display == nil:
		return nil, errors.New("app: display is required")
	}

	return &Loop{
		cfg:   cfg,
		state: StateRunning,
		rgb:   gocv.NewMat(),
		log:   log.With("component", "loop", "session", cfg.SessionID),
	}, nil
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

// Frames returns the number of frames processed.
func (l *Loop) Frames() int {
	return l.frames
}

// Run opens the camera and steps until the user quits, the stream ends, a
// step fails or ctx is cancelled. The loop is closed on every path, including
// a panic in a collaborator, which is returned as an error.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer l.Close()
	defer func() {
		if r := recover(); r != nil {
			l.state = StateTerminated
			err = fmt.Errorf("tracking loop panicked: %v", r)
		}
	}()

	if err := l.cfg.Camera.Open(); err != nil {
		l.state = StateTerminated
		return fmt.Errorf("open camera: %w", err)
	}
	l.log.Info("tracking started", "continuous", l.cfg.Continuous, "output_dir", l.cfg.Sink.Dir())

	for l.state == StateRunning {
		if ctx.Err() != nil {
			l.log.Info("tracking interrupted")
			l.state = StateTerminated
			break
		}
		if err := l.Step(); err != nil {
			return err
		}
	}

	l.log.Info("tracking stopped", "frames", l.frames, "saved", l.cfg.Sink.Saved())
	return nil
}

// Step processes one frame and handles one key poll. A terminated loop does
// nothing. Any error terminates the loop.
func (l *Loop) Step() error {
	if l.state != StateRunning {
		return nil
	}

	if err := l.step(); err != nil {
		l.state = StateTerminated
		return err
	}
	return nil
}

func (l *Loop) step() error {
	frame, err := l.cfg.Camera.ReadFrame()
	if errors.Is(err, capture.ErrEndOfStream) {
		l.log.Info("camera stream ended")
		l.state = StateTerminated
		return nil
	}
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	// The detector gets its own RGB buffer; drawing happens on the
	// converted-back frame only.
	capture.ToInference(*frame, &l.rgb)
	hands, err := l.cfg.Detector.Detect(&l.rgb)
	if err != nil {
		return fmt.Errorf("detect hands: %w", err)
	}
	capture.FromInference(l.rgb, frame)

	l.cfg.Renderer.Draw(frame, hands)
	l.frames++

	if l.cfg.Continuous {
		if _, err := l.cfg.Sink.SaveContinuous(*frame, len(hands)); err != nil {
			return err
		}
	}

	l.cfg.Display.Show(*frame)
	if l.cfg.Publisher != nil {
		l.cfg.Publisher.Publish(*frame, hands)
	}

	return l.handleKey(l.cfg.Display.PollKey(KeyTimeout), *frame, len(hands))
}

func (l *Loop) handleKey(key int, frame gocv.Mat, hands int) error {
	if key == display.NoKey {
		return nil
	}

	switch key & 0xFF {
	case KeyQuit:
		l.log.Debug("quit requested")
		l.state = StateTerminated
	case KeySnapshot:
		path, err := l.cfg.Sink.SaveSnapshot(frame, hands)
		if err != nil {
			return err
		}
		l.log.Info("snapshot saved", "path", path, "hands", hands)
	}
	return nil
}

// Close releases the camera and the display and finishes the session
// record. It is safe to call more than once; Run calls it on exit.
func (l *Loop) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.state = StateTerminated

	if err := l.cfg.Camera.Close(); err != nil {
		l.log.Warn("failed to release camera", "error", err)
	}
	if err := l.cfg.Display.Close(); err != nil {
		l.log.Warn("failed to close display", "error", err)
	}
	l.rgb.Close()

	if l.cfg.Sessions != nil && l.cfg.SessionID != "" {
		if err := l.cfg.Sessions.Finish(l.cfg.SessionID, l.frames, l.cfg.Sink.Saved()); err != nil {
			l.log.Warn("failed to finish session record", "error", err)
		}
	}
}
