// Package display shows annotated frames and reads keys from the user.
package display

import (
	"time"

	"gocv.io/x/gocv"
)

// WindowTitle is the title of the tracking window.
const WindowTitle = "Hand Tracking"

// NoKey is returned by PollKey when no key was pressed in time.
const NoKey = -1

// Display is a surface that frames are shown on and keys are read from.
type Display interface {
	// Show presents frame. The frame is not retained.
	Show(frame gocv.Mat)
	// PollKey waits up to timeout for a key press and returns its code,
	// or NoKey.
	PollKey(timeout time.Duration) int
	Close() error
}

// Window is a HighGUI window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

func (w *Window) Show(frame gocv.Mat) {
	w.window.IMShow(frame)
}

// PollKey rounds timeout down to whole milliseconds, with a floor of 1ms
// since HighGUI treats zero as "wait forever".
func (w *Window) PollKey(timeout time.Duration) int {
	ms := int(timeout / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return w.window.WaitKey(ms)
}

func (w *Window) Close() error {
	return w.window.Close()
}

// Headless discards frames and never reports a key. PollKey still waits out
// the timeout so the loop keeps its pace.
type Headless struct{}

// NewHeadless returns a display without a window.
func NewHeadless() *Headless {
	return &Headless{}
}

func (Headless) Show(gocv.Mat) {}

func (Headless) PollKey(timeout time.Duration) int {
	time.Sleep(timeout)
	return NoKey
}

func (Headless) Close() error {
	return nil
}
