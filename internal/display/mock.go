package display

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDisplay records shown frames and replays scripted key presses for
// testing. Once the script is exhausted it reports NoKey.
type MockDisplay struct {
	mu      sync.Mutex
	keys    []int
	polls   int
	frames  []gocv.Mat
	timeout []time.Duration
	closed  int
}

// NewMockDisplay returns a display that answers the n-th PollKey with keys[n].
func NewMockDisplay(keys ...int) *MockDisplay {
	return &MockDisplay{keys: keys}
}

// Show keeps a clone of frame; release them with Close.
func (d *MockDisplay) Show(frame gocv.Mat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, frame.Clone())
}

func (d *MockDisplay) PollKey(timeout time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.timeout = append(d.timeout, timeout)
	key := NoKey
	if d.polls < len(d.keys) {
		key = d.keys[d.polls]
	}
	d.polls++
	return key
}

// Close counts the call. Recorded frames stay available until Release.
func (d *MockDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// Frames returns the frames shown so far, in order. They remain owned by
// the display.
func (d *MockDisplay) Frames() []gocv.Mat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gocv.Mat(nil), d.frames...)
}

// Timeouts returns the timeout passed to every PollKey call.
func (d *MockDisplay) Timeouts() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.timeout...)
}

// Polls returns how many times PollKey was called.
func (d *MockDisplay) Polls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}

// Closed returns how many times Close was called.
func (d *MockDisplay) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Release frees the recorded frames.
func (d *MockDisplay) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.frames {
		d.frames[i].Close()
	}
	d.frames = nil
}
