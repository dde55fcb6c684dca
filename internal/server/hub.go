package server

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/log"
)

// Frame is the most recent annotated frame published to the hub.
type Frame struct {
	Seq   uint64
	Time  time.Time
	JPEG  []byte
	Hands []detector.HandLandmarks
}

// Hub holds the latest frame for preview clients. The tracking loop
// publishes into it; clients subscribe and are told when a new frame is in.
// Publish never waits on clients.
type Hub struct {
	mu     sync.RWMutex
	latest Frame
	subs   map[chan struct{}]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan struct{}]struct{})}
}

// Publish stores frame and hands as the latest frame. The frame is JPEG
// encoded only while someone is subscribed.
func (h *Hub) Publish(frame gocv.Mat, hands []detector.HandLandmarks) {
	h.mu.RLock()
	watched := len(h.subs) > 0
	h.mu.RUnlock()

	var data []byte
	if watched {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
		if err != nil {
			log.Debug("preview frame encode failed", "error", err)
		} else {
			data = append([]byte(nil), buf.GetBytes()...)
			buf.Close()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = Frame{
		Seq:   h.latest.Seq + 1,
		Time:  time.Now(),
		JPEG:  data,
		Hands: append([]detector.HandLandmarks(nil), hands...),
	}
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Latest returns the most recent frame. ok is false before the first Publish.
func (h *Hub) Latest() (f Frame, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.latest.Seq > 0
}

// Published returns the number of frames published so far.
func (h *Hub) Published() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest.Seq
}

// Subscribe registers for new-frame notifications. Notifications coalesce:
// a slow subscriber sees one pending signal, not one per frame. Call cancel
// when done.
func (h *Hub) Subscribe() (notify <-chan struct{}, cancel func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
