package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/log"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LandmarksHandler pushes the hands of every published frame over WebSocket.
type LandmarksHandler struct {
	hub *Hub
}

// NewLandmarksHandler creates a new LandmarksHandler reading from hub.
func NewLandmarksHandler(hub *Hub) *LandmarksHandler {
	return &LandmarksHandler{hub: hub}
}

type handMessage struct {
	Handedness string                                  `json:"handedness"`
	Score      float64                                 `json:"score"`
	Points     [detector.NumLandmarks]detector.Point3D `json:"points"`
	Normalized [detector.NumLandmarks]detector.Point3D `json:"normalized"`
}

type landmarksMessage struct {
	Seq       uint64        `json:"seq"`
	Timestamp int64         `json:"timestamp"`
	Hands     []handMessage `json:"hands"`
}

func newLandmarksMessage(f Frame) landmarksMessage {
	msg := landmarksMessage{
		Seq:       f.Seq,
		Timestamp: f.Time.UnixMilli(),
		Hands:     make([]handMessage, 0, len(f.Hands)),
	}
	for i := range f.Hands {
		hand := &f.Hands[i]
		msg.Hands = append(msg.Hands, handMessage{
			Handedness: hand.Handedness,
			Score:      hand.Score,
			Points:     hand.Points,
			Normalized: hand.Normalize().Points,
		})
	}
	return msg
}

// ServeHTTP upgrades the connection and writes one message per published
// frame until either side closes.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	notify, cancel := h.hub.Subscribe()
	defer cancel()

	// Drain client messages so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var last uint64
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-notify:
		}

		frame, ok := h.hub.Latest()
		if !ok || frame.Seq == last {
			continue
		}
		last = frame.Seq

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(newLandmarksMessage(frame)); err != nil {
			log.Debug("landmarks client dropped", "error", err)
			return
		}
	}
}
