package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark inference.
type Detector interface {
	// Detect runs inference on an RGB frame and returns at most MaxHands
	// landmark sets, or an empty slice if no hands are visible.
	// Implementations must treat frame as read-only.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// Thresholds the hand tracker is tuned for: a strict detection threshold
// and a looser tracking one.
const (
	DefaultMaxHands        = 2
	DefaultMinConfidence   = 0.8
	DefaultMinTrackingConf = 0.5
)

// DefaultConfig returns a Config populated with the default thresholds.
func DefaultConfig() Config {
	return Config{
		MaxHands:        DefaultMaxHands,
		MinConfidence:   DefaultMinConfidence,
		MinTrackingConf: DefaultMinTrackingConf,
	}
}
