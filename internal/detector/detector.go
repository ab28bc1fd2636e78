package detector

import (
	"strconv"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected, and an error wrapping
	// ErrInvalidInput if the producer emitted a malformed landmark set.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath and PythonPath override the service lookup when set.
	ScriptPath string
	PythonPath string
}

// DefaultConfig returns a Config tuned for tracking a single controlling hand.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.7,
	}
}

// args renders the config as command-line flags for the MediaPipe service.
func (c Config) args() []string {
	return []string{
		"--max-hands", strconv.Itoa(c.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(c.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(c.MinTrackingConf, 'f', -1, 64),
	}
}
