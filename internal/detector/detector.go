// Package detector extracts hand landmarks from video frames.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/landmark"
)

// Detector defines the interface for hand landmark extraction.
type Detector interface {
	// Detect analyzes a video frame and returns the most confident hand as
	// an observation. A frame with no hand yields a Missing observation,
	// not an error.
	Detect(frame *gocv.Mat) (landmark.Observation, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// PythonPath is the interpreter used to run the landmark service.
	// Empty means "python3" from PATH.
	PythonPath string

	// ScriptPath is the landmark service script.
	ScriptPath string

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
