package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/landmark"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	obs   landmark.Observation
	err   error
	Calls int
}

// NewMockDetector creates a MockDetector that reports no hand.
func NewMockDetector() *MockDetector {
	return &MockDetector{obs: landmark.Missing()}
}

// SetObservation sets the observation that will be returned by Detect.
func (m *MockDetector) SetObservation(obs landmark.Observation) {
	m.obs = obs
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured observation or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (landmark.Observation, error) {
	m.Calls++
	if m.err != nil {
		return landmark.Missing(), m.err
	}
	return m.obs, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
