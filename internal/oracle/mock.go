package oracle

import (
	"github.com/ayusman/mudra/internal/feature"
)

// Mock is a test implementation of the Oracle interface. It returns
// pre-configured results and records how often it was called.
type Mock struct {
	probs      []float32
	confidence float32
	err        error

	// Calls counts Infer invocations, including failed ones.
	Calls int
	// LastMask holds the mask from the most recent Infer call.
	LastMask []float32
	// LastSequence holds the sequence from the most recent Infer call.
	LastSequence []feature.Vector
}

// NewMock creates a Mock returning a uniform distribution over numClasses.
func NewMock(numClasses int) *Mock {
	probs := make([]float32, numClasses)
	for i := range probs {
		probs[i] = 1 / float32(numClasses)
	}
	return &Mock{probs: probs, confidence: 0.5}
}

// SetResult sets the probabilities and confidence returned by Infer.
func (m *Mock) SetResult(probs []float32, confidence float32) {
	m.probs = probs
	m.confidence = confidence
}

// SetError makes Infer fail with err.
func (m *Mock) SetError(err error) {
	m.err = err
}

// Infer returns the configured result or error.
func (m *Mock) Infer(seq []feature.Vector, mask []float32) (Result, error) {
	m.Calls++
	m.LastSequence = seq
	m.LastMask = mask

	if m.err != nil {
		return Result{}, m.err
	}

	probs := make([]float32, len(m.probs))
	copy(probs, m.probs)
	return Result{Probabilities: probs, Confidence: m.confidence}, nil
}

// Close is a no-op for the mock.
func (m *Mock) Close() error {
	return nil
}
