// Package oracle defines the classification model boundary: a padded feature
// sequence and validity mask go in, class probabilities and a confidence
// scalar come out.
package oracle

import (
	"math"

	"github.com/ayusman/mudra/internal/feature"
)

// Result is one inference outcome.
type Result struct {
	// Probabilities over all classes, summing to 1.
	Probabilities []float32
	// Confidence is the model's own certainty estimate in [0, 1], separate
	// from the class distribution.
	Confidence float32
}

// Oracle is the inference boundary. Implementations may block for the
// duration of a model call; callers own serialization.
type Oracle interface {
	// Infer classifies one padded window. The sequence must be exactly
	// maxLen vectors of the model's feature dimension, with mask marking
	// real frames as 1 and padding as 0.
	Infer(seq []feature.Vector, mask []float32) (Result, error)

	// Close releases model resources.
	Close() error
}

// Softmax converts logits to a probability distribution. The max-logit shift
// keeps the exponentials finite for large inputs.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float32, len(logits))
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l - maxLogit))
		probs[i] = float32(e)
		sum += e
	}
	for i := range probs {
		probs[i] = float32(float64(probs[i]) / sum)
	}

	return probs
}

// ClampConfidence forces a confidence value into [0, 1].
func ClampConfidence(c float32) float32 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
