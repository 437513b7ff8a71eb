package oracle

import (
	"math"
	"testing"
)

func TestSoftmax_SumsToOne(t *testing.T) {
	probs := Softmax([]float32{1.0, 2.0, 3.0})

	var sum float64
	for _, p := range probs {
		sum += float64(p)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("probabilities sum to %f, want 1", sum)
	}
}

func TestSoftmax_PreservesArgmax(t *testing.T) {
	probs := Softmax([]float32{0.1, 4.2, -1.0, 3.9})

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	if best != 1 {
		t.Errorf("argmax = %d, want 1", best)
	}
}

func TestSoftmax_LargeLogitsStayFinite(t *testing.T) {
	probs := Softmax([]float32{1000, 1001, 999})

	for i, p := range probs {
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			t.Fatalf("probability %d is not finite: %f", i, p)
		}
	}
	if probs[1] < probs[0] || probs[1] < probs[2] {
		t.Error("largest logit should keep the largest probability")
	}
}

func TestSoftmax_Empty(t *testing.T) {
	if probs := Softmax(nil); probs != nil {
		t.Errorf("Softmax(nil) = %v, want nil", probs)
	}
}

func TestClampConfidence(t *testing.T) {
	cases := []struct {
		in, want float32
	}{
		{-0.5, 0},
		{0, 0},
		{0.73, 0.73},
		{1, 1},
		{1.4, 1},
	}
	for _, c := range cases {
		if got := ClampConfidence(c.in); got != c.want {
			t.Errorf("ClampConfidence(%f) = %f, want %f", c.in, got, c.want)
		}
	}
}
