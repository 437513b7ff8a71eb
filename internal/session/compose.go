package session

import (
	"github.com/ayusman/mudra/internal/labels"
)

// Response is one protocol result line.
type Response struct {
	Top1        string  `json:"top1"`
	Top1Prob    float64 `json:"top1_prob"`
	TargetLabel string  `json:"target_label"`
	Prob        float64 `json:"prob"`
	Confidence  float64 `json:"confidence"`
	Match       bool    `json:"match"`
}

// Compose turns oracle output into the client-facing result record.
//
// top1 is the argmax class (first index on ties), resolved through the label
// map. When targetLabel names a known gesture (case-insensitive, first match
// in ascending id order), Prob carries that class's probability and Match
// reports whether it is also the argmax. An empty or unknown target leaves
// Prob equal to the top-1 probability with Match false.
func Compose(probs []float32, confidence float32, lm *labels.Map, targetLabel string) Response {
	top1 := argmax(probs)

	var top1Prob float32
	if top1 >= 0 {
		top1Prob = probs[top1]
	}

	resp := Response{
		Top1:        lm.Name(top1),
		Top1Prob:    float64(top1Prob),
		TargetLabel: targetLabel,
		Prob:        float64(top1Prob),
		Confidence:  float64(confidence),
	}

	if targetLabel == "" {
		return resp
	}

	id, ok := lm.Find(targetLabel)
	if !ok || id >= len(probs) {
		return resp
	}

	resp.Prob = float64(probs[id])
	resp.Match = id == top1
	return resp
}

// argmax returns the index of the largest value, preferring the lower index
// on ties, or -1 for an empty slice.
func argmax(probs []float32) int {
	if len(probs) == 0 {
		return -1
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}
