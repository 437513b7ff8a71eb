// Package realtime drives incremental per-frame gesture detection with a
// post-detection cooldown.
package realtime

import (
	"sort"

	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/oracle"
	"github.com/ayusman/mudra/internal/window"
)

// Config holds the detection state machine parameters.
type Config struct {
	// BufferSize is the live window capacity in frames.
	BufferSize int
	// MaxLen is the padded sequence length the model expects.
	MaxLen int
	// ConfidenceThreshold is the minimum top-1 probability for a detection.
	ConfidenceThreshold float32
	// OracleConfidenceFloor is the minimum model confidence for a detection.
	OracleConfidenceFloor float32
	// CooldownFrames is how many processed frames to suppress new inference
	// after a confident detection.
	CooldownFrames int
	// TopK is how many ranked classes each result carries.
	TopK int
}

// DefaultConfig returns the parameters the model was tuned with.
func DefaultConfig() Config {
	return Config{
		BufferSize:            100,
		MaxLen:                100,
		ConfidenceThreshold:   0.6,
		OracleConfidenceFloor: 0.5,
		CooldownFrames:        30,
		TopK:                  3,
	}
}

// Result is the per-frame detection output. While the detector is cooling
// down or the buffer is below half capacity, Classes and Probs are the
// previously emitted ranking (or empty) and only BufferFill moves.
type Result struct {
	Classes    []int
	Probs      []float32
	Confidence float32
	BufferFill float64
	// Triggered is true exactly on the frame whose inference crossed both
	// detection thresholds and started a cooldown.
	Triggered bool
}

// Detector is the per-session detection state machine. It owns its window
// buffer exclusively and is not safe for concurrent use.
type Detector struct {
	config Config
	oracle oracle.Oracle
	buffer *window.Buffer

	cooldown       int
	lastClasses    []int
	lastProbs      []float32
	lastConfidence float32
}

// New creates a detector around the given oracle.
func New(o oracle.Oracle, config Config) *Detector {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.MaxLen <= 0 {
		config.MaxLen = DefaultConfig().MaxLen
	}
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}

	return &Detector{
		config: config,
		oracle: o,
		buffer: window.NewBuffer(config.BufferSize),
	}
}

// Process ingests one frame observation and returns the current detection
// state. A missing observation contributes the all-zero feature vector, so
// dropped-hand frames still advance the window and the cooldown.
func (d *Detector) Process(obs landmark.Observation) (Result, error) {
	var vec feature.Vector
	if obs.Valid {
		vec = feature.Extract(landmark.Observed(obs.Frame.Normalized()))
	} else {
		vec = feature.Zero()
	}
	d.buffer.Push(vec)

	fill := d.buffer.Fill()

	// Cooling: re-emit the previous ranking unchanged, no inference.
	if d.cooldown > 0 {
		d.cooldown--
		return Result{
			Classes:    d.lastClasses,
			Probs:      d.lastProbs,
			Confidence: d.lastConfidence,
			BufferFill: fill,
		}, nil
	}

	// Below half capacity there is not enough context to classify.
	if d.buffer.Len()*2 < d.config.BufferSize {
		return Result{BufferFill: fill}, nil
	}

	seq, mask := d.buffer.Snapshot(d.config.MaxLen)
	res, err := d.oracle.Infer(seq, mask)
	if err != nil {
		return Result{}, err
	}

	classes, probs := rankTopK(res.Probabilities, d.config.TopK)
	d.lastClasses = classes
	d.lastProbs = probs
	d.lastConfidence = res.Confidence

	triggered := len(probs) > 0 &&
		probs[0] >= d.config.ConfidenceThreshold &&
		res.Confidence >= d.config.OracleConfidenceFloor
	if triggered {
		d.cooldown = d.config.CooldownFrames
	}

	return Result{
		Classes:    classes,
		Probs:      probs,
		Confidence: res.Confidence,
		BufferFill: fill,
		Triggered:  triggered,
	}, nil
}

// Reset clears the window and all detection state, including any pending
// cooldown.
func (d *Detector) Reset() {
	d.buffer.Clear()
	d.cooldown = 0
	d.lastClasses = nil
	d.lastProbs = nil
	d.lastConfidence = 0
}

// BufferLen returns the current window length.
func (d *Detector) BufferLen() int {
	return d.buffer.Len()
}

// rankTopK returns the k highest-probability class ids in descending order.
// Equal probabilities rank the lower class id first.
func rankTopK(probs []float32, k int) ([]int, []float32) {
	indices := make([]int, len(probs))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return probs[indices[a]] > probs[indices[b]]
	})

	if k > len(indices) {
		k = len(indices)
	}

	classes := make([]int, k)
	ranked := make([]float32, k)
	for i := 0; i < k; i++ {
		classes[i] = indices[i]
		ranked[i] = probs[indices[i]]
	}
	return classes, ranked
}
