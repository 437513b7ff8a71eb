// Package window accumulates per-frame feature vectors into the padded,
// masked sequences the gesture model consumes.
package window

import (
	"math"

	"github.com/ayusman/mudra/internal/feature"
)

// DefaultCapacity is the bounded size of the live feature buffer.
const DefaultCapacity = 100

// Buffer is a bounded FIFO of per-frame feature vectors. Once full, pushing
// evicts the oldest entry. A Buffer belongs to exactly one session and is not
// safe for concurrent use.
type Buffer struct {
	vecs     []feature.Vector
	capacity int
}

// NewBuffer creates a buffer holding at most capacity vectors.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		vecs:     make([]feature.Vector, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a vector, evicting the oldest entry if the buffer is full.
func (b *Buffer) Push(v feature.Vector) {
	if len(b.vecs) >= b.capacity {
		copy(b.vecs, b.vecs[1:])
		b.vecs = b.vecs[:b.capacity-1]
	}
	b.vecs = append(b.vecs, v)
}

// Len returns the number of buffered vectors.
func (b *Buffer) Len() int {
	return len(b.vecs)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Fill returns the buffered fraction in [0, 1].
func (b *Buffer) Fill() float64 {
	return float64(len(b.vecs)) / float64(b.capacity)
}

// Clear discards all buffered vectors.
func (b *Buffer) Clear() {
	b.vecs = b.vecs[:0]
}

// Snapshot derives the model input from the current contents: a maxLen-long
// padded sequence and its validity mask. The live buffer is not modified.
func (b *Buffer) Snapshot(maxLen int) ([]feature.Vector, []float32) {
	return BuildSequence(b.vecs, maxLen)
}

// BuildSequence turns an ordered run of feature vectors into a fixed-length
// model input. It is the single entry point for both the incremental buffer
// and the whole-window request path.
//
// The velocity channel is derived here, fresh on every call: the trailing
// slot of each vector is overwritten with the L2 norm of the first difference
// of the leading fingertip-distance block, with frame 0 pinned to zero. The
// input vectors keep their zero placeholder; only the returned copies carry
// velocities. Sequences shorter than maxLen are zero-padded at the tail
// (mask 0); longer ones keep only the most recent maxLen entries.
func BuildSequence(vecs []feature.Vector, maxLen int) ([]feature.Vector, []float32) {
	seq := make([]feature.Vector, len(vecs))
	for i, v := range vecs {
		seq[i] = v.Clone()
	}

	for i := 1; i < len(seq); i++ {
		seq[i][len(seq[i])-1] = palmVelocity(seq[i-1], seq[i])
	}

	if len(seq) >= maxLen {
		seq = seq[len(seq)-maxLen:]
		mask := make([]float32, maxLen)
		for i := range mask {
			mask[i] = 1
		}
		return seq, mask
	}

	mask := make([]float32, maxLen)
	for i := 0; i < len(seq); i++ {
		mask[i] = 1
	}
	for len(seq) < maxLen {
		seq = append(seq, feature.Zero())
	}

	return seq, mask
}

// palmVelocity is the Euclidean norm of the change in the leading
// fingertip-distance block between consecutive frames.
func palmVelocity(prev, cur feature.Vector) float32 {
	var sum float64
	for k := 0; k < feature.PalmBlock; k++ {
		d := float64(cur[k] - prev[k])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// Flatten lays a padded sequence out row-major as a single float32 slice for
// tensor construction.
func Flatten(seq []feature.Vector) []float32 {
	if len(seq) == 0 {
		return nil
	}
	out := make([]float32, 0, len(seq)*len(seq[0]))
	for _, v := range seq {
		out = append(out, v...)
	}
	return out
}
