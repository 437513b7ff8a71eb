// Package landmark provides hand-skeleton landmark types and normalization
// for gesture inference.
package landmark

import (
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
	NumCoords    = 3
)

// scaleEpsilon keeps the normalization divisor strictly positive so a
// degenerate near-zero-size detection cannot blow up the point set.
const scaleEpsilon = 1e-6

// fingerBases are the MCP joints of the four non-thumb fingers. Their mean
// distance from the wrist defines the hand scale.
var fingerBases = [4]int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// Point represents one 3-D hand keypoint.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is one instant's hand skeleton: 21 ordered landmarks.
type Frame struct {
	Points [NumLandmarks]Point
}

// Observation is a per-frame detection slot. Valid is false when no hand was
// detected for the frame; downstream stages map that to a zero feature vector.
type Observation struct {
	Frame Frame
	Valid bool
}

// Observed wraps a detected frame in an Observation.
func Observed(f Frame) Observation {
	return Observation{Frame: f, Valid: true}
}

// Missing returns the no-hand-this-frame observation.
func Missing() Observation {
	return Observation{}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalized returns a translation- and scale-normalized copy of the frame.
//
// The wrist's x and y are subtracted from every point's x and y; z is left
// untouched (the centering is deliberately 2-D). The hand scale is the mean
// distance from the wrist to the four non-thumb finger bases, and every
// coordinate is divided by (scale + epsilon).
func (f Frame) Normalized() Frame {
	out := f

	wrist := f.Points[Wrist]
	for i := range out.Points {
		out.Points[i].X -= wrist.X
		out.Points[i].Y -= wrist.Y
	}

	var sum float64
	for _, base := range fingerBases {
		sum += Distance(out.Points[base], out.Points[Wrist])
	}
	scale := sum/float64(len(fingerBases)) + scaleEpsilon

	for i := range out.Points {
		out.Points[i].X /= scale
		out.Points[i].Y /= scale
		out.Points[i].Z /= scale
	}

	return out
}

// FrameFromSlice converts one wire-format frame ([21][3] coordinates) into a
// Frame. It returns an error if the landmark count or coordinate
// dimensionality does not match the expected skeleton layout.
func FrameFromSlice(points [][]float64) (Frame, error) {
	var f Frame

	if len(points) != NumLandmarks {
		return f, fmt.Errorf("expected %d landmarks, got %d", NumLandmarks, len(points))
	}

	for i, p := range points {
		if len(p) != NumCoords {
			return f, fmt.Errorf("landmark %d: expected %d coordinates, got %d", i, NumCoords, len(p))
		}
		f.Points[i] = Point{X: p[0], Y: p[1], Z: p[2]}
	}

	return f, nil
}

// FramesFromSequence converts a wire-format window ([T][21][3]) into frames.
// Any frame with a malformed shape fails the whole window.
func FramesFromSequence(sequence [][][]float64) ([]Frame, error) {
	frames := make([]Frame, len(sequence))
	for t, raw := range sequence {
		f, err := FrameFromSlice(raw)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", t, err)
		}
		frames[t] = f
	}
	return frames, nil
}
