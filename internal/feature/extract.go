// Package feature maps normalized hand frames to the fixed-length numeric
// vectors the gesture model was trained on.
package feature

import (
	"math"

	"github.com/ayusman/mudra/internal/landmark"
)

// Dim is the length of a per-frame feature vector:
// 5 fingertip-to-palm distances, 10 joint flexion angles, 4 inter-fingertip
// distances, and 1 velocity slot filled in by the window stage.
const Dim = 20

// PalmBlock is the width of the leading fingertip-distance block. The window
// stage uses it as a stand-in for palm motion when deriving velocity.
const PalmBlock = 5

// unitEpsilon guards the unit-vector division for coincident joints.
const unitEpsilon = 1e-8

// palmIndices define the palm center: wrist plus the four non-thumb MCPs.
var palmIndices = [5]int{
	landmark.Wrist,
	landmark.IndexMCP,
	landmark.MiddleMCP,
	landmark.RingMCP,
	landmark.PinkyMCP,
}

// fingertips in thumb-to-pinky order.
var fingertips = [5]int{
	landmark.ThumbTip,
	landmark.IndexTip,
	landmark.MiddleTip,
	landmark.RingTip,
	landmark.PinkyTip,
}

// fingerChains list the four joints of each finger, thumb to pinky. Each
// chain contributes two interior-joint angles.
var fingerChains = [5][4]int{
	{landmark.ThumbCMC, landmark.ThumbMCP, landmark.ThumbIP, landmark.ThumbTip},
	{landmark.IndexMCP, landmark.IndexPIP, landmark.IndexDIP, landmark.IndexTip},
	{landmark.MiddleMCP, landmark.MiddlePIP, landmark.MiddleDIP, landmark.MiddleTip},
	{landmark.RingMCP, landmark.RingPIP, landmark.RingDIP, landmark.RingTip},
	{landmark.PinkyMCP, landmark.PinkyPIP, landmark.PinkyDIP, landmark.PinkyTip},
}

// Vector is one frame's features in model order. The ordering is a training
// contract: reordering entries silently breaks the classifier.
type Vector []float32

// Zero returns the all-zero vector used for frames with no detected hand.
func Zero() Vector {
	return make(Vector, Dim)
}

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Extract computes the 20-dim feature vector for one normalized observation.
// A missing observation yields the all-zero vector. The caller is expected to
// pass frames through landmark.Frame.Normalized first.
func Extract(obs landmark.Observation) Vector {
	if !obs.Valid {
		return Zero()
	}

	p := &obs.Frame.Points
	out := make(Vector, 0, Dim)

	// Palm center: mean of wrist and the four finger bases.
	var palm landmark.Point
	for _, idx := range palmIndices {
		palm.X += p[idx].X
		palm.Y += p[idx].Y
		palm.Z += p[idx].Z
	}
	palm.X /= float64(len(palmIndices))
	palm.Y /= float64(len(palmIndices))
	palm.Z /= float64(len(palmIndices))

	// 1. Fingertip distances from the palm center (5 features).
	for _, tip := range fingertips {
		out = append(out, float32(landmark.Distance(p[tip], palm)))
	}

	// 2. Joint flexion angles (10 features, 2 interior joints per chain).
	for _, chain := range fingerChains {
		for i := 0; i < len(chain)-2; i++ {
			out = append(out, float32(jointAngle(p[chain[i]], p[chain[i+1]], p[chain[i+2]])))
		}
	}

	// 3. Consecutive inter-fingertip distances (4 features).
	for i := 0; i < len(fingertips)-1; i++ {
		out = append(out, float32(landmark.Distance(p[fingertips[i]], p[fingertips[i+1]])))
	}

	// 4. Velocity placeholder, overwritten per-window by the snapshot stage.
	out = append(out, 0)

	return out
}

// jointAngle computes the angle at joint b between the unit vectors toward
// its chain neighbors a and c.
func jointAngle(a, b, c landmark.Point) float64 {
	v1x, v1y, v1z := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	v2x, v2y, v2z := c.X-b.X, c.Y-b.Y, c.Z-b.Z

	n1 := math.Sqrt(v1x*v1x+v1y*v1y+v1z*v1z) + unitEpsilon
	n2 := math.Sqrt(v2x*v2x+v2y*v2y+v2z*v2z) + unitEpsilon

	cos := (v1x*v2x + v1y*v2y + v1z*v2z) / (n1 * n2)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	return math.Acos(cos)
}
