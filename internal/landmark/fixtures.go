package landmark

// Preset frames for tests and the mock detector. Coordinates are in the
// 0..1 image space MediaPipe reports.

// OpenPalm returns a frame with all five fingers extended.
func OpenPalm() Frame {
	var f Frame

	f.Points[Wrist] = Point{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	f.Points[ThumbCMC] = Point{X: 0.55, Y: 0.75, Z: 0.02}
	f.Points[ThumbMCP] = Point{X: 0.62, Y: 0.70, Z: 0.03}
	f.Points[ThumbIP] = Point{X: 0.68, Y: 0.65, Z: 0.03}
	f.Points[ThumbTip] = Point{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	f.Points[IndexMCP] = Point{X: 0.55, Y: 0.68, Z: 0.0}
	f.Points[IndexPIP] = Point{X: 0.57, Y: 0.55, Z: 0.0}
	f.Points[IndexDIP] = Point{X: 0.58, Y: 0.45, Z: 0.0}
	f.Points[IndexTip] = Point{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward
	f.Points[MiddleMCP] = Point{X: 0.50, Y: 0.66, Z: 0.0}
	f.Points[MiddlePIP] = Point{X: 0.50, Y: 0.52, Z: 0.0}
	f.Points[MiddleDIP] = Point{X: 0.50, Y: 0.40, Z: 0.0}
	f.Points[MiddleTip] = Point{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	f.Points[RingMCP] = Point{X: 0.45, Y: 0.68, Z: 0.0}
	f.Points[RingPIP] = Point{X: 0.43, Y: 0.55, Z: 0.0}
	f.Points[RingDIP] = Point{X: 0.42, Y: 0.45, Z: 0.0}
	f.Points[RingTip] = Point{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	f.Points[PinkyMCP] = Point{X: 0.40, Y: 0.70, Z: 0.0}
	f.Points[PinkyPIP] = Point{X: 0.37, Y: 0.60, Z: 0.0}
	f.Points[PinkyDIP] = Point{X: 0.35, Y: 0.50, Z: 0.0}
	f.Points[PinkyTip] = Point{X: 0.34, Y: 0.42, Z: 0.0}

	return f
}

// Fist returns a frame with all fingers curled toward the palm.
func Fist() Frame {
	var f Frame

	f.Points[Wrist] = Point{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb folded across the curled fingers
	f.Points[ThumbCMC] = Point{X: 0.55, Y: 0.75, Z: 0.0}
	f.Points[ThumbMCP] = Point{X: 0.57, Y: 0.71, Z: -0.01}
	f.Points[ThumbIP] = Point{X: 0.55, Y: 0.68, Z: -0.03}
	f.Points[ThumbTip] = Point{X: 0.52, Y: 0.67, Z: -0.04}

	// Index finger curled
	f.Points[IndexMCP] = Point{X: 0.55, Y: 0.68, Z: -0.02}
	f.Points[IndexPIP] = Point{X: 0.55, Y: 0.64, Z: -0.06}
	f.Points[IndexDIP] = Point{X: 0.53, Y: 0.67, Z: -0.07}
	f.Points[IndexTip] = Point{X: 0.52, Y: 0.70, Z: -0.05}

	// Middle finger curled
	f.Points[MiddleMCP] = Point{X: 0.50, Y: 0.66, Z: -0.02}
	f.Points[MiddlePIP] = Point{X: 0.50, Y: 0.62, Z: -0.06}
	f.Points[MiddleDIP] = Point{X: 0.48, Y: 0.65, Z: -0.07}
	f.Points[MiddleTip] = Point{X: 0.47, Y: 0.69, Z: -0.05}

	// Ring finger curled
	f.Points[RingMCP] = Point{X: 0.45, Y: 0.68, Z: -0.02}
	f.Points[RingPIP] = Point{X: 0.45, Y: 0.64, Z: -0.06}
	f.Points[RingDIP] = Point{X: 0.43, Y: 0.67, Z: -0.07}
	f.Points[RingTip] = Point{X: 0.42, Y: 0.70, Z: -0.05}

	// Pinky finger curled
	f.Points[PinkyMCP] = Point{X: 0.40, Y: 0.70, Z: -0.02}
	f.Points[PinkyPIP] = Point{X: 0.40, Y: 0.67, Z: -0.05}
	f.Points[PinkyDIP] = Point{X: 0.38, Y: 0.69, Z: -0.06}
	f.Points[PinkyTip] = Point{X: 0.37, Y: 0.72, Z: -0.04}

	return f
}

// Sequence converts frames to the wire format ([T][21][3]) used by protocol
// tests.
func Sequence(frames ...Frame) [][][]float64 {
	seq := make([][][]float64, len(frames))
	for t, f := range frames {
		points := make([][]float64, NumLandmarks)
		for i, p := range f.Points {
			points[i] = []float64{p.X, p.Y, p.Z}
		}
		seq[t] = points
	}
	return seq
}
