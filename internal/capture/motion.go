package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// blurKernel is the Gaussian kernel size used to suppress sensor noise
	// before differencing.
	blurKernel = 25
	// diffThreshold is the per-pixel binary threshold on the frame difference.
	diffThreshold = 25
	// DefaultChangedRatio is the fraction of pixels that must change for a
	// frame to count as motion.
	DefaultChangedRatio = 0.01
	// DefaultActiveWindow is how long the gate stays active after the last
	// motion, long enough to carry a full gesture through still moments.
	DefaultActiveWindow = 3 * time.Second
)

// MotionGate decides whether the live pipeline should run at its active rate.
// Motion in a frame opens the gate; it stays open for an activity window after
// the last motion so a gesture with still phases is not cut short.
type MotionGate struct {
	changedRatio float64
	activeWindow time.Duration

	mu          sync.Mutex
	prev        gocv.Mat
	initialized bool
	lastMotion  time.Time
	now         func() time.Time
}

// NewMotionGate creates a MotionGate with the default sensitivity and
// activity window.
func NewMotionGate() *MotionGate {
	return &MotionGate{
		changedRatio: DefaultChangedRatio,
		activeWindow: DefaultActiveWindow,
		prev:         gocv.NewMat(),
		now:          time.Now,
	}
}

// Observe feeds one frame through the gate and reports whether the pipeline
// should currently be active. The first frame only seeds the baseline.
func (g *MotionGate) Observe(frame *gocv.Mat) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return g.activeLocked()
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !g.initialized {
		blurred.CopyTo(&g.prev)
		g.initialized = true
		return false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols())

	blurred.CopyTo(&g.prev)

	if changed > g.changedRatio {
		g.lastMotion = g.now()
	}

	return g.activeLocked()
}

// Active reports whether the gate is currently open without consuming a frame.
func (g *MotionGate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeLocked()
}

func (g *MotionGate) activeLocked() bool {
	if g.lastMotion.IsZero() {
		return false
	}
	return g.now().Sub(g.lastMotion) < g.activeWindow
}

// SetSensitivity sets the changed-pixel ratio required to count as motion.
// Values outside (0, 1] are ignored.
func (g *MotionGate) SetSensitivity(ratio float64) {
	if ratio <= 0 || ratio > 1 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.changedRatio = ratio
}

// Reset clears the baseline and closes the gate.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prev.Empty() {
		g.prev.Close()
		g.prev = gocv.NewMat()
	}
	g.initialized = false
	g.lastMotion = time.Time{}
}

// Close releases resources used by the gate.
func (g *MotionGate) Close() {
	g.Reset()
}
