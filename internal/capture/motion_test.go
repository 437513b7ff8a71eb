package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestMotionGate_ClosedUntilMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate()
	defer g.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()

	// First frame only seeds the baseline.
	if g.Observe(&black) {
		t.Error("first frame should not open the gate")
	}
	// Identical frames keep the gate closed.
	if g.Observe(&black) {
		t.Error("identical frames should not open the gate")
	}
	if g.Active() {
		t.Error("gate should be closed with no motion seen")
	}
}

func TestMotionGate_OpensOnMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate()
	defer g.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()

	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()

	g.Observe(&black)
	if !g.Observe(&white) {
		t.Error("black-to-white transition should open the gate")
	}
	// Still frames within the activity window keep the gate open.
	if !g.Observe(&white) {
		t.Error("gate should stay open inside the activity window")
	}
}

func TestMotionGate_ClosesAfterActivityWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate()
	defer g.Close()

	current := time.Now()
	g.now = func() time.Time { return current }

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()

	g.Observe(&black)
	if !g.Observe(&white) {
		t.Fatal("motion should open the gate")
	}

	current = current.Add(g.activeWindow + time.Second)
	if g.Active() {
		t.Error("gate should close once the activity window elapses")
	}
	if g.Observe(&white) {
		// The white frame is identical to the stored baseline now.
		t.Error("a still frame after the window should leave the gate closed")
	}
}

func TestMotionGate_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate()
	defer g.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()

	g.Observe(&black)
	g.Observe(&white)

	g.Reset()

	if g.Active() {
		t.Error("gate should be closed after Reset")
	}
	// Post-reset, the next frame is a fresh baseline.
	if g.Observe(&white) {
		t.Error("first frame after Reset should only seed the baseline")
	}
}

func TestMotionGate_SetSensitivity(t *testing.T) {
	g := NewMotionGate()
	defer g.Close()

	g.SetSensitivity(0.5)
	if g.changedRatio != 0.5 {
		t.Errorf("changedRatio = %f, want 0.5", g.changedRatio)
	}

	g.SetSensitivity(0)
	g.SetSensitivity(1.5)
	if g.changedRatio != 0.5 {
		t.Errorf("out-of-range sensitivity should be ignored, got %f", g.changedRatio)
	}
}
