package app

import (
	"log"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/store"
)

// run is the pipeline loop. The motion gate drives the capture rate: idle
// frames only feed the gate, active frames additionally run landmark
// detection and per-frame inference. Leaving active mode resets the gesture
// window so a stale half-gesture cannot fire later.
func (a *App) run() {
	defer close(a.done)

	active := false
	interval := time.Second / time.Duration(capture.IdleFPS)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			frame, err := a.camera.Read()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			open := a.gate.Observe(frame)

			if open && !active {
				active = true
				a.camera.SetFPS(capture.ActiveFPS)
				interval = time.Second / time.Duration(capture.ActiveFPS)
				ticker.Reset(interval)
				log.Println("Switched to active mode")
			} else if !open && active {
				active = false
				a.camera.SetFPS(capture.IdleFPS)
				interval = time.Second / time.Duration(capture.IdleFPS)
				ticker.Reset(interval)
				a.gestures.Reset()
				log.Println("Switched to idle mode")
			}

			if !active {
				frame.Close()
				continue
			}

			obs, err := a.detector.Detect(frame)
			frame.Close()
			if err != nil {
				log.Printf("Error detecting hand: %v", err)
				continue
			}

			result, err := a.gestures.Process(obs)
			if err != nil {
				log.Printf("Error running inference: %v", err)
				continue
			}

			if result.Triggered {
				a.handleDetection(result.Classes[0], float64(result.Probs[0]), float64(result.Confidence), result.BufferFill)
			}
		}
	}
}

// handleDetection records and publishes one confident detection.
func (a *App) handleDetection(class int, prob, confidence, fill float64) {
	label := a.config.Labels.Name(class)
	log.Printf("Gesture detected: %s (prob: %.3f, conf: %.3f)", label, prob, confidence)

	if a.config.Store != nil {
		err := a.config.Store.Detections().Create(&store.Detection{
			SessionID:   a.sessionID,
			Label:       label,
			Probability: prob,
			Confidence:  confidence,
			FrameCount:  a.gestures.BufferLen(),
		})
		if err != nil {
			log.Printf("Failed to record live detection: %v", err)
		}
	}

	if a.config.OnDetection != nil {
		a.config.OnDetection(Detection{
			Label:       label,
			Probability: prob,
			Confidence:  confidence,
			BufferFill:  fill,
		})
	}
}
