// Package app runs the live camera pipeline: capture, landmark detection,
// and windowed gesture inference.
package app

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/labels"
	"github.com/ayusman/mudra/internal/oracle"
	"github.com/ayusman/mudra/internal/realtime"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds configuration options for the live pipeline.
type Config struct {
	CameraID int
	Oracle   oracle.Oracle
	Labels   *labels.Map
	Detector detector.Detector
	Realtime realtime.Config

	// Store, when set, records live detections.
	Store *store.Store
	// OnDetection, when set, is invoked for every triggered detection.
	OnDetection func(Detection)
}

// Detection is one confident live detection.
type Detection struct {
	Label       string
	Probability float64
	Confidence  float64
	BufferFill  float64
}

// App orchestrates the live pipeline. It owns the camera and motion gate;
// the detector and oracle are injected.
type App struct {
	config   Config
	camera   capture.Camera
	gate     *capture.MotionGate
	detector detector.Detector
	gestures *realtime.Detector

	mu        sync.Mutex
	stopCh    chan struct{}
	done      chan struct{}
	sessionID string
}

// New creates a live pipeline around the given configuration. Oracle is
// required; a nil Detector falls back to the mock, which reports no hands.
func New(config Config) *App {
	d := config.Detector
	if d == nil {
		log.Println("No hand detector configured, using mock detector")
		d = detector.NewMockDetector()
	}

	return &App{
		config:   config,
		camera:   capture.NewCamera(config.CameraID),
		gate:     capture.NewMotionGate(),
		detector: d,
		gestures: realtime.New(config.Oracle, config.Realtime),
	}
}

// SetCamera replaces the camera. Only valid before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Start opens the camera and begins the pipeline loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(capture.IdleFPS)

	a.sessionID = uuid.New().String()
	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Create(&store.Session{
			ID:         a.sessionID,
			RemoteAddr: "camera",
		}); err != nil {
			log.Printf("Failed to record live session: %v", err)
		}
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.run()

	log.Println("Live pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh == nil {
		return
	}

	close(a.stopCh)
	<-a.done
	a.stopCh = nil
	a.done = nil

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.gate.Close()
	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}

	if a.config.Store != nil {
		if err := a.config.Store.Sessions().End(a.sessionID); err != nil {
			log.Printf("Failed to close live session record: %v", err)
		}
	}

	log.Println("Live pipeline stopped")
}
