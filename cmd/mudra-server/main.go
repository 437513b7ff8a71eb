package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/labels"
	"github.com/ayusman/mudra/internal/monitor"
	"github.com/ayusman/mudra/internal/oracle"
	"github.com/ayusman/mudra/internal/realtime"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.Addr, "gesture protocol listen address")
	httpAddr := flag.String("http", cfg.HTTPAddr, "monitor HTTP listen address")
	live := flag.Bool("live", false, "run the live camera pipeline")
	cameraID := flag.Int("camera", cfg.CameraID, "capture device id for live mode")
	flag.Parse()

	fmt.Println("Mudra - Hand Gesture Inference Server")

	if err := os.MkdirAll(config.DataDir(), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	labelMap, err := labels.Load(cfg.LabelMapPath)
	if err != nil {
		log.Fatalf("Failed to load label map: %v", err)
	}
	log.Printf("Loaded %d gesture classes", labelMap.Len())

	onnx, err := oracle.NewONNX(oracle.Config{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.ONNXLibraryPath,
		FeatureDim:  feature.Dim,
		MaxLen:      cfg.MaxLen,
		NumClasses:  labelMap.Len(),
	})
	if err != nil {
		log.Fatalf("Failed to load gesture model: %v", err)
	}
	defer onnx.Close()

	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	mon := monitor.New(monitor.Config{Store: st})
	go func() {
		log.Printf("Monitor listening on %s", *httpAddr)
		if err := mon.ListenAndServe(*httpAddr); err != nil {
			log.Printf("Monitor server failed: %v", err)
		}
	}()

	if *live {
		pipeline := app.New(app.Config{
			CameraID: *cameraID,
			Oracle:   onnx,
			Labels:   labelMap,
			Detector: newLandmarkDetector(cfg),
			Realtime: realtime.Config{
				BufferSize:            cfg.BufferSize,
				MaxLen:                cfg.MaxLen,
				ConfidenceThreshold:   float32(cfg.ConfidenceThreshold),
				OracleConfidenceFloor: realtime.DefaultConfig().OracleConfidenceFloor,
				CooldownFrames:        cfg.CooldownFrames,
			},
			Store: st,
			OnDetection: func(d app.Detection) {
				mon.Live().Publish(d)
			},
		})
		if err := pipeline.Start(); err != nil {
			log.Fatalf("Failed to start live pipeline: %v", err)
		}
		defer pipeline.Stop()
	}

	srv := session.New(session.Config{
		Oracle: onnx,
		Labels: labelMap,
		MaxLen: cfg.MaxLen,
		Store:  st,
		OnResult: func(r session.Response) {
			mon.Live().Publish(r)
		},
	})

	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newLandmarkDetector builds the MediaPipe detector for live mode, falling
// back to the mock when the landmark service is not configured.
func newLandmarkDetector(cfg *config.Config) detector.Detector {
	script := cfg.LandmarkScript
	if script == "" {
		candidate := filepath.Join(config.DataDir(), "scripts", "landmark_service.py")
		if _, err := os.Stat(candidate); err == nil {
			script = candidate
		}
	}
	if script == "" {
		log.Println("Landmark service not configured, live mode will see no hands")
		return detector.NewMockDetector()
	}

	dcfg := detector.DefaultConfig()
	dcfg.ScriptPath = script
	dcfg.PythonPath = cfg.PythonPath

	d, err := detector.NewMediaPipeDetector(dcfg)
	if err != nil {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Println("Using MediaPipe hand detection")
	return d
}
