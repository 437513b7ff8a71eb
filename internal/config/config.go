// Package config loads server configuration from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	// Addr is the TCP address the gesture protocol listens on.
	Addr string
	// HTTPAddr is the monitor HTTP address.
	HTTPAddr string

	// ModelPath is the ONNX gesture model.
	ModelPath string
	// LabelMapPath maps class ids to gesture names.
	LabelMapPath string
	// ONNXLibraryPath is the onnxruntime shared library.
	ONNXLibraryPath string
	// DBPath is the SQLite history database.
	DBPath string

	// MaxLen is the padded window length the model expects.
	MaxLen int
	// BufferSize is the live window capacity in frames.
	BufferSize int
	// ConfidenceThreshold is the minimum top-1 probability for a detection.
	ConfidenceThreshold float64
	// CooldownFrames suppresses inference after a confident detection.
	CooldownFrames int

	// CameraID selects the capture device for live mode.
	CameraID int
	// LandmarkScript is the Python landmark service for live mode. Empty
	// disables live capture.
	LandmarkScript string
	// PythonPath overrides the interpreter for the landmark service.
	PythonPath string
}

// Load reads the configuration from the environment, falling back to
// defaults that match how the model was trained.
func Load() *Config {
	return &Config{
		Addr:                getEnv("MUDRA_ADDR", "127.0.0.1:50007"),
		HTTPAddr:            getEnv("MUDRA_HTTP_ADDR", ":8080"),
		ModelPath:           getEnv("MUDRA_MODEL_PATH", filepath.Join(dataDir(), "gesture_model.onnx")),
		LabelMapPath:        getEnv("MUDRA_LABEL_MAP", filepath.Join(dataDir(), "label_map.json")),
		ONNXLibraryPath:     getEnv("MUDRA_ONNX_LIB", defaultONNXLib()),
		DBPath:              getEnv("MUDRA_DB_PATH", filepath.Join(dataDir(), "mudra.db")),
		MaxLen:              getEnvInt("MUDRA_MAX_LEN", 100),
		BufferSize:          getEnvInt("MUDRA_BUFFER_SIZE", 100),
		ConfidenceThreshold: getEnvFloat("MUDRA_CONFIDENCE", 0.6),
		CooldownFrames:      getEnvInt("MUDRA_COOLDOWN_FRAMES", 30),
		CameraID:            getEnvInt("MUDRA_CAMERA_ID", 0),
		LandmarkScript:      getEnv("MUDRA_LANDMARK_SCRIPT", ""),
		PythonPath:          getEnv("MUDRA_PYTHON", ""),
	}
}

// DataDir returns the directory holding the model, label map, and database.
func DataDir() string {
	return dataDir()
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

func defaultONNXLib() string {
	// Common install locations, first match wins.
	candidates := []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "libonnxruntime.so"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
