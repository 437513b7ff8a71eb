// Package monitor provides the HTTP observation surface for the gesture
// server: health, detection history, and a live result feed.
package monitor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/store"
)

// Config holds the monitor configuration. Store is optional; without it the
// history endpoints return 404.
type Config struct {
	Store *store.Store
}

// Server exposes read-only state over HTTP. It never mutates the pipeline.
type Server struct {
	config Config
	mux    *http.ServeMux
	live   *LiveHandler
	start  time.Time
}

// New creates a new monitor Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		live:   NewLiveHandler(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/live", s.live)

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/detections", s.handleDetections)
		s.mux.HandleFunc("/api/sessions", s.handleSessions)
	}
}

// Live returns the handler that fans results out to WebSocket clients.
func (s *Server) Live() *LiveHandler {
	return s.live
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type detectionResponse struct {
	ID          int64   `json:"id"`
	SessionID   string  `json:"session_id"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	TargetLabel string  `json:"target_label,omitempty"`
	TargetProb  float64 `json:"target_prob"`
	Confidence  float64 `json:"confidence"`
	Matched     bool    `json:"matched"`
	FrameCount  int     `json:"frame_count"`
	Duration    float64 `json:"duration"`
	CreatedAt   string  `json:"created_at"`
}

type listDetectionsResponse struct {
	Detections []detectionResponse `json:"detections"`
}

type sessionResponse struct {
	ID         string `json:"id"`
	RemoteAddr string `json:"remote_addr"`
	StartedAt  string `json:"started_at"`
	EndedAt    string `json:"ended_at,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func toDetectionResponse(d *store.Detection) detectionResponse {
	return detectionResponse{
		ID:          d.ID,
		SessionID:   d.SessionID,
		Label:       d.Label,
		Probability: d.Probability,
		TargetLabel: d.TargetLabel,
		TargetProb:  d.TargetProb,
		Confidence:  d.Confidence,
		Matched:     d.Matched,
		FrameCount:  d.FrameCount,
		Duration:    d.Duration,
		CreatedAt:   d.CreatedAt.Format(timeLayout),
	}
}

// handleDetections handles GET /api/detections. A session_id query filters to
// one session; a limit query caps the result size otherwise.
func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		detections []*store.Detection
		err        error
	)
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		detections, err = s.config.Store.Detections().ListBySession(sessionID)
	} else {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		detections, err = s.config.Store.Detections().ListRecent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}

	response := listDetectionsResponse{
		Detections: make([]detectionResponse, 0, len(detections)),
	}
	for _, d := range detections {
		response.Detections = append(response.Detections, toDetectionResponse(d))
	}

	writeJSON(w, http.StatusOK, response)
}

// handleSessions handles GET /api/sessions and returns all recorded sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := s.config.Store.Sessions().List()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: []sessionResponse{}})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, sess := range sessions {
		sr := sessionResponse{
			ID:         sess.ID,
			RemoteAddr: sess.RemoteAddr,
			StartedAt:  sess.StartedAt.Format(timeLayout),
		}
		if sess.EndedAt != nil {
			sr.EndedAt = sess.EndedAt.Format(timeLayout)
		}
		response.Sessions = append(response.Sessions, sr)
	}

	writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
