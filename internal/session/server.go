// Package session implements the line-oriented TCP protocol that serves
// gesture inference to the visual front end.
package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/labels"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/oracle"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/window"
)

// Config holds the protocol server dependencies. Oracle and Labels are
// required; Store and OnResult are optional.
type Config struct {
	Oracle oracle.Oracle
	Labels *labels.Map
	// MaxLen is the padded window length the oracle expects.
	MaxLen int
	// Store, when set, records sessions and their results.
	Store *store.Store
	// OnResult, when set, is invoked after each response is written.
	OnResult func(Response)
}

// request is one protocol line from the client. A window arrives fully
// assembled: the request body itself is the inference window.
type request struct {
	Command     string        `json:"command"`
	Sequence    [][][]float64 `json:"sequence"`
	FrameCount  int           `json:"frame_count"`
	Duration    float64       `json:"duration"`
	TargetLabel string        `json:"target_label"`
}

// Server accepts one client at a time and answers newline-delimited JSON
// window requests with newline-delimited JSON results.
type Server struct {
	config Config

	mu       sync.Mutex
	listener net.Listener
}

// New creates a protocol server with the given configuration.
func New(config Config) *Server {
	return &Server{config: config}
}

// ListenAndServe binds addr and runs the accept loop.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve runs the accept loop on an existing listener. Each connection is
// served to completion before the next is accepted; there are no concurrent
// sessions. A handler error terminates only that connection.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.Printf("Gesture server listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		log.Println("Client connected.")
		if err := s.handleConn(conn); err != nil {
			log.Printf("Error while handling client: %v", err)
		}
		log.Println("Closed connection.")
	}
}

// Close stops the accept loop. The connection being served, if any, runs to
// completion.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// handleConn serves one connection until the peer disconnects or an oracle
// failure aborts the session. Malformed lines are skipped, never fatal.
func (s *Server) handleConn(conn net.Conn) error {
	defer conn.Close()

	sessionID := uuid.New().String()
	if s.config.Store != nil {
		if err := s.config.Store.Sessions().Create(&store.Session{
			ID:         sessionID,
			RemoteAddr: conn.RemoteAddr().String(),
		}); err != nil {
			log.Printf("Failed to record session: %v", err)
		}
		defer func() {
			if err := s.config.Store.Sessions().End(sessionID); err != nil {
				log.Printf("Failed to close session record: %v", err)
			}
		}()
	}

	// Windows arrive as single JSON lines that can run well past 64 KiB, so
	// read with an unbounded buffered reader rather than a Scanner.
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil // peer disconnect is a normal session end
			}
			return fmt.Errorf("read request: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var req request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			log.Printf("Invalid JSON received: %v", err)
			continue
		}

		if req.Command == "stop" {
			continue
		}
		if len(req.Sequence) == 0 {
			log.Println("Request has no sequence, skipping")
			continue
		}

		resp, ok, err := s.processWindow(req)
		if err != nil {
			return err
		}
		if !ok {
			// Shape mismatch: the window is dropped with no response.
			continue
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			return fmt.Errorf("write response: %w", err)
		}

		frameCount := req.FrameCount
		if frameCount == 0 {
			frameCount = len(req.Sequence)
		}
		log.Printf("Window processed: frames=%d, duration=%.2fs, top1=%s, top1_prob=%.2f, target_prob=%.2f, conf=%.2f",
			frameCount, req.Duration, resp.Top1, resp.Top1Prob, resp.Prob, resp.Confidence)

		if s.config.Store != nil {
			s.recordDetection(sessionID, frameCount, req.Duration, resp)
		}
		if s.config.OnResult != nil {
			s.config.OnResult(resp)
		}
	}
}

// processWindow runs the full pipeline over one request body. The boolean is
// false when the window's shape does not match the expected skeleton layout;
// such windows never reach the oracle. Oracle failures come back as errors
// and end the session.
func (s *Server) processWindow(req request) (Response, bool, error) {
	frames, err := landmark.FramesFromSequence(req.Sequence)
	if err != nil {
		log.Printf("Dropping malformed window: %v", err)
		return Response{}, false, nil
	}

	vecs := make([]feature.Vector, len(frames))
	for i, f := range frames {
		vecs[i] = feature.Extract(landmark.Observed(f.Normalized()))
	}

	seq, mask := window.BuildSequence(vecs, s.config.MaxLen)

	res, err := s.config.Oracle.Infer(seq, mask)
	if err != nil {
		return Response{}, false, fmt.Errorf("inference: %w", err)
	}

	return Compose(res.Probabilities, res.Confidence, s.config.Labels, req.TargetLabel), true, nil
}

// recordDetection persists one served result; storage trouble is logged and
// never interrupts the session.
func (s *Server) recordDetection(sessionID string, frameCount int, duration float64, resp Response) {
	err := s.config.Store.Detections().Create(&store.Detection{
		SessionID:   sessionID,
		Label:       resp.Top1,
		Probability: resp.Top1Prob,
		TargetLabel: resp.TargetLabel,
		TargetProb:  resp.Prob,
		Confidence:  resp.Confidence,
		Matched:     resp.Match,
		FrameCount:  frameCount,
		Duration:    duration,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		log.Printf("Failed to record detection: %v", err)
	}
}
