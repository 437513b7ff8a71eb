package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestServer_DetectionsWithoutStore(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/detections", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d without a store, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_Detections(t *testing.T) {
	st := newTestStore(t)
	s := New(Config{Store: st})

	if err := st.Sessions().Create(&store.Session{ID: "sess-1", RemoteAddr: "127.0.0.1:1"}); err != nil {
		t.Fatalf("session Create() error = %v", err)
	}
	if err := st.Sessions().Create(&store.Session{ID: "sess-2", RemoteAddr: "127.0.0.1:2"}); err != nil {
		t.Fatalf("session Create() error = %v", err)
	}
	for _, d := range []*store.Detection{
		{SessionID: "sess-1", Label: "wave", Probability: 0.8, Confidence: 0.9},
		{SessionID: "sess-1", Label: "pinch", Probability: 0.7, Confidence: 0.8},
		{SessionID: "sess-2", Label: "swipe", Probability: 0.6, Confidence: 0.7},
	} {
		if err := st.Detections().Create(d); err != nil {
			t.Fatalf("detection Create() error = %v", err)
		}
	}

	t.Run("lists recent detections newest first", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/detections", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response listDetectionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Detections) != 3 {
			t.Fatalf("got %d detections, want 3", len(response.Detections))
		}
		if response.Detections[0].Label != "swipe" {
			t.Errorf("first detection = %q, want newest \"swipe\"", response.Detections[0].Label)
		}
	})

	t.Run("filters by session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/detections?session_id=sess-2", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		var response listDetectionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Detections) != 1 || response.Detections[0].SessionID != "sess-2" {
			t.Errorf("unexpected detections: %+v", response.Detections)
		}
	})

	t.Run("honors limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/detections?limit=1", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		var response listDetectionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Detections) != 1 {
			t.Errorf("got %d detections, want 1", len(response.Detections))
		}
	})
}

func TestServer_Sessions(t *testing.T) {
	st := newTestStore(t)
	s := New(Config{Store: st})

	if err := st.Sessions().Create(&store.Session{ID: "sess-1", RemoteAddr: "127.0.0.1:1"}); err != nil {
		t.Fatalf("session Create() error = %v", err)
	}
	if err := st.Sessions().End("sess-1"); err != nil {
		t.Fatalf("session End() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(response.Sessions))
	}
	if response.Sessions[0].EndedAt == "" {
		t.Error("ended session should report an end time")
	}
}

func TestLiveHandler_Publish(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	// Wait for the client to be registered before publishing.
	registered := func() bool {
		s.live.mu.Lock()
		defer s.live.mu.Unlock()
		return len(s.live.clients) == 1
	}
	deadline := time.Now().Add(2 * time.Second)
	for !registered() {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.Live().Publish(map[string]string{"top1": "wave"})

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var payload struct {
		Result    map[string]string `json:"result"`
		Timestamp int64             `json:"timestamp"`
	}
	if err := json.Unmarshal(msg, &payload); err != nil {
		t.Fatalf("decode payload %q: %v", msg, err)
	}
	if payload.Result["top1"] != "wave" {
		t.Errorf("result top1 = %q, want \"wave\"", payload.Result["top1"])
	}
	if payload.Timestamp == 0 {
		t.Error("payload should carry a timestamp")
	}
}

func TestLiveHandler_ConcurrentPublish(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	registered := func() bool {
		s.live.mu.Lock()
		defer s.live.mu.Unlock()
		return len(s.live.clients) == 1
	}
	deadline := time.Now().Add(2 * time.Second)
	for !registered() {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Two result producers publish to the same client at once, as the
	// protocol server and the live camera pipeline do in the real wiring.
	const perPublisher = 20
	var wg sync.WaitGroup
	for p := 0; p < 2; p++ {
		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				s.Live().Publish(map[string]string{"source": source})
			}
		}([]string{"session", "camera"}[p])
	}

	for i := 0; i < 2*perPublisher; i++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("read message %d: %v", i, err)
		}
	}
	wg.Wait()
}
