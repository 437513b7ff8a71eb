package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/labels"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/oracle"
)

const testMaxLen = 8

// startServer runs a Server on an ephemeral port and returns its address.
func startServer(t *testing.T, mock *oracle.Mock) string {
	t.Helper()

	srv := New(Config{
		Oracle: mock,
		Labels: labels.FromNames(map[int]string{0: "wave", 1: "pinch", 2: "swipe"}),
		MaxLen: testMaxLen,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return ln.Addr().String()
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendLine(t *testing.T, conn net.Conn, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		t.Fatalf("write request: %v", err)
	}
}

func readResponse(t *testing.T, r *bufio.Reader) Response {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("parse response %q: %v", line, err)
	}
	return resp
}

func validRequest(target string) map[string]any {
	return map[string]any{
		"sequence":     landmark.Sequence(landmark.OpenPalm(), landmark.Fist(), landmark.OpenPalm()),
		"frame_count":  3,
		"duration":     0.2,
		"target_label": target,
	}
}

func TestServer_ServesWindow(t *testing.T) {
	mock := oracle.NewMock(3)
	mock.SetResult([]float32{0.1, 0.7, 0.2}, 0.85)
	addr := startServer(t, mock)

	conn := dial(t, addr)
	reader := bufio.NewReader(conn)

	sendLine(t, conn, validRequest("PINCH"))
	resp := readResponse(t, reader)

	if resp.Top1 != "pinch" {
		t.Errorf("top1 = %q, want \"pinch\"", resp.Top1)
	}
	if resp.TargetLabel != "PINCH" {
		t.Errorf("target_label = %q, want echoed \"PINCH\"", resp.TargetLabel)
	}
	if !resp.Match {
		t.Error("match should be true: target is the argmax")
	}
	if resp.Confidence != float64(float32(0.85)) {
		t.Errorf("confidence = %f, want 0.85", resp.Confidence)
	}

	// The request body itself is the window: 3 real frames, padded to
	// testMaxLen with a contiguous mask prefix.
	if len(mock.LastMask) != testMaxLen {
		t.Fatalf("mask length = %d, want %d", len(mock.LastMask), testMaxLen)
	}
	for i, m := range mock.LastMask {
		want := float32(0)
		if i < 3 {
			want = 1
		}
		if m != want {
			t.Errorf("mask[%d] = %f, want %f", i, m, want)
		}
	}
}

func TestServer_MalformedShapeDroppedSilently(t *testing.T) {
	mock := oracle.NewMock(3)
	mock.SetResult([]float32{0.9, 0.05, 0.05}, 0.9)
	addr := startServer(t, mock)

	conn := dial(t, addr)
	reader := bufio.NewReader(conn)

	// 20-point frames: wrong skeleton layout.
	bad := landmark.Sequence(landmark.OpenPalm())
	bad[0] = bad[0][:landmark.NumLandmarks-1]
	sendLine(t, conn, map[string]any{"sequence": bad})

	// The connection must stay open and the next valid window must be the
	// first (and only) response on the wire.
	sendLine(t, conn, validRequest("wave"))
	resp := readResponse(t, reader)

	if resp.TargetLabel != "wave" {
		t.Errorf("response is for %q; the malformed window should produce no bytes", resp.TargetLabel)
	}
	if mock.Calls != 1 {
		t.Errorf("oracle calls = %d, want 1 (malformed window must not reach the oracle)", mock.Calls)
	}
}

func TestServer_MalformedJSONSkipped(t *testing.T) {
	mock := oracle.NewMock(3)
	mock.SetResult([]float32{0.9, 0.05, 0.05}, 0.9)
	addr := startServer(t, mock)

	conn := dial(t, addr)
	reader := bufio.NewReader(conn)

	if _, err := conn.Write([]byte("{not json\n")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	sendLine(t, conn, validRequest(""))
	resp := readResponse(t, reader)

	if resp.Top1 != "wave" {
		t.Errorf("top1 = %q, want \"wave\"", resp.Top1)
	}
}

// logBuffer collects log output from the server goroutine for assertions.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServer_StopAndEmptyRequestsIgnored(t *testing.T) {
	logs := &logBuffer{}
	log.SetOutput(logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	mock := oracle.NewMock(3)
	mock.SetResult([]float32{0.9, 0.05, 0.05}, 0.9)
	addr := startServer(t, mock)

	conn := dial(t, addr)
	reader := bufio.NewReader(conn)

	sendLine(t, conn, map[string]any{"command": "stop"})
	sendLine(t, conn, map[string]any{"frame_count": 10}) // no sequence
	if _, err := conn.Write([]byte("\n")); err != nil {
		t.Fatalf("write blank line: %v", err)
	}

	sendLine(t, conn, validRequest("swipe"))
	resp := readResponse(t, reader)

	if resp.TargetLabel != "swipe" {
		t.Errorf("response is for %q; stop/empty lines should produce no bytes", resp.TargetLabel)
	}
	if mock.Calls != 1 {
		t.Errorf("oracle calls = %d, want 1", mock.Calls)
	}
	if !strings.Contains(logs.String(), "Request has no sequence") {
		t.Error("a sequence-less request should leave a diagnostic in the log")
	}
}

func TestServer_OracleFailureEndsOnlyThatSession(t *testing.T) {
	mock := oracle.NewMock(3)
	mock.SetError(errors.New("model exploded"))
	addr := startServer(t, mock)

	conn := dial(t, addr)
	reader := bufio.NewReader(conn)

	sendLine(t, conn, validRequest(""))

	// The failing session is torn down with no partial line.
	if line, err := reader.ReadString('\n'); err == nil {
		t.Fatalf("expected disconnect, got line %q", line)
	}

	// The accept loop keeps going: a new client is served once the oracle
	// recovers.
	mock.SetError(nil)
	mock.SetResult([]float32{0.9, 0.05, 0.05}, 0.9)

	conn2 := dial(t, addr)
	reader2 := bufio.NewReader(conn2)
	sendLine(t, conn2, validRequest(""))
	resp := readResponse(t, reader2)

	if resp.Top1 != "wave" {
		t.Errorf("top1 after reconnect = %q, want \"wave\"", resp.Top1)
	}
}

func TestServer_LongWindowTruncatedToMostRecent(t *testing.T) {
	mock := oracle.NewMock(3)
	mock.SetResult([]float32{0.9, 0.05, 0.05}, 0.9)
	addr := startServer(t, mock)

	conn := dial(t, addr)
	reader := bufio.NewReader(conn)

	// More frames than the model window: mask is all ones after truncation.
	frames := make([]landmark.Frame, testMaxLen+5)
	for i := range frames {
		frames[i] = landmark.OpenPalm()
	}
	sendLine(t, conn, map[string]any{"sequence": landmark.Sequence(frames...)})
	readResponse(t, reader)

	if len(mock.LastMask) != testMaxLen {
		t.Fatalf("mask length = %d, want %d", len(mock.LastMask), testMaxLen)
	}
	for i, m := range mock.LastMask {
		if m != 1 {
			t.Errorf("mask[%d] = %f, want 1", i, m)
		}
	}
	if len(mock.LastSequence) != testMaxLen {
		t.Errorf("sequence length = %d, want %d", len(mock.LastSequence), testMaxLen)
	}
}
