package websocket

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/sharpsoft/almosthuman/internal/config"
)

func newTestServer(t *testing.T, collab Collaborators) (*httptest.Server, *ConnectionRegistry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := newTestRegistry()
	cfg := &config.Settings{
		Pipeline: config.PipelineConfig{
			QueueBound: 8,
			// Long enough that pings never interleave with the frames the
			// test asserts on.
			KeepaliveInterval: time.Hour,
			DrainTimeout:      time.Second,
		},
	}
	handler := NewHandler(testLogger(), registry, collab, cfg)

	router := gin.New()
	router.GET("/ws/:client_id", handler.HandleSession)
	router.GET("/stats", handler.HandleStats)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server, clientID string) *gws.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + clientID
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readFrame reads the next non-ping frame; the keepalive sends its first ping
// right after the handshake.
func readFrame(t *testing.T, conn *gws.Conn) map[string]any {
	t.Helper()
	for {
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("failed to read frame: %v", err)
		}
		if frame["type"] == "ping" {
			continue
		}
		return frame
	}
}

func TestWebSocketSessionRoundTrip(t *testing.T) {
	responder := &stubResponder{replyFn: func(string) string { return "right this way" }}
	srv, registry := newTestServer(t, Collaborators{
		Transcriber: echoTranscriber{},
		Responder:   responder,
		Synthesizer: &stubSynthesizer{},
	})

	conn := dial(t, srv, "visitor-7")

	confirmed := readFrame(t, conn)
	if confirmed["status"] != "connected" || confirmed["client_id"] != "visitor-7" {
		t.Fatalf("unexpected confirmation frame: %v", confirmed)
	}

	segment := base64.StdEncoding.EncodeToString([]byte("hello, I have a meeting"))
	if err := conn.WriteJSON(map[string]string{"audio_segment": segment}); err != nil {
		t.Fatalf("failed to send audio segment: %v", err)
	}

	reply := readFrame(t, conn)
	if reply["sample_rate"].(float64) != 24000 {
		t.Errorf("expected sample_rate 24000, got %v", reply["sample_rate"])
	}
	if reply["modality"] != "audio_only" {
		t.Errorf("expected modality audio_only, got %v", reply["modality"])
	}
	if reply["audio"] == "" {
		t.Error("expected non-empty audio payload")
	}

	// Malformed JSON gets an error frame but keeps the session alive.
	if err := conn.WriteMessage(gws.TextMessage, []byte("{broken")); err != nil {
		t.Fatalf("failed to send malformed frame: %v", err)
	}
	errFrame := readFrame(t, conn)
	if errFrame["error"] != "Invalid JSON format" {
		t.Errorf("unexpected error frame: %v", errFrame)
	}

	// Stats reflect the accepted segment and the live connection.
	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer resp.Body.Close()
	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.AudioSegmentsReceived < 1 {
		t.Errorf("expected at least one segment recorded, got %d", stats.AudioSegmentsReceived)
	}
	if stats.ActiveConnections != 1 {
		t.Errorf("expected one active connection, got %d", stats.ActiveConnections)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.SessionCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("expected session released after disconnect, %d still live", registry.SessionCount())
}
