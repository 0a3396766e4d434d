package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openav/stormbridge/internal/bridge"
	"github.com/openav/stormbridge/internal/history"
	"github.com/openav/stormbridge/internal/infrastructure/config"
	"github.com/openav/stormbridge/internal/infrastructure/logging"
)

// mockBridge implements BridgeProvider with canned state.
type mockBridge struct {
	state   map[string]map[string]any
	metrics bridge.Metrics
}

func (m *mockBridge) CurrentState() map[string]map[string]any {
	return m.state
}

func (m *mockBridge) GetMetrics() bridge.Metrics {
	return m.metrics
}

// mockHistory implements HistoryReader with canned entries.
type mockHistory struct {
	entries []history.Entry
	err     error

	lastEntity string
	lastLimit  int
}

func (m *mockHistory) Recent(_ context.Context, entity string, limit int) ([]history.Entry, error) {
	m.lastEntity = entity
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

// testBridge returns a mock bridge with representative published state.
func testBridge() *mockBridge {
	return &mockBridge{
		state: map[string]map[string]any{
			"player": {
				"state": "on",
				"brand": "StormAudio",
				"model": "ISP Elite 16",
			},
			"volume": {
				"level":   0.5,
				"percent": 50,
				"db":      -30.0,
			},
			"source": {
				"selected": "HDMI 1",
				"options":  []string{"HDMI 1", "HDMI 2"},
			},
		},
		metrics: bridge.Metrics{
			Connected: true,
			Ready:     true,
			Status:    "on",
			Entities:  3,
		},
	}
}

// testServer creates a Server backed by mock bridge and history providers.
func testServer(t *testing.T, deps ...func(*Deps)) *Server {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	d := Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  log,
		Bridge:  testBridge(),
		History: &mockHistory{},
		Version: "test",
	}
	for _, fn := range deps {
		fn(&d)
	}

	srv, err := New(d)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(context.Background())

	return srv
}

// doRequest runs a request through the server's router and returns the recorder.
func doRequest(t *testing.T, srv *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(Deps{Bridge: testBridge()})
	if err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestNewRequiresBridge(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	_, err := New(Deps{Logger: log})
	if err == nil {
		t.Error("New() without bridge should fail")
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestStatus(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["connected"] != true {
		t.Errorf("connected = %v, want true", resp["connected"])
	}
	if resp["ready"] != true {
		t.Errorf("ready = %v, want true", resp["ready"])
	}

	entities, ok := resp["entities"].(map[string]any)
	if !ok {
		t.Fatalf("entities missing from response")
	}
	if _, ok := entities["volume"]; !ok {
		t.Error("entities should include volume")
	}
}

func TestGetEntity(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/entities/volume/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["entity"] != "volume" {
		t.Errorf("entity = %v, want volume", resp["entity"])
	}

	state, ok := resp["state"].(map[string]any)
	if !ok {
		t.Fatalf("state missing from response")
	}
	if state["db"] != -30.0 {
		t.Errorf("db = %v, want -30", state["db"])
	}
}

func TestGetEntityUnknown(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/entities/projector/", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetEntityNotYetPublished(t *testing.T) {
	srv := testServer(t)

	// mute is a valid entity but the mock bridge has not published it
	w := doRequest(t, srv, http.MethodGet, "/api/v1/entities/mute/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	state, ok := resp["state"].(map[string]any)
	if !ok {
		t.Fatalf("state missing from response")
	}
	if len(state) != 0 {
		t.Errorf("state = %v, want empty", state)
	}
}

func TestGetEntityHistory(t *testing.T) {
	hist := &mockHistory{
		entries: []history.Entry{
			{ID: 2, Entity: "volume", State: history.State{"db": -24.0}, Source: "processor", CreatedAt: time.Now().UTC()},
			{ID: 1, Entity: "volume", State: history.State{"db": -30.0}, Source: "processor", CreatedAt: time.Now().UTC().Add(-time.Minute)},
		},
	}
	srv := testServer(t, func(d *Deps) { d.History = hist })

	w := doRequest(t, srv, http.MethodGet, "/api/v1/entities/volume/history?limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["count"] != 2.0 {
		t.Errorf("count = %v, want 2", resp["count"])
	}
	if hist.lastEntity != "volume" {
		t.Errorf("queried entity = %q, want volume", hist.lastEntity)
	}
	if hist.lastLimit != 10 {
		t.Errorf("queried limit = %d, want 10", hist.lastLimit)
	}
}

func TestGetEntityHistoryDefaultLimit(t *testing.T) {
	hist := &mockHistory{}
	srv := testServer(t, func(d *Deps) { d.History = hist })

	w := doRequest(t, srv, http.MethodGet, "/api/v1/entities/volume/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if hist.lastLimit != defaultHistoryLimit {
		t.Errorf("limit = %d, want %d", hist.lastLimit, defaultHistoryLimit)
	}
}

func TestGetEntityHistoryInvalidLimit(t *testing.T) {
	srv := testServer(t)

	for _, limit := range []string{"0", "-5", "abc", "9999"} {
		w := doRequest(t, srv, http.MethodGet, "/api/v1/entities/volume/history?limit="+limit, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want %d", limit, w.Code, http.StatusBadRequest)
		}
	}
}

func TestGetEntityHistoryUnavailable(t *testing.T) {
	srv := testServer(t, func(d *Deps) { d.History = nil })

	w := doRequest(t, srv, http.MethodGet, "/api/v1/entities/volume/history", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestGetEntityHistoryRepositoryError(t *testing.T) {
	hist := &mockHistory{err: errors.New("database locked")}
	srv := testServer(t, func(d *Deps) { d.History = hist })

	w := doRequest(t, srv, http.MethodGet, "/api/v1/entities/volume/history", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestEntityCommandWithoutMQTT(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/entities/volume/command",
		`{"command": "set_level", "parameters": {"level": 0.5}}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestEntityCommandUnknownEntity(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/entities/projector/command",
		`{"command": "on"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMetrics(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var metrics SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal metrics: %v", err)
	}

	if metrics.Version != "test" {
		t.Errorf("version = %q, want test", metrics.Version)
	}
	if metrics.Runtime.Goroutines <= 0 {
		t.Error("goroutines should be positive")
	}
	if !metrics.Processor.Connected {
		t.Error("processor connected should be true")
	}
	if metrics.Processor.Entities != 3 {
		t.Errorf("entities = %d, want 3", metrics.Processor.Entities)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}
}

func TestRequestIDPreserved(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	srv := testServer(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"https://panel.local"}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin should not receive CORS headers")
	}
}

func TestNotFound(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── WebSocket Tests ───────────────────────────────────────────────

func TestHubClientCount(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{}, log)

	if hub.ClientCount() != 0 {
		t.Errorf("initial ClientCount = %d, want 0", hub.ClientCount())
	}

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount after register = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount after unregister = %d, want 0", hub.ClientCount())
	}
}

func TestHubBroadcastToSubscribed(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{}, log)

	subscribed := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: map[string]struct{}{WSChannelEntityState: {}},
	}
	unsubscribed := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(subscribed)
	hub.Register(unsubscribed)

	hub.Broadcast(WSChannelEntityState, map[string]any{"entity": "volume"})

	select {
	case data := <-subscribed.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.Type != WSTypeEvent {
			t.Errorf("type = %q, want %q", msg.Type, WSTypeEvent)
		}
		if msg.EventType != WSChannelEntityState {
			t.Errorf("event_type = %q, want %q", msg.EventType, WSChannelEntityState)
		}
	default:
		t.Fatal("subscribed client should receive broadcast")
	}

	select {
	case <-unsubscribed.send:
		t.Fatal("unsubscribed client should not receive broadcast")
	default:
	}
}

func TestHubUnregisterTwice(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{}, log)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)
	hub.Unregister(client)
	// Second unregister must not panic on double channel close
	hub.Unregister(client)
}

func TestWebSocketSubscribeFlow(t *testing.T) {
	srv := testServer(t)

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	// Subscribe to the entity state channel
	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{WSChannelEntityState}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var ack WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read subscribe ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Errorf("ack type = %q, want %q", ack.Type, WSTypeResponse)
	}
	if ack.ID != "sub-1" {
		t.Errorf("ack id = %q, want sub-1", ack.ID)
	}

	// Broadcast a state change and verify delivery
	srv.hub.Broadcast(WSChannelEntityState, map[string]any{"entity": "volume", "state": map[string]any{"db": -24.0}})

	var event WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent {
		t.Errorf("event type = %q, want %q", event.Type, WSTypeEvent)
	}
	if event.EventType != WSChannelEntityState {
		t.Errorf("event_type = %q, want %q", event.EventType, WSChannelEntityState)
	}
}

func TestWebSocketPing(t *testing.T) {
	srv := testServer(t)

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	var pong WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != WSTypePong {
		t.Errorf("type = %q, want %q", pong.Type, WSTypePong)
	}
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	srv := testServer(t)

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	if err := conn.WriteJSON(WSMessage{Type: "bogus", ID: "x"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var errMsg WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&errMsg); err != nil {
		t.Fatalf("read error message: %v", err)
	}
	if errMsg.Type != WSTypeError {
		t.Errorf("type = %q, want %q", errMsg.Type, WSTypeError)
	}
}

func TestParseHistoryLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", defaultHistoryLimit, false},
		{"1", 1, false},
		{"200", 200, false},
		{"201", 0, true},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := parseHistoryLimit(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHistoryLimit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseHistoryLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
