package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openav/stormbridge/internal/infrastructure/config"
	"github.com/openav/stormbridge/internal/infrastructure/influxdb"
)

// fakeInfluxServer answers the two endpoints the client exercises: the ping
// used by Connect and HealthCheck, and the v2 write endpoint. Received line
// protocol is captured for assertions.
type fakeInfluxServer struct {
	mu       sync.Mutex
	lines    []string
	writeErr bool
	srv      *httptest.Server
}

func newFakeInfluxServer(t *testing.T) *fakeInfluxServer {
	t.Helper()

	f := &fakeInfluxServer{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/ping"):
			w.WriteHeader(http.StatusNoContent)
		case strings.HasSuffix(r.URL.Path, "/api/v2/write"):
			f.mu.Lock()
			fail := f.writeErr
			f.mu.Unlock()
			if fail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if line != "" {
					f.lines = append(f.lines, line)
				}
			}
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeInfluxServer) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *fakeInfluxServer) failWrites() {
	f.mu.Lock()
	f.writeErr = true
	f.mu.Unlock()
}

func (f *fakeInfluxServer) config() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           f.srv.URL,
		Token:         "test-token",
		Org:           "openav",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// waitForLines polls until the server has received at least n lines.
func waitForLines(t *testing.T, f *fakeInfluxServer, n int) []string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lines := f.received(); len(lines) >= n {
			return lines
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server received %d lines, want at least %d", len(f.received()), n)
	return nil
}

func TestConnectDisabled(t *testing.T) {
	cfg := config.InfluxDBConfig{Enabled: false}

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	f := newFakeInfluxServer(t)
	cfg := f.config()
	f.srv.Close()

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectZeroBatchSettingsUseDefaults(t *testing.T) {
	f := newFakeInfluxServer(t)
	cfg := f.config()
	cfg.BatchSize = 0
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestWriteMeasurements(t *testing.T) {
	f := newFakeInfluxServer(t)
	client, err := influxdb.Connect(f.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteVolume(-30, 0.5)
	client.WritePowerState("on", true)
	client.WriteConnectivity(false)
	client.WriteCommand("volume", true)
	client.Flush()

	lines := waitForLines(t, f, 4)
	wantSubstrings := []string{
		"volume,zone=main",
		"processor_state,state=on",
		"connectivity,protocol=isp",
		"commands,entity=volume",
	}
	joined := strings.Join(lines, "\n")
	for _, want := range wantSubstrings {
		if !strings.Contains(joined, want) {
			t.Errorf("line protocol missing %q:\n%s", want, joined)
		}
	}
	if !strings.Contains(joined, "connected=0") {
		t.Errorf("connectivity should record connected=0:\n%s", joined)
	}
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	f := newFakeInfluxServer(t)
	client, err := influxdb.Connect(f.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes after close are silently dropped, not queued
	client.WriteVolume(-20, 0.6)
	client.Flush()
	if lines := f.received(); len(lines) != 0 {
		t.Errorf("server received %d lines after close, want 0", len(lines))
	}
}

func TestWriteErrorCallback(t *testing.T) {
	f := newFakeInfluxServer(t)
	client, err := influxdb.Connect(f.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var mu sync.Mutex
	var gotErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		gotErr = err
		mu.Unlock()
	})

	f.failWrites()
	client.WriteVolume(-30, 0.5)
	client.Flush()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := gotErr != nil
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("write error never reached the callback")
}

func TestHealthCheck(t *testing.T) {
	f := newFakeInfluxServer(t)
	client, err := influxdb.Connect(f.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	client.Close()
	if err := client.HealthCheck(ctx); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}
