package influxdb

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

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/servo-switch/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	*httptest.Server

	mu     sync.Mutex
	lines  []string
	query  string
	health int
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()

	f := &fakeInflux{health: http.StatusNoContent}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			f.mu.Lock()
			status := f.health
			f.mu.Unlock()
			w.WriteHeader(status)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
			f.mu.Lock()
			f.query = r.URL.RawQuery
			for _, l := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if l != "" {
					f.lines = append(f.lines, l)
				}
			}
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

// waitLines polls until n lines have arrived.
func (f *fakeInflux) waitLines(t *testing.T, n int) []string {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		f.mu.Lock()
		lines := append([]string(nil), f.lines...)
		f.mu.Unlock()
		if len(lines) >= n {
			return lines
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d lines, want %d", len(lines), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "servoswitch",
		BatchSize:     100,
		FlushInterval: 60,
		DeviceID:      "switch-1",
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	client, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), testConfig("http://127.0.0.1:1"))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	f := newFakeInflux(t)
	f.health = http.StatusServiceUnavailable

	_, err := Connect(context.Background(), testConfig(f.URL))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWritePowerAndEnv(t *testing.T) {
	f := newFakeInflux(t)

	client, err := Connect(context.Background(), testConfig(f.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	client.WritePowerState(2, "api")
	client.WriteEnvSample(21.5, 40)
	client.Flush()

	lines := f.waitLines(t, 2)
	if !strings.HasPrefix(lines[0], "power_state,device_id=switch-1,source=api value=2i ") {
		t.Errorf("power line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "environment,device_id=switch-1 humidity_percent=40,temperature_c=21.5 ") {
		t.Errorf("env line = %q", lines[1])
	}

	f.mu.Lock()
	query := f.query
	f.mu.Unlock()
	if !strings.Contains(query, "bucket=servoswitch") || !strings.Contains(query, "org=home") {
		t.Errorf("write query = %q, want org and bucket", query)
	}
}

func TestClose(t *testing.T) {
	f := newFakeInflux(t)

	client, err := Connect(context.Background(), testConfig(f.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close() = %v, want ErrNotConnected", err)
	}

	// Writes and Flush after Close are dropped.
	client.WritePowerState(1, "api")
	client.Flush()

	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestPointBuilders(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		point *write.Point
		want  string
	}{
		{
			name:  "power",
			point: newPowerPoint("sw", 3, "startup", at),
			want:  "power_state,device_id=sw,source=startup value=3i 1700000000000000000",
		},
		{
			name:  "environment",
			point: newEnvPoint("sw", -1.5, 55, at),
			want:  "environment,device_id=sw humidity_percent=55,temperature_c=-1.5 1700000000000000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.TrimSpace(write.PointToLineProtocol(tt.point, time.Nanosecond)); got != tt.want {
				t.Errorf("line = %q, want %q", got, tt.want)
			}
		})
	}
}
