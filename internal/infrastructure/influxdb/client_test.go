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

	"github.com/nerrad567/switchnode/internal/infrastructure/config"
	"github.com/nerrad567/switchnode/internal/infrastructure/influxdb"
)

// fakeInflux answers the ping and write endpoints of the InfluxDB v2 API
// and keeps every line written.
type fakeInflux struct {
	*httptest.Server

	mu        sync.Mutex
	lines     []string
	writeCode int
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()

	f := &fakeInflux{writeCode: http.StatusNoContent}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body) //nolint:errcheck // Test server
			f.mu.Lock()
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if line != "" {
					f.lines = append(f.lines, line)
				}
			}
			code := f.writeCode
			f.mu.Unlock()
			w.WriteHeader(code)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *fakeInflux) config() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           f.URL,
		Token:         "test-token",
		Org:           "switchnode",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connect(t *testing.T, cfg config.InfluxDBConfig) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnect(t *testing.T) {
	client := connect(t, newFakeInflux(t).config())

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := newFakeInflux(t).config()
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := config.InfluxDBConfig{Enabled: true, URL: url, Token: "t", Org: "o", Bucket: "b"}
	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	cfg := newFakeInflux(t).config()
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client := connect(t, cfg)
	if !client.IsConnected() {
		t.Error("IsConnected() = false with default batch settings")
	}
}

func TestWriteParamValue(t *testing.T) {
	fake := newFakeInflux(t)
	client := connect(t, fake.config())

	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client.WriteParamValue("Switch", "Power", "cloud", true, ts)
	client.WriteParamValue("Dispense", "Value", "local", int64(421), ts)
	influxdb.Flush(client)

	lines := fake.written()
	if len(lines) != 2 {
		t.Fatalf("written lines = %q, want 2", lines)
	}
	for _, want := range []string{"param_values,", "device=Switch", "param=Power", "source=cloud", "value=", "1772366400000000000"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line %q missing %q", lines[0], want)
		}
	}
	if !strings.Contains(lines[1], "value=421i") {
		t.Errorf("line %q missing integer field", lines[1])
	}

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

func TestWriteErrorsReachCallback(t *testing.T) {
	fake := newFakeInflux(t)
	fake.writeCode = http.StatusBadRequest
	client := connect(t, fake.config())

	errs := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	client.WriteParamValue("Dispense", "Value", "local", 1.5, time.Now())
	influxdb.Flush(client)

	select {
	case err := <-errs:
		if err == nil {
			t.Error("callback received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for write error callback")
	}
}

func TestClose(t *testing.T) {
	fake := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), fake.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteParamValue("Switch", "Power", "init", false, time.Now())
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if got := len(fake.written()); got != 1 {
		t.Errorf("Close() flushed %d lines, want 1", got)
	}

	// Writes after Close are dropped and a second Close is harmless.
	client.WriteParamValue("Switch", "Power", "init", true, time.Now())
	influxdb.Flush(client)
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() on nil client = true")
	}
}
