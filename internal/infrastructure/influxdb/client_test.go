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

	"github.com/nerrad567/blink-sync-core/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line-protocol bodies posted to /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeInflux) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (f *fakeInflux) all() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func connectFake(t *testing.T) (*Client, *fakeInflux) {
	t.Helper()

	fake := &fakeInflux{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := Connect(config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "blinksync",
		BatchSize:     10,
		FlushInterval: 60,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, fake
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Org:     "home",
		Bucket:  "blinksync",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteCameraSample(t *testing.T) {
	client, fake := connectFake(t)

	battery := 73
	temp := 21.5
	client.WriteCameraSample(CameraSample{
		CameraID:     7,
		NetworkID:    1,
		Name:         "Porch",
		Enabled:      true,
		Armed:        true,
		BatteryPct:   &battery,
		TemperatureC: &temp,
		Time:         time.Unix(1700000000, 0),
	})
	client.Flush()

	got := fake.all()
	for _, want := range []string{"camera,", "camera_id=7", "network_id=1", "variant=camera", "battery_pct=73i", "temperature_c=21.5", "armed=true"} {
		if !strings.Contains(got, want) {
			t.Errorf("written lines %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "wifi=") {
		t.Errorf("nil wifi reading was written: %q", got)
	}
}

func TestWriteNetworkSample(t *testing.T) {
	client, fake := connectFake(t)

	client.WriteNetworkSample(NetworkSample{NetworkID: 3, Name: "Home", Armed: false, SyncModuleOnline: true})
	client.Flush()

	got := fake.all()
	if !strings.Contains(got, "network,") || !strings.Contains(got, "sync_module_online=true") {
		t.Errorf("written lines = %q", got)
	}
}

func TestWriteAfterClose_NoOp(t *testing.T) {
	client, fake := connectFake(t)
	client.Close()

	client.WriteNetworkSample(NetworkSample{NetworkID: 3})
	client.Flush()

	if got := fake.all(); got != "" {
		t.Errorf("write after Close reached server: %q", got)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestHealthCheck(t *testing.T) {
	client, _ := connectFake(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	var nilClient *Client
	if nilClient.IsConnected() {
		t.Error("nil client reports connected")
	}
}
