package device

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
)

func TestBatteryPercent(t *testing.T) {
	tests := []struct {
		centivolts int
		want       int
	}{
		{159, 73},
		{158, 71},
		{121, 22},
		{120, 20},
		{100, 20},
		{150, 60},
		{180, 100},
		{200, 100},
	}
	for _, tt := range tests {
		if got := batteryPercent(tt.centivolts); got != tt.want {
			t.Errorf("batteryPercent(%d) = %d, want %d", tt.centivolts, got, tt.want)
		}
	}
}

func TestCamera_Battery(t *testing.T) {
	reg, _, _ := newTestRegistry(true)
	cam, _ := reg.Camera(10)

	if _, ok := cam.Battery(); ok {
		t.Error("Battery() known before config info arrived")
	}

	cam.UpdateInfo(cloud.CameraInfo{ID: 10, BatteryVoltage: 159})
	if pct, ok := cam.Battery(); !ok || pct != 73 {
		t.Errorf("Battery() = %d, %v, want 73, true", pct, ok)
	}

	raw := cam.Raw()
	raw.Battery = "low"
	cam.update(CameraRecord{Camera: raw})
	if !cam.LowBattery() {
		t.Error("LowBattery() = false, want true")
	}
	if pct, ok := cam.Battery(); !ok || pct != 10 {
		t.Errorf("Battery() when low = %d, %v, want 10, true", pct, ok)
	}
}

func TestCamera_ArmedFollowsNetwork(t *testing.T) {
	reg, _, _ := newTestRegistry(false)
	cam, _ := reg.Camera(10)

	if cam.Armed() {
		t.Fatal("Armed() = true on disarmed network")
	}

	reg.Merge(
		[]NetworkRecord{{Network: cloud.Network{ID: 1, Armed: true}}},
		[]CameraRecord{{Camera: cam.Raw()}},
	)
	if !cam.Armed() {
		t.Error("Armed() = false after network armed")
	}

	orphan := newCamera(reg, CameraRecord{Camera: cloud.Camera{ID: 99, NetworkID: 404}})
	if orphan.Armed() {
		t.Error("camera with unknown network reports armed")
	}
}

func TestCamera_TemperatureAndSignals(t *testing.T) {
	reg, _, _ := newTestRegistry(true)
	cam, _ := reg.Camera(10)

	if _, ok := cam.TemperatureC(); ok {
		t.Error("TemperatureC() known without data")
	}

	raw := cam.Raw()
	raw.Signals = &cloud.Signals{Wifi: 4, LFR: 3, Temp: 68}
	cam.update(CameraRecord{Camera: raw})

	if c, ok := cam.TemperatureC(); !ok || c != 20 {
		t.Errorf("TemperatureC() = %v, %v, want 20", c, ok)
	}
	cam.UpdateInfo(cloud.CameraInfo{Temperature: 77})
	if c, ok := cam.TemperatureC(); !ok || c != 25 {
		t.Errorf("TemperatureC() from config = %v, want 25", c)
	}
	if w, ok := cam.WifiStrength(); !ok || w != 4 {
		t.Errorf("WifiStrength() = %d, %v", w, ok)
	}
	if l, ok := cam.LFRStrength(); !ok || l != 3 {
		t.Errorf("LFRStrength() = %d, %v", l, ok)
	}

	cam.update(CameraRecord{Camera: raw, Mini: true})
	if _, ok := cam.LFRStrength(); ok {
		t.Error("mini camera reports LFR strength")
	}
}

func TestCamera_MotionWindow(t *testing.T) {
	T := baseTime
	reg, clock, ctrl := newTestRegistry(true)
	cam, _ := reg.Camera(10)
	network, _ := reg.Network(1)

	network.SetArmedAt(T)
	motionAt := T.Add(30 * time.Second)
	ctrl.motion = &cloud.Media{ID: 1, DeviceID: 10, CreatedAt: ts(motionAt)}

	// The snapshot that reported the motion updated the camera at the same time.
	raw := cam.Raw()
	raw.UpdatedAt = ts(motionAt)
	cam.update(CameraRecord{Camera: raw})

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"before lower bound", -61 * time.Second, false},
		{"at lower bound", -60 * time.Second, true},
		{"at arm time", 0, true},
		{"at motion", 30 * time.Second, true},
		{"at upper bound", 120 * time.Second, true},
		{"after upper bound", 121 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Set(T.Add(tt.offset))
			got, err := cam.MotionDetected(context.Background())
			if err != nil {
				t.Fatalf("MotionDetected() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MotionDetected() at T%+v = %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}

func TestCamera_MotionWindowFallsBackToNetworkUpdate(t *testing.T) {
	reg, clock, ctrl := newTestRegistry(true)
	cam, _ := reg.Camera(10)

	// No local arm time: the network's updated_at (baseTime) anchors the window.
	ctrl.motion = &cloud.Media{CreatedAt: ts(baseTime.Add(10 * time.Second))}
	clock.Set(baseTime.Add(20 * time.Second))

	got, err := cam.MotionDetected(context.Background())
	if err != nil || !got {
		t.Errorf("MotionDetected() = %v, %v, want true", got, err)
	}
}

func TestCamera_MotionShortCircuits(t *testing.T) {
	t.Run("disarmed", func(t *testing.T) {
		reg, _, ctrl := newTestRegistry(false)
		cam, _ := reg.Camera(10)
		ctrl.motion = &cloud.Media{CreatedAt: ts(baseTime)}

		if got, _ := cam.MotionDetected(context.Background()); got {
			t.Error("MotionDetected() = true while disarmed")
		}
		if ctrl.lookups != 0 {
			t.Errorf("lookups = %d, want 0", ctrl.lookups)
		}
	})

	t.Run("stale update", func(t *testing.T) {
		reg, clock, ctrl := newTestRegistry(true)
		cam, _ := reg.Camera(10)
		clock.Set(baseTime.Add(91 * time.Second))

		if got, _ := cam.MotionDetected(context.Background()); got {
			t.Error("MotionDetected() = true after decay")
		}
		if ctrl.lookups != 0 {
			t.Errorf("lookups = %d, want 0", ctrl.lookups)
		}
	})

	t.Run("no motion record", func(t *testing.T) {
		reg, _, ctrl := newTestRegistry(true)
		cam, _ := reg.Camera(10)

		if got, err := cam.MotionDetected(context.Background()); got || err != nil {
			t.Errorf("MotionDetected() = %v, %v, want false, nil", got, err)
		}
		if ctrl.lookups != 1 {
			t.Errorf("lookups = %d, want 1", ctrl.lookups)
		}
	})

	t.Run("lookup error", func(t *testing.T) {
		reg, _, ctrl := newTestRegistry(true)
		cam, _ := reg.Camera(10)
		ctrl.motionErr = errors.New("offline")

		if _, err := cam.MotionDetected(context.Background()); err == nil {
			t.Error("MotionDetected() error = nil, want lookup error")
		}
	})
}

func TestCamera_ThumbnailPlaceholders(t *testing.T) {
	reg, _, ctrl := newTestRegistry(false)
	cam, _ := reg.Camera(10)

	got, err := cam.Thumbnail(context.Background())
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if !bytes.Equal(got, DisabledPlaceholder()) {
		t.Error("disarmed camera did not return the disabled placeholder")
	}

	cam.SetPrivacyMode(true)
	got, _ = cam.Thumbnail(context.Background())
	if !bytes.Equal(got, PrivacyPlaceholder()) {
		t.Error("privacy mode did not return the privacy placeholder")
	}
	if len(ctrl.fetched) != 0 {
		t.Errorf("placeholders triggered fetches: %v", ctrl.fetched)
	}
	if bytes.Equal(DisabledPlaceholder(), PrivacyPlaceholder()) {
		t.Error("placeholders are identical")
	}
}

func TestCamera_ThumbnailCachesOneBlob(t *testing.T) {
	reg, _, ctrl := newTestRegistry(true)
	cam, _ := reg.Camera(10)
	ctx := context.Background()

	first, err := cam.Thumbnail(ctx)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if _, err := cam.Thumbnail(ctx); err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if len(ctrl.fetched) != 1 {
		t.Fatalf("fetches = %v, want one", ctrl.fetched)
	}
	if ctrl.fetched[0] != "/media/e006/camera/10/clip_2026_03_01__11_30AM.jpg" {
		t.Errorf("fetched %q", ctrl.fetched[0])
	}

	// A motion thumbnail newer than the default replaces the cached blob.
	ctrl.motion = &cloud.Media{
		CreatedAt: ts(baseTime),
		Thumbnail: "/media/e006/motion/10/thumb.jpg",
	}
	second, err := cam.Thumbnail(ctx)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("newer motion thumbnail not fetched")
	}
	if cam.CachedThumbnailPath() != "/media/e006/motion/10/thumb.jpg" {
		t.Errorf("cached path = %q", cam.CachedThumbnailPath())
	}

	// An older motion thumbnail loses to the default.
	ctrl.motion.CreatedAt = ts(baseTime.Add(-24 * time.Hour))
	if _, err := cam.Thumbnail(ctx); err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if cam.CachedThumbnailPath() != cam.ThumbnailPath() {
		t.Errorf("cached path = %q, want default", cam.CachedThumbnailPath())
	}
}

func TestCamera_ThumbnailReturnsCopies(t *testing.T) {
	reg, _, ctrl := newTestRegistry(true)
	cam, _ := reg.Camera(10)
	ctx := context.Background()

	first, err := cam.Thumbnail(ctx)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	want := bytes.Clone(first)
	for i := range first {
		first[i] = 0
	}
	second, err := cam.Thumbnail(ctx)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if len(ctrl.fetched) != 1 {
		t.Fatalf("fetches = %v, want one", ctrl.fetched)
	}
	if !bytes.Equal(second, want) {
		t.Error("mutating a returned thumbnail changed the cached blob")
	}

	placeholder := DisabledPlaceholder()
	placeholder[0] ^= 0xFF
	if bytes.Equal(placeholder, DisabledPlaceholder()) {
		t.Error("mutating DisabledPlaceholder() changed the embedded image")
	}
	privacy := PrivacyPlaceholder()
	privacy[0] ^= 0xFF
	if bytes.Equal(privacy, PrivacyPlaceholder()) {
		t.Error("mutating PrivacyPlaceholder() changed the embedded image")
	}
}

func TestCamera_FetchedSignalsWinOverSnapshot(t *testing.T) {
	reg, _, _ := newTestRegistry(true)
	cam, _ := reg.Camera(10)

	raw := cam.Raw()
	raw.Signals = &cloud.Signals{Wifi: 2, LFR: 1, Temp: 50}
	cam.update(CameraRecord{Camera: raw})

	cam.UpdateSignals(cloud.Signals{Wifi: 5, LFR: 4, Temp: 68})
	if w, ok := cam.WifiStrength(); !ok || w != 5 {
		t.Errorf("WifiStrength() = %d, %v, want 5", w, ok)
	}
	if l, ok := cam.LFRStrength(); !ok || l != 4 {
		t.Errorf("LFRStrength() = %d, %v, want 4", l, ok)
	}
	if c, ok := cam.TemperatureC(); !ok || c != 20 {
		t.Errorf("TemperatureC() = %v, %v, want 20", c, ok)
	}

	// A later snapshot does not discard them.
	cam.update(CameraRecord{Camera: raw})
	if w, _ := cam.WifiStrength(); w != 5 {
		t.Errorf("WifiStrength() after merge = %d, want 5", w)
	}
}

func TestCamera_NeedsThumbnailRefresh(t *testing.T) {
	reg, clock, _ := newTestRegistry(true)
	cam, _ := reg.Camera(10)

	// Thumbnail captured 11:30, TTL one hour.
	clock.Set(time.Date(2026, 3, 1, 12, 29, 0, 0, time.UTC))
	if cam.NeedsThumbnailRefresh() {
		t.Error("refresh due before TTL elapsed")
	}
	clock.Set(time.Date(2026, 3, 1, 12, 31, 0, 0, time.UTC))
	if !cam.NeedsThumbnailRefresh() {
		t.Error("refresh not due after TTL elapsed")
	}

	disarmed, clock2, _ := newTestRegistry(false)
	cam2, _ := disarmed.Camera(10)
	clock2.Set(baseTime.Add(48 * time.Hour))
	if cam2.NeedsThumbnailRefresh() {
		t.Error("disarmed camera wants a refresh")
	}
}
