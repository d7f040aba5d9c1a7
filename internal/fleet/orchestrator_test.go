package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/audit"
	"github.com/nerrad567/blink-sync-core/internal/cloud"
	"github.com/nerrad567/blink-sync-core/internal/command"
	"github.com/nerrad567/blink-sync-core/internal/device"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeAPI answers every mutating call with a command that completes on the
// first poll.
type fakeAPI struct {
	mu        sync.Mutex
	home      *cloud.Homescreen
	homeAges  []time.Duration
	calls     map[string]int
	infos     map[int64]cloud.CameraInfo
	signals   map[int64]cloud.Signals
	owls      map[int64]cloud.OwlConfig
	notify    cloud.NotificationConfig
	media     []cloud.Media
	deleted   []int64
	armErr    error
	nextCmdID int64
	liveview  string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		home: &cloud.Homescreen{
			Networks: []cloud.Network{
				{ID: 1, Name: "Home", Armed: true, UpdatedAt: "2026-03-01T11:00:00Z"},
				{ID: 2, Name: "Cabin"},
			},
			SyncModules: []cloud.SyncModule{{ID: 500, NetworkID: 1, Status: "online"}},
			Cameras: []cloud.Camera{
				{ID: 10, NetworkID: 1, Name: "Porch", Enabled: true, UpdatedAt: "2026-03-01T11:59:00Z", Thumbnail: "/media/e006/camera/10/clip_2026_03_01__09_00AM"},
				{ID: 11, NetworkID: 1, Name: "Yard", Enabled: true, Thumbnail: "/media/e006/camera/11/clip_2026_03_01__11_50AM"},
				{ID: 20, NetworkID: 2, Name: "Shed", Enabled: true},
			},
			Owls: []cloud.Camera{
				{ID: 30, NetworkID: 1, Name: "Hall", Enabled: true},
			},
		},
		calls:     make(map[string]int),
		infos:     make(map[int64]cloud.CameraInfo),
		signals:   make(map[int64]cloud.Signals),
		owls:      make(map[int64]cloud.OwlConfig),
		nextCmdID: 100,
		liveview:  "rtsps://lv.example.com/stream",
	}
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) newCommand(name string, networkID int64) (*cloud.Command, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	f.nextCmdID++
	return &cloud.Command{ID: f.nextCmdID, NetworkID: networkID}, nil
}

func (f *fakeAPI) Homescreen(_ context.Context, maxAge time.Duration) (*cloud.Homescreen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["homescreen"]++
	f.homeAges = append(f.homeAges, maxAge)
	home := *f.home
	return &home, nil
}

func (f *fakeAPI) CameraConfig(_ context.Context, _, cameraID int64, _ time.Duration) (*cloud.CameraConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[fmt.Sprintf("config:%d", cameraID)]++
	info, ok := f.infos[cameraID]
	if !ok {
		return nil, errors.New("no config")
	}
	return &cloud.CameraConfig{Camera: []cloud.CameraInfo{info}}, nil
}

func (f *fakeAPI) CameraSignals(_ context.Context, _, cameraID int64, _ time.Duration) (*cloud.Signals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[fmt.Sprintf("signals:%d", cameraID)]++
	sig, ok := f.signals[cameraID]
	if !ok {
		return nil, errors.New("no signals")
	}
	return &sig, nil
}

func (f *fakeAPI) OwlConfig(_ context.Context, _, owlID int64, _ time.Duration) (*cloud.OwlConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[fmt.Sprintf("owl_config_get:%d", owlID)]++
	cfg, ok := f.owls[owlID]
	if !ok {
		return nil, errors.New("no owl config")
	}
	return &cfg, nil
}

func (f *fakeAPI) CameraStatus(_ context.Context, _, cameraID int64, _ time.Duration) (map[string]any, error) {
	f.hit(fmt.Sprintf("status:%d", cameraID))
	return map[string]any{"camera_status": map[string]any{"camera_id": float64(cameraID)}}, nil
}

func (f *fakeAPI) MotionRegions(_ context.Context, _, cameraID int64, _ time.Duration) (*cloud.MotionRegions, error) {
	f.hit(fmt.Sprintf("regions:%d", cameraID))
	return &cloud.MotionRegions{Regions: []byte(`[{"x":0}]`)}, nil
}

func (f *fakeAPI) AccountOptions(context.Context, time.Duration) (map[string]any, error) {
	f.hit("options")
	return map[string]any{"doorbell_enabled": false}, nil
}

func (f *fakeAPI) NotificationConfig(context.Context, time.Duration) (*cloud.NotificationConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["notifications"]++
	cfg := f.notify
	return &cfg, nil
}

func (f *fakeAPI) UpdateNotificationConfig(_ context.Context, cfg cloud.NotificationConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["notifications_update"]++
	f.notify = cfg
	return nil
}

func (f *fakeAPI) ArmNetwork(_ context.Context, networkID int64) (*cloud.Command, error) {
	if f.armErr != nil {
		f.hit("arm")
		return nil, f.armErr
	}
	return f.newCommand("arm", networkID)
}

func (f *fakeAPI) DisarmNetwork(_ context.Context, networkID int64) (*cloud.Command, error) {
	return f.newCommand("disarm", networkID)
}

func (f *fakeAPI) EnableCameraMotion(_ context.Context, networkID, _ int64) (*cloud.Command, error) {
	return f.newCommand("motion_enable", networkID)
}

func (f *fakeAPI) DisableCameraMotion(_ context.Context, networkID, _ int64) (*cloud.Command, error) {
	return f.newCommand("motion_disable", networkID)
}

func (f *fakeAPI) UpdateOwlConfig(_ context.Context, networkID, _ int64, enabled bool) (*cloud.Command, error) {
	return f.newCommand(fmt.Sprintf("owl_config:%t", enabled), networkID)
}

func (f *fakeAPI) RequestThumbnail(_ context.Context, networkID, cameraID int64) (*cloud.Command, error) {
	return f.newCommand(fmt.Sprintf("thumbnail:%d", cameraID), networkID)
}

func (f *fakeAPI) RequestOwlThumbnail(_ context.Context, networkID, owlID int64) (*cloud.Command, error) {
	return f.newCommand(fmt.Sprintf("owl_thumbnail:%d", owlID), networkID)
}

func (f *fakeAPI) RequestClip(_ context.Context, networkID, cameraID int64) (*cloud.Command, error) {
	return f.newCommand(fmt.Sprintf("clip:%d", cameraID), networkID)
}

func (f *fakeAPI) LiveView(context.Context, int64, int64) (*cloud.LiveView, error) {
	f.hit("liveview")
	return &cloud.LiveView{Server: f.liveview}, nil
}

func (f *fakeAPI) OwlLiveView(context.Context, int64, int64) (*cloud.LiveView, error) {
	f.hit("owl_liveview")
	return &cloud.LiveView{Server: f.liveview}, nil
}

func (f *fakeAPI) MediaChanged(_ context.Context, _ time.Time, _ int, _ time.Duration) (*cloud.MediaList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["media"]++
	return &cloud.MediaList{Media: append([]cloud.Media(nil), f.media...)}, nil
}

func (f *fakeAPI) DeleteMedia(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["media_delete"]++
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeAPI) Download(_ context.Context, path string) ([]byte, error) {
	f.hit("download")
	return []byte("bytes:" + path), nil
}

func (f *fakeAPI) Command(_ context.Context, networkID, commandID int64) (*cloud.Command, error) {
	f.hit("poll")
	return &cloud.Command{ID: commandID, NetworkID: networkID, Complete: true}, nil
}

func (f *fakeAPI) StopCommand(context.Context, int64, int64) error {
	f.hit("stop")
	return nil
}

func (f *fakeAPI) Programs(context.Context, int64, time.Duration) ([]cloud.Program, error) {
	return []cloud.Program{{ID: 7, Name: "Nights"}}, nil
}

func (f *fakeAPI) EnableProgram(context.Context, int64, int64) error {
	f.hit("program_enable")
	return nil
}

func (f *fakeAPI) DisableProgram(context.Context, int64, int64) error {
	f.hit("program_disable")
	return nil
}

func (f *fakeAPI) DeleteProgram(context.Context, int64, int64) error {
	f.hit("program_delete")
	return nil
}

func (f *fakeAPI) Sirens(context.Context, time.Duration) ([]cloud.Siren, error) {
	return []cloud.Siren{{ID: 3, NetworkID: 1}, {ID: 4, NetworkID: 2}}, nil
}

func (f *fakeAPI) ActivateSirens(_ context.Context, networkID int64) (*cloud.Command, error) {
	return f.newCommand("sirens_on", networkID)
}

func (f *fakeAPI) DeactivateSirens(_ context.Context, networkID int64) (*cloud.Command, error) {
	return f.newCommand("sirens_off", networkID)
}

type memJournal struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (j *memJournal) Record(_ context.Context, e *audit.Entry) error {
	j.mu.Lock()
	j.entries = append(j.entries, *e)
	j.mu.Unlock()
	return nil
}

func (j *memJournal) all() []audit.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]audit.Entry(nil), j.entries...)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeAPI, *memJournal, *eventLog) {
	t.Helper()

	api := newFakeAPI()
	reg := device.NewRegistry(device.Settings{
		ThumbnailTTL: time.Hour,
		Now:          func() time.Time { return baseTime },
	})
	coord := command.New(api, reg, command.Config{PollInterval: time.Millisecond, Timeout: time.Second})
	o := New(api, reg, coord, Config{
		SnapshotTTL:   10 * time.Second,
		CameraInfoTTL: time.Minute,
		MediaTTL:      5 * time.Second,
	})
	journal := &memJournal{}
	o.SetJournal(journal)
	events := &eventLog{}
	o.AddListener(events.listen)

	if err := o.RefreshData(context.Background(), false); err != nil {
		t.Fatalf("RefreshData() error = %v", err)
	}
	return o, api, journal, events
}

func TestRefreshData_MergesSnapshot(t *testing.T) {
	o, _, _, events := newTestOrchestrator(t)
	reg := o.Registry()

	if got := len(reg.Networks()); got != 2 {
		t.Fatalf("networks = %d, want 2", got)
	}
	if got := len(reg.Cameras()); got != 4 {
		t.Fatalf("cameras = %d, want 4", got)
	}

	home, _ := reg.Network(1)
	if hub, ok := home.SyncModule(); !ok || hub.ID != 500 {
		t.Errorf("network 1 hub = %+v, %v; want id 500", hub, ok)
	}
	cabin, _ := reg.Network(2)
	if _, ok := cabin.SyncModule(); ok {
		t.Error("network 2 should have no hub")
	}

	owl, ok := reg.Camera(30)
	if !ok || !owl.Mini() {
		t.Errorf("camera 30 mini = %v, want true", ok && owl.Mini())
	}

	if got := events.kinds(); len(got) != 1 || got[0] != EventRefreshed {
		t.Errorf("events = %v, want [refreshed]", got)
	}
}

func TestRefreshData_ForceBypassesSnapshotCache(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)

	if err := o.RefreshData(context.Background(), true); err != nil {
		t.Fatalf("RefreshData(force) error = %v", err)
	}

	api.mu.Lock()
	ages := append([]time.Duration(nil), api.homeAges...)
	api.mu.Unlock()

	want := []time.Duration{10 * time.Second, 0}
	if len(ages) != len(want) {
		t.Fatalf("homescreen maxAges = %v, want %v", ages, want)
	}
	for i := range want {
		if ages[i] != want[i] {
			t.Errorf("homescreen maxAge[%d] = %v, want %v", i, ages[i], want[i])
		}
	}
}

func TestRefreshData_FetchesCameraInfo(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)
	api.mu.Lock()
	api.infos[10] = cloud.CameraInfo{ID: 10, BatteryVoltage: 159, Temperature: 68}
	api.signals[10] = cloud.Signals{Wifi: 5, LFR: 4}
	api.owls[30] = cloud.OwlConfig{Enabled: true, Signals: &cloud.Signals{Wifi: 3}}
	api.mu.Unlock()

	if err := o.RefreshData(context.Background(), true); err != nil {
		t.Fatalf("RefreshData() error = %v", err)
	}

	if api.count("config:30") != 0 {
		t.Error("mini camera should not use the full camera config endpoint")
	}
	if api.count("owl_config_get:30") == 0 {
		t.Error("mini camera config should be fetched")
	}
	if api.count("config:10") == 0 || api.count("config:20") == 0 {
		t.Error("full camera configs should be fetched")
	}
	// Camera 20 has no config, so its signals are never asked for.
	if api.count("signals:20") != 0 {
		t.Error("signals fetched for a camera whose config failed")
	}

	cam, _ := o.Registry().Camera(10)
	if pct, ok := cam.Battery(); !ok || pct != 73 {
		t.Errorf("Battery() = %d, %v; want 73, true", pct, ok)
	}
	if c, ok := cam.TemperatureC(); !ok || c != 20 {
		t.Errorf("TemperatureC() = %v, %v; want 20, true", c, ok)
	}
	if w, ok := cam.WifiStrength(); !ok || w != 5 {
		t.Errorf("WifiStrength() = %d, %v; want 5, true", w, ok)
	}
	if l, ok := cam.LFRStrength(); !ok || l != 4 {
		t.Errorf("LFRStrength() = %d, %v; want 4, true", l, ok)
	}

	owl, _ := o.Registry().Camera(30)
	if w, ok := owl.WifiStrength(); !ok || w != 3 {
		t.Errorf("mini WifiStrength() = %d, %v; want 3, true", w, ok)
	}
}

func TestRefreshData_ConfigSignalsSkipSignalsEndpoint(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)
	api.mu.Lock()
	api.infos[10] = cloud.CameraInfo{ID: 10}
	api.mu.Unlock()

	// CameraConfig in the fake never carries signals, so wrap it.
	wrapped := &configWithSignals{fakeAPI: api, sig: cloud.Signals{Wifi: 2}}
	o.api = wrapped

	if err := o.RefreshData(context.Background(), true); err != nil {
		t.Fatalf("RefreshData() error = %v", err)
	}
	if api.count("signals:10") != 0 {
		t.Error("signals endpoint used although the config carried signals")
	}
	cam, _ := o.Registry().Camera(10)
	if w, ok := cam.WifiStrength(); !ok || w != 2 {
		t.Errorf("WifiStrength() = %d, %v; want 2, true", w, ok)
	}
}

type configWithSignals struct {
	*fakeAPI
	sig cloud.Signals
}

func (c *configWithSignals) CameraConfig(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (*cloud.CameraConfig, error) {
	cfg, err := c.fakeAPI.CameraConfig(ctx, networkID, cameraID, maxAge)
	if err != nil {
		return nil, err
	}
	sig := c.sig
	cfg.Signals = &sig
	return cfg, nil
}

func TestSetArmedState_RunsCommandAndJournals(t *testing.T) {
	o, api, journal, events := newTestOrchestrator(t)
	ctx := WithSource(context.Background(), "api")

	cabin, _ := o.Registry().Network(2)
	if err := cabin.SetArmedState(ctx, true); err != nil {
		t.Fatalf("SetArmedState() error = %v", err)
	}

	if api.count("arm") != 1 {
		t.Errorf("arm calls = %d, want 1", api.count("arm"))
	}
	if api.count("poll") != 1 {
		t.Errorf("command polls = %d, want 1", api.count("poll"))
	}
	if api.count("homescreen") != 2 {
		t.Errorf("homescreen fetches = %d, want 2 (initial + reconcile)", api.count("homescreen"))
	}
	if o.Registry().ActiveCommand(2) != 0 {
		t.Error("active command marker should be released")
	}

	entries := journal.all()
	if len(entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Intent != "arm" || e.NetworkID != 2 || e.Outcome != audit.OutcomeComplete || e.Source != "api" || e.CommandID != 101 {
		t.Errorf("journal entry = %+v", e)
	}

	kinds := events.kinds()
	want := []EventKind{EventRefreshed, EventIntent, EventRefreshed}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestSetArmedState_FailureIsJournalled(t *testing.T) {
	o, api, journal, _ := newTestOrchestrator(t)
	api.armErr = &cloud.HTTPError{Method: "POST", Path: "/arm", Status: 409, Body: []byte(`{"message":"conflict"}`)}

	err := o.SetArmedState(context.Background(), 2, true)
	if err == nil {
		t.Fatal("SetArmedState() expected error")
	}
	if cloud.StatusOf(err) != 409 {
		t.Errorf("StatusOf(err) = %d, want 409", cloud.StatusOf(err))
	}

	entries := journal.all()
	if len(entries) != 1 || entries[0].Outcome != audit.OutcomeFailed || entries[0].Source != "internal" {
		t.Fatalf("journal = %+v, want one failed internal entry", entries)
	}
	if entries[0].Error == "" {
		t.Error("failed entry should carry the error text")
	}
	if api.count("homescreen") != 1 {
		t.Error("failed intent should not trigger a reconciling refresh")
	}
}

func TestSetCameraMotionSensorState(t *testing.T) {
	tests := []struct {
		name     string
		cameraID int64
		enabled  bool
		wantCall string
	}{
		{name: "enable full camera", cameraID: 10, enabled: true, wantCall: "motion_enable"},
		{name: "disable full camera", cameraID: 10, enabled: false, wantCall: "motion_disable"},
		{name: "enable mini camera", cameraID: 30, enabled: true, wantCall: "owl_config:true"},
		{name: "disable mini camera", cameraID: 30, enabled: false, wantCall: "owl_config:false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, api, journal, _ := newTestOrchestrator(t)

			if err := o.SetCameraMotionSensorState(context.Background(), tt.cameraID, tt.enabled); err != nil {
				t.Fatalf("SetCameraMotionSensorState() error = %v", err)
			}
			if api.count(tt.wantCall) != 1 {
				t.Errorf("%s calls = %d, want 1", tt.wantCall, api.count(tt.wantCall))
			}
			entries := journal.all()
			if len(entries) != 1 || entries[0].CameraID != tt.cameraID {
				t.Errorf("journal = %+v", entries)
			}
		})
	}
}

func TestSetCameraMotionSensorState_UnknownCamera(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	err := o.SetCameraMotionSensorState(context.Background(), 999, true)
	if !errors.Is(err, device.ErrCameraNotFound) {
		t.Errorf("error = %v, want ErrCameraNotFound", err)
	}
}

func TestRefreshCameraThumbnail_OnlyStaleCameras(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)

	// Network 1 is armed. Camera 10's thumbnail is three hours old, camera
	// 11's ten minutes. Network 2 is disarmed.
	if err := o.RefreshCameraThumbnail(context.Background(), 0, false); err != nil {
		t.Fatalf("RefreshCameraThumbnail() error = %v", err)
	}

	if api.count("thumbnail:10") != 1 {
		t.Errorf("stale camera 10 requests = %d, want 1", api.count("thumbnail:10"))
	}
	if api.count("thumbnail:11") != 0 {
		t.Error("fresh camera 11 should not be refreshed")
	}
	if api.count("thumbnail:20") != 0 {
		t.Error("camera in disarmed network should not be refreshed")
	}
	// Mini camera has no thumbnail yet, so it is stale.
	if api.count("owl_thumbnail:30") != 1 {
		t.Errorf("mini camera requests = %d, want 1", api.count("owl_thumbnail:30"))
	}
}

func TestRefreshCameraThumbnail_ForceOneNetwork(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)

	if err := o.RefreshCameraThumbnail(context.Background(), 2, true); err != nil {
		t.Fatalf("RefreshCameraThumbnail() error = %v", err)
	}

	if api.count("thumbnail:20") != 1 {
		t.Errorf("camera 20 requests = %d, want 1", api.count("thumbnail:20"))
	}
	if api.count("thumbnail:10") != 0 || api.count("thumbnail:11") != 0 {
		t.Error("cameras outside network 2 should not be refreshed")
	}
	if api.count("homescreen") != 2 {
		t.Errorf("homescreen fetches = %d, want 2", api.count("homescreen"))
	}
}

func TestRefreshCameraClip_SkipsMini(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)

	if err := o.RefreshCameraClip(context.Background(), 1, true); err != nil {
		t.Fatalf("RefreshCameraClip() error = %v", err)
	}

	if api.count("clip:10") != 1 || api.count("clip:11") != 1 {
		t.Errorf("clip requests = %d/%d, want 1/1", api.count("clip:10"), api.count("clip:11"))
	}
	if api.count("clip:30") != 0 {
		t.Error("mini camera should not be asked for a clip")
	}
}

func TestRefreshCameraThumbnail_NothingDue(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)

	if err := o.RefreshCameraThumbnail(context.Background(), 2, false); err != nil {
		t.Fatalf("RefreshCameraThumbnail() error = %v", err)
	}
	if api.count("homescreen") != 1 {
		t.Error("no refresh expected when no camera was due")
	}
}

func TestCameraLastMotion_PicksNewestMatching(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)
	api.media = []cloud.Media{
		{ID: 1, DeviceID: 10, NetworkID: 1, CreatedAt: "2026-03-01T10:00:00Z"},
		{ID: 2, DeviceID: 10, NetworkID: 1, CreatedAt: "2026-03-01T11:30:00Z"},
		{ID: 3, DeviceID: 10, NetworkID: 1, CreatedAt: "2026-03-01T11:45:00Z", Deleted: true},
		{ID: 4, DeviceID: 11, NetworkID: 1, CreatedAt: "2026-03-01T11:59:00Z"},
		{ID: 5, DeviceID: 10, NetworkID: 2, CreatedAt: "2026-03-01T11:58:00Z"},
	}

	m, err := o.CameraLastMotion(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("CameraLastMotion() error = %v", err)
	}
	if m == nil || m.ID != 2 {
		t.Errorf("CameraLastMotion() = %+v, want media 2", m)
	}

	none, err := o.CameraLastMotion(context.Background(), 1, 20)
	if err != nil || none != nil {
		t.Errorf("CameraLastMotion(no media) = %+v, %v; want nil, nil", none, err)
	}
}

func TestMotionDetected_UsesMediaListing(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)
	api.media = []cloud.Media{
		{ID: 9, DeviceID: 10, NetworkID: 1, CreatedAt: "2026-03-01T11:59:30Z"},
	}

	cam, _ := o.Registry().Camera(10)
	triggered, err := cam.MotionDetected(context.Background())
	if err != nil {
		t.Fatalf("MotionDetected() error = %v", err)
	}
	if !triggered {
		t.Error("MotionDetected() = false, want true for motion 30s ago")
	}
}

func TestLiveViewURL(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)

	url, err := o.LiveViewURL(context.Background(), 10)
	if err != nil {
		t.Fatalf("LiveViewURL() error = %v", err)
	}
	if url != "rtsps://lv.example.com/stream" {
		t.Errorf("LiveViewURL() = %q", url)
	}
	if _, err := o.LiveViewURL(context.Background(), 30); err != nil {
		t.Fatalf("LiveViewURL(mini) error = %v", err)
	}
	if api.count("liveview") != 1 || api.count("owl_liveview") != 1 {
		t.Errorf("liveview calls = %d/%d, want 1/1", api.count("liveview"), api.count("owl_liveview"))
	}

	api.liveview = ""
	if _, err := o.LiveViewURL(context.Background(), 10); err == nil {
		t.Error("LiveViewURL() expected error for empty server")
	}
}

func TestCancelCommand(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	if o.CancelCommand(1) {
		t.Error("CancelCommand() = true with no active command")
	}

	o.Registry().SetActiveCommand(1, 555)
	if !o.CancelCommand(1) {
		t.Error("CancelCommand() = false with an active command")
	}
	if o.Registry().ActiveCommand(1) != 0 {
		t.Error("marker should be cleared")
	}
}

func TestSirensAndPrograms(t *testing.T) {
	o, api, journal, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if err := o.SetSirensActive(ctx, 1, true); err != nil {
		t.Fatalf("SetSirensActive() error = %v", err)
	}
	if api.count("sirens_on") != 1 {
		t.Error("sirens should be activated")
	}
	if entries := journal.all(); len(entries) != 1 || entries[0].Intent != "sirens_activate" {
		t.Errorf("journal = %+v", entries)
	}

	sirens, err := o.Sirens(ctx, 2)
	if err != nil || len(sirens) != 1 || sirens[0].ID != 4 {
		t.Errorf("Sirens(2) = %+v, %v; want siren 4 only", sirens, err)
	}
	if all, _ := o.Sirens(ctx, 0); len(all) != 2 {
		t.Errorf("Sirens(0) = %d sirens, want 2", len(all))
	}

	if err := o.SetProgramEnabled(ctx, 1, 7, false); err != nil {
		t.Fatalf("SetProgramEnabled() error = %v", err)
	}
	if api.count("program_disable") != 1 {
		t.Error("program should be disabled")
	}
	if err := o.DeleteProgram(ctx, 1, 7); err != nil || api.count("program_delete") != 1 {
		t.Errorf("DeleteProgram() error = %v, calls = %d", err, api.count("program_delete"))
	}

	programs, err := o.Programs(ctx, 1)
	if err != nil || len(programs) != 1 {
		t.Errorf("Programs() = %v, %v", programs, err)
	}
}

func TestCameraDocuments(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	status, err := o.CameraStatus(ctx, 10)
	if err != nil || status["camera_status"] == nil {
		t.Errorf("CameraStatus() = %v, %v", status, err)
	}
	regions, err := o.MotionRegions(ctx, 11)
	if err != nil || string(regions.Regions) != `[{"x":0}]` {
		t.Errorf("MotionRegions() = %+v, %v", regions, err)
	}

	if _, err := o.CameraStatus(ctx, 30); !errors.Is(err, cloud.ErrUnsupported) {
		t.Errorf("CameraStatus(mini) error = %v, want ErrUnsupported", err)
	}
	if _, err := o.MotionRegions(ctx, 999); !errors.Is(err, device.ErrCameraNotFound) {
		t.Errorf("MotionRegions(unknown) error = %v, want ErrCameraNotFound", err)
	}
	if api.count("status:30") != 0 || api.count("regions:999") != 0 {
		t.Error("rejected lookups reached the cloud")
	}
}

func TestAccountDocumentsAndMedia(t *testing.T) {
	o, api, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	opts, err := o.AccountOptions(ctx)
	if err != nil || opts["doorbell_enabled"] != false {
		t.Errorf("AccountOptions() = %v, %v", opts, err)
	}

	want := cloud.NotificationConfig{Notifications: map[string]bool{"motion": true, "low_battery": false}}
	if err := o.UpdateNotificationConfig(ctx, want); err != nil {
		t.Fatalf("UpdateNotificationConfig() error = %v", err)
	}
	got, err := o.NotificationConfig(ctx)
	if err != nil {
		t.Fatalf("NotificationConfig() error = %v", err)
	}
	if !got.Notifications["motion"] || got.Notifications["low_battery"] {
		t.Errorf("NotificationConfig() = %+v", got)
	}

	if err := o.DeleteMedia(ctx, nil); err != nil || api.count("media_delete") != 0 {
		t.Errorf("DeleteMedia(nil) error = %v, calls = %d", err, api.count("media_delete"))
	}
	if err := o.DeleteMedia(ctx, []int64{5, 6}); err != nil {
		t.Fatalf("DeleteMedia() error = %v", err)
	}
	api.mu.Lock()
	deleted := append([]int64(nil), api.deleted...)
	api.mu.Unlock()
	if len(deleted) != 2 || deleted[0] != 5 || deleted[1] != 6 {
		t.Errorf("deleted = %v, want [5 6]", deleted)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	api := newFakeAPI()
	reg := device.NewRegistry(device.Settings{})
	coord := command.New(api, reg, command.Config{PollInterval: time.Millisecond})
	o := New(api, reg, coord, Config{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for api.count("homescreen") < 3 {
		select {
		case <-deadline:
			t.Fatalf("homescreen fetches = %d, want >= 3", api.count("homescreen"))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRun_CapturesStaleThumbnails(t *testing.T) {
	api := newFakeAPI()
	reg := device.NewRegistry(device.Settings{
		ThumbnailTTL: time.Hour,
		Now:          func() time.Time { return baseTime },
	})
	coord := command.New(api, reg, command.Config{PollInterval: time.Millisecond, Timeout: time.Second})
	o := New(api, reg, coord, Config{PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	// The capture is followed by a forced refresh, so two snapshot fetches.
	for api.count("thumbnail:10") == 0 || api.count("owl_thumbnail:30") == 0 || api.count("homescreen") < 2 {
		select {
		case <-deadline:
			t.Fatalf("stale cameras not captured: thumbnail:10=%d owl_thumbnail:30=%d homescreen=%d",
				api.count("thumbnail:10"), api.count("owl_thumbnail:30"), api.count("homescreen"))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if api.count("thumbnail:11") != 0 {
		t.Error("fresh camera 11 should not be captured")
	}
	if api.count("thumbnail:20") != 0 {
		t.Error("camera in disarmed network should not be captured")
	}
}

func TestRequestCameraClip(t *testing.T) {
	o, api, journal, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if err := o.RequestCameraClip(ctx, 11); err != nil {
		t.Fatalf("RequestCameraClip() error = %v", err)
	}
	if api.count("clip:11") != 1 {
		t.Errorf("clip requests = %d, want 1", api.count("clip:11"))
	}
	if entries := journal.all(); len(entries) != 1 || entries[0].Intent != "clip" || entries[0].CameraID != 11 {
		t.Errorf("journal = %+v", entries)
	}

	if err := o.RequestCameraClip(ctx, 30); !errors.Is(err, cloud.ErrUnsupported) {
		t.Errorf("RequestCameraClip(mini) error = %v, want ErrUnsupported", err)
	}
	if err := o.RequestCameraThumbnail(ctx, 999); !errors.Is(err, device.ErrCameraNotFound) {
		t.Errorf("RequestCameraThumbnail(unknown) error = %v, want ErrCameraNotFound", err)
	}
}
