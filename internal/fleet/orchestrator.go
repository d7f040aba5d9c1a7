package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/blink-sync-core/internal/audit"
	"github.com/nerrad567/blink-sync-core/internal/cloud"
	"github.com/nerrad567/blink-sync-core/internal/command"
	"github.com/nerrad567/blink-sync-core/internal/device"
)

const (
	defaultPollInterval = 30 * time.Second
	cameraFanOutLimit   = 4
	motionLookback      = 24 * time.Hour
)

// API is the subset of the cloud client the orchestrator uses.
type API interface {
	Homescreen(ctx context.Context, maxAge time.Duration) (*cloud.Homescreen, error)
	AccountOptions(ctx context.Context, maxAge time.Duration) (map[string]any, error)
	NotificationConfig(ctx context.Context, maxAge time.Duration) (*cloud.NotificationConfig, error)
	UpdateNotificationConfig(ctx context.Context, cfg cloud.NotificationConfig) error

	CameraConfig(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (*cloud.CameraConfig, error)
	CameraSignals(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (*cloud.Signals, error)
	CameraStatus(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (map[string]any, error)
	MotionRegions(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (*cloud.MotionRegions, error)
	OwlConfig(ctx context.Context, networkID, owlID int64, maxAge time.Duration) (*cloud.OwlConfig, error)

	ArmNetwork(ctx context.Context, networkID int64) (*cloud.Command, error)
	DisarmNetwork(ctx context.Context, networkID int64) (*cloud.Command, error)
	EnableCameraMotion(ctx context.Context, networkID, cameraID int64) (*cloud.Command, error)
	DisableCameraMotion(ctx context.Context, networkID, cameraID int64) (*cloud.Command, error)
	UpdateOwlConfig(ctx context.Context, networkID, owlID int64, enabled bool) (*cloud.Command, error)

	RequestThumbnail(ctx context.Context, networkID, cameraID int64) (*cloud.Command, error)
	RequestOwlThumbnail(ctx context.Context, networkID, owlID int64) (*cloud.Command, error)
	RequestClip(ctx context.Context, networkID, cameraID int64) (*cloud.Command, error)
	LiveView(ctx context.Context, networkID, cameraID int64) (*cloud.LiveView, error)
	OwlLiveView(ctx context.Context, networkID, owlID int64) (*cloud.LiveView, error)

	MediaChanged(ctx context.Context, since time.Time, page int, maxAge time.Duration) (*cloud.MediaList, error)
	DeleteMedia(ctx context.Context, ids []int64) error
	Download(ctx context.Context, path string) ([]byte, error)

	Programs(ctx context.Context, networkID int64, maxAge time.Duration) ([]cloud.Program, error)
	EnableProgram(ctx context.Context, networkID, programID int64) error
	DisableProgram(ctx context.Context, networkID, programID int64) error
	DeleteProgram(ctx context.Context, networkID, programID int64) error
	Sirens(ctx context.Context, maxAge time.Duration) ([]cloud.Siren, error)
	ActivateSirens(ctx context.Context, networkID int64) (*cloud.Command, error)
	DeactivateSirens(ctx context.Context, networkID int64) (*cloud.Command, error)
}

// Runner executes an action through the command protocol.
type Runner interface {
	RunCommand(ctx context.Context, action command.Action) (*cloud.Command, error)
	Cancel(networkID int64)
}

// Logger is the logging interface used by the orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Journal records intents. audit.SQLiteJournal implements it.
type Journal interface {
	Record(ctx context.Context, e *audit.Entry) error
}

// Config holds refresh timing.
type Config struct {
	PollInterval  time.Duration
	SnapshotTTL   time.Duration
	CameraInfoTTL time.Duration
	MediaTTL      time.Duration
}

// Orchestrator owns the refresh cycle and the intents.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Concurrent refreshes are
//     allowed; the registry merge is atomic per snapshot.
type Orchestrator struct {
	api      API
	registry *device.Registry
	runner   Runner
	cfg      Config
	logger   Logger
	journal  Journal
	now      func() time.Time

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New wires an orchestrator and attaches it to the registry as its controller.
func New(api API, registry *device.Registry, runner Runner, cfg Config) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	o := &Orchestrator{
		api:      api,
		registry: registry,
		runner:   runner,
		cfg:      cfg,
		logger:   noopLogger{},
		now:      registry.Settings().Now,
	}
	registry.SetController(o)
	return o
}

// SetLogger sets the logger.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// SetJournal attaches the command journal.
func (o *Orchestrator) SetJournal(j Journal) {
	o.journal = j
}

// Registry returns the device registry.
func (o *Orchestrator) Registry() *device.Registry {
	return o.registry
}

// AddListener registers l for all future events.
func (o *Orchestrator) AddListener(l Listener) {
	o.listenersMu.Lock()
	o.listeners = append(o.listeners, l)
	o.listenersMu.Unlock()
}

func (o *Orchestrator) notify(e Event) {
	if e.Time.IsZero() {
		e.Time = o.now()
	}
	o.listenersMu.RLock()
	listeners := append([]Listener(nil), o.listeners...)
	o.listenersMu.RUnlock()

	for _, l := range listeners {
		l(e)
	}
}

// Run refreshes immediately and then every PollInterval until ctx is done.
// Each poll also captures a new thumbnail on cameras whose last one is
// older than the registry's thumbnail TTL. Failures are logged and the
// loop continues.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.poll(ctx, "initial")

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.poll(ctx, "periodic")
		}
	}
}

func (o *Orchestrator) poll(ctx context.Context, phase string) {
	if err := o.RefreshData(ctx, false); err != nil {
		if ctx.Err() == nil {
			o.logger.Warn(phase+" refresh failed", "error", err)
		}
		return
	}
	if err := o.RefreshCameraThumbnail(ctx, 0, false); err != nil && ctx.Err() == nil {
		o.logger.Warn("stale thumbnail refresh failed", "error", err)
	}
}

// RefreshData pulls the account snapshot (cached for SnapshotTTL unless
// force) and merges it into the registry. Mini cameras are flattened into
// the camera collection and each network is paired with its hub. Full
// cameras then have their config documents fetched in parallel.
func (o *Orchestrator) RefreshData(ctx context.Context, force bool) error {
	maxAge := o.cfg.SnapshotTTL
	if force {
		maxAge = 0
	}

	home, err := o.api.Homescreen(ctx, maxAge)
	if err != nil {
		return fmt.Errorf("refreshing snapshot: %w", err)
	}

	hubs := make(map[int64]*cloud.SyncModule, len(home.SyncModules))
	for i := range home.SyncModules {
		hubs[home.SyncModules[i].NetworkID] = &home.SyncModules[i]
	}

	networks := make([]device.NetworkRecord, 0, len(home.Networks))
	for _, n := range home.Networks {
		networks = append(networks, device.NetworkRecord{Network: n, SyncModule: hubs[n.ID]})
	}

	cameras := make([]device.CameraRecord, 0, len(home.Cameras)+len(home.Owls))
	for _, c := range home.Cameras {
		cameras = append(cameras, device.CameraRecord{Camera: c})
	}
	for _, c := range home.Owls {
		cameras = append(cameras, device.CameraRecord{Camera: c, Mini: true})
	}

	stats := o.registry.Merge(networks, cameras)
	o.logger.Debug("snapshot merged",
		"networks", len(networks),
		"cameras", len(cameras),
		"created", stats.NetworksCreated+stats.CamerasCreated)

	o.refreshCameraInfo(ctx, force)

	o.notify(Event{Kind: EventRefreshed, Stats: &stats})
	return nil
}

// refreshCameraInfo fetches the per-camera documents the snapshot lacks:
// config and signals for full cameras, the config document for mini
// cameras. Failures are logged per camera.
func (o *Orchestrator) refreshCameraInfo(ctx context.Context, force bool) {
	maxAge := o.cfg.CameraInfoTTL
	if force {
		maxAge = 0
	}

	var g errgroup.Group
	g.SetLimit(cameraFanOutLimit)
	for _, cam := range o.registry.Cameras() {
		cam := cam
		if !cam.Present() {
			continue
		}
		if cam.Mini() {
			g.Go(func() error {
				o.refreshOwlInfo(ctx, cam, maxAge)
				return nil
			})
			continue
		}
		g.Go(func() error {
			o.refreshFullCameraInfo(ctx, cam, maxAge)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) refreshFullCameraInfo(ctx context.Context, cam *device.Camera, maxAge time.Duration) {
	cfg, err := o.api.CameraConfig(ctx, cam.NetworkID(), cam.ID(), maxAge)
	if err != nil {
		o.logger.Warn("camera config refresh failed", "camera_id", cam.ID(), "error", err)
		return
	}
	for _, info := range cfg.Camera {
		if info.ID == 0 || info.ID == cam.ID() {
			cam.UpdateInfo(info)
			break
		}
	}

	if cfg.Signals != nil {
		cam.UpdateSignals(*cfg.Signals)
		return
	}
	sig, err := o.api.CameraSignals(ctx, cam.NetworkID(), cam.ID(), maxAge)
	if err != nil {
		o.logger.Debug("camera signals refresh failed", "camera_id", cam.ID(), "error", err)
		return
	}
	cam.UpdateSignals(*sig)
}

func (o *Orchestrator) refreshOwlInfo(ctx context.Context, cam *device.Camera, maxAge time.Duration) {
	cfg, err := o.api.OwlConfig(ctx, cam.NetworkID(), cam.ID(), maxAge)
	if err != nil {
		o.logger.Warn("mini camera config refresh failed", "camera_id", cam.ID(), "error", err)
		return
	}
	if cfg.Signals != nil {
		cam.UpdateSignals(*cfg.Signals)
	}
}

// SetArmedState arms or disarms a network and waits for the command. It is
// the device.Controller hook; callers normally go through
// device.Network.SetArmedState, which skips no-op transitions.
func (o *Orchestrator) SetArmedState(ctx context.Context, networkID int64, armed bool) error {
	intent := "disarm"
	if armed {
		intent = "arm"
	}
	return o.intent(ctx, intent, networkID, 0, func(ctx context.Context) (*cloud.Command, error) {
		if armed {
			return o.api.ArmNetwork(ctx, networkID)
		}
		return o.api.DisarmNetwork(ctx, networkID)
	})
}

// SetCameraMotionSensorState enables or disables motion detection on one camera.
func (o *Orchestrator) SetCameraMotionSensorState(ctx context.Context, cameraID int64, enabled bool) error {
	cam, ok := o.registry.Camera(cameraID)
	if !ok {
		return fmt.Errorf("camera %d: %w", cameraID, device.ErrCameraNotFound)
	}
	networkID, mini := cam.NetworkID(), cam.Mini()

	intent := "motion_disable"
	if enabled {
		intent = "motion_enable"
	}
	return o.intent(ctx, intent, networkID, cameraID, func(ctx context.Context) (*cloud.Command, error) {
		switch {
		case mini:
			return o.api.UpdateOwlConfig(ctx, networkID, cameraID, enabled)
		case enabled:
			return o.api.EnableCameraMotion(ctx, networkID, cameraID)
		default:
			return o.api.DisableCameraMotion(ctx, networkID, cameraID)
		}
	})
}

// intent runs one action through the coordinator, journals it, notifies
// listeners, and reconciles with a forced refresh.
func (o *Orchestrator) intent(ctx context.Context, name string, networkID, cameraID int64, action command.Action) error {
	if err := o.runIntent(ctx, name, networkID, cameraID, action); err != nil {
		return err
	}
	return o.RefreshData(ctx, true)
}

func (o *Orchestrator) runIntent(ctx context.Context, name string, networkID, cameraID int64, action command.Action) error {
	start := o.now()
	cmd, err := o.runner.RunCommand(ctx, action)

	entry := &audit.Entry{
		Intent:    name,
		NetworkID: networkID,
		CameraID:  cameraID,
		Outcome:   outcomeOf(cmd, err),
		Duration:  o.now().Sub(start),
		Source:    sourceFrom(ctx),
	}
	if cmd != nil {
		entry.CommandID = cmd.ID
	}
	if err != nil {
		entry.Error = err.Error()
	}
	o.record(ctx, entry)

	if err != nil {
		o.logger.Error("intent failed", "intent", name, "network_id", networkID, "camera_id", cameraID, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}

	o.logger.Info("intent finished", "intent", name, "network_id", networkID, "camera_id", cameraID,
		"command_id", entry.CommandID, "outcome", entry.Outcome)
	o.notify(Event{
		Kind:      EventIntent,
		Intent:    name,
		NetworkID: networkID,
		CameraID:  cameraID,
		Command:   cmd,
		Outcome:   entry.Outcome,
	})
	return nil
}

func (o *Orchestrator) record(ctx context.Context, e *audit.Entry) {
	if o.journal == nil {
		return
	}
	// A cancelled request still gets its journal row.
	if err := o.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		o.logger.Warn("journal write failed", "intent", e.Intent, "error", err)
	}
}

func outcomeOf(cmd *cloud.Command, err error) string {
	switch {
	case err != nil:
		return audit.OutcomeFailed
	case cmd == nil:
		return audit.OutcomeComplete
	case cmd.Cancelled:
		return audit.OutcomeCancelled
	case cmd.Stopped:
		return audit.OutcomeStopped
	default:
		return audit.OutcomeComplete
	}
}

// RefreshCameraThumbnail asks cameras to capture a new thumbnail. With
// networkID 0 every network is considered. Cameras are skipped unless force
// is set or NeedsThumbnailRefresh reports the last capture as stale.
func (o *Orchestrator) RefreshCameraThumbnail(ctx context.Context, networkID int64, force bool) error {
	return o.captureFanOut(ctx, networkID, force, "thumbnail", func(ctx context.Context, cam *device.Camera) (*cloud.Command, error) {
		if cam.Mini() {
			return o.api.RequestOwlThumbnail(ctx, cam.NetworkID(), cam.ID())
		}
		return o.api.RequestThumbnail(ctx, cam.NetworkID(), cam.ID())
	})
}

// RefreshCameraClip asks cameras to record a clip. Mini cameras cannot and
// are skipped.
func (o *Orchestrator) RefreshCameraClip(ctx context.Context, networkID int64, force bool) error {
	return o.captureFanOut(ctx, networkID, force, "clip", func(ctx context.Context, cam *device.Camera) (*cloud.Command, error) {
		if cam.Mini() {
			return nil, cloud.ErrUnsupported
		}
		return o.api.RequestClip(ctx, cam.NetworkID(), cam.ID())
	})
}

// RequestCameraThumbnail captures a new thumbnail on one camera
// regardless of its staleness.
func (o *Orchestrator) RequestCameraThumbnail(ctx context.Context, cameraID int64) error {
	cam, ok := o.registry.Camera(cameraID)
	if !ok {
		return fmt.Errorf("camera %d: %w", cameraID, device.ErrCameraNotFound)
	}
	return o.intent(ctx, "thumbnail", cam.NetworkID(), cameraID, func(ctx context.Context) (*cloud.Command, error) {
		if cam.Mini() {
			return o.api.RequestOwlThumbnail(ctx, cam.NetworkID(), cameraID)
		}
		return o.api.RequestThumbnail(ctx, cam.NetworkID(), cameraID)
	})
}

// RequestCameraClip records a clip on one camera. Mini cameras return
// cloud.ErrUnsupported.
func (o *Orchestrator) RequestCameraClip(ctx context.Context, cameraID int64) error {
	cam, ok := o.registry.Camera(cameraID)
	if !ok {
		return fmt.Errorf("camera %d: %w", cameraID, device.ErrCameraNotFound)
	}
	if cam.Mini() {
		return fmt.Errorf("camera %d clip: %w", cameraID, cloud.ErrUnsupported)
	}
	return o.intent(ctx, "clip", cam.NetworkID(), cameraID, func(ctx context.Context) (*cloud.Command, error) {
		return o.api.RequestClip(ctx, cam.NetworkID(), cameraID)
	})
}

func (o *Orchestrator) captureFanOut(ctx context.Context, networkID int64, force bool, name string,
	request func(context.Context, *device.Camera) (*cloud.Command, error),
) error {
	var targets []*device.Camera
	for _, cam := range o.registry.Cameras() {
		if networkID != 0 && cam.NetworkID() != networkID {
			continue
		}
		if !cam.Present() {
			continue
		}
		if name == "clip" && cam.Mini() {
			continue
		}
		if force || cam.NeedsThumbnailRefresh() {
			targets = append(targets, cam)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(cameraFanOutLimit)
	for _, cam := range targets {
		cam := cam
		g.Go(func() error {
			err := o.runIntent(ctx, name, cam.NetworkID(), cam.ID(), func(ctx context.Context) (*cloud.Command, error) {
				return request(ctx, cam)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Warn("camera capture failed", "intent", name, "camera_id", cam.ID(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return o.RefreshData(ctx, true)
}

// CameraLastMotion returns the newest motion record for a camera, or nil.
// The media listing is cached for MediaTTL; its since parameter is pinned
// to the start of yesterday so the cache key is stable through the day.
func (o *Orchestrator) CameraLastMotion(ctx context.Context, networkID, cameraID int64) (*cloud.Media, error) {
	since := o.now().UTC().Add(-motionLookback).Truncate(motionLookback)
	list, err := o.api.MediaChanged(ctx, since, 1, o.cfg.MediaTTL)
	if err != nil {
		return nil, err
	}

	var newest *cloud.Media
	for i := range list.Media {
		m := &list.Media[i]
		if m.Deleted || m.DeviceID != cameraID {
			continue
		}
		if networkID != 0 && m.NetworkID != 0 && m.NetworkID != networkID {
			continue
		}
		if newest == nil || m.Created().After(newest.Created()) {
			newest = m
		}
	}
	if newest == nil {
		return nil, nil
	}
	out := *newest
	return &out, nil
}

// FetchMedia downloads media bytes (thumbnails, clips).
func (o *Orchestrator) FetchMedia(ctx context.Context, path string) ([]byte, error) {
	return o.api.Download(ctx, path)
}

// LiveViewURL starts a live-view session and returns the stream server URL.
func (o *Orchestrator) LiveViewURL(ctx context.Context, cameraID int64) (string, error) {
	cam, ok := o.registry.Camera(cameraID)
	if !ok {
		return "", fmt.Errorf("camera %d: %w", cameraID, device.ErrCameraNotFound)
	}

	var (
		lv  *cloud.LiveView
		err error
	)
	if cam.Mini() {
		lv, err = o.api.OwlLiveView(ctx, cam.NetworkID(), cameraID)
	} else {
		lv, err = o.api.LiveView(ctx, cam.NetworkID(), cameraID)
	}
	if err != nil {
		return "", fmt.Errorf("camera %d liveview: %w", cameraID, err)
	}
	if lv.Server == "" {
		return "", fmt.Errorf("camera %d liveview: no server returned", cameraID)
	}
	return lv.Server, nil
}

// CancelCommand abandons the wait on a network's active command. The wait
// observes it at its next poll.
func (o *Orchestrator) CancelCommand(networkID int64) bool {
	if o.registry.ActiveCommand(networkID) == 0 {
		return false
	}
	o.runner.Cancel(networkID)
	return true
}

// Programs lists the schedules of a network.
func (o *Orchestrator) Programs(ctx context.Context, networkID int64) ([]cloud.Program, error) {
	return o.api.Programs(ctx, networkID, o.cfg.SnapshotTTL)
}

// SetProgramEnabled enables or disables a schedule.
func (o *Orchestrator) SetProgramEnabled(ctx context.Context, networkID, programID int64, enabled bool) error {
	if enabled {
		return o.api.EnableProgram(ctx, networkID, programID)
	}
	return o.api.DisableProgram(ctx, networkID, programID)
}

// DeleteProgram removes a schedule.
func (o *Orchestrator) DeleteProgram(ctx context.Context, networkID, programID int64) error {
	return o.api.DeleteProgram(ctx, networkID, programID)
}

// Sirens lists the account's sirens. With networkID 0 all are returned.
func (o *Orchestrator) Sirens(ctx context.Context, networkID int64) ([]cloud.Siren, error) {
	all, err := o.api.Sirens(ctx, o.cfg.SnapshotTTL)
	if err != nil || networkID == 0 {
		return all, err
	}
	out := make([]cloud.Siren, 0, len(all))
	for _, s := range all {
		if s.NetworkID == networkID {
			out = append(out, s)
		}
	}
	return out, nil
}

// SetSirensActive sounds or silences every siren of a network.
func (o *Orchestrator) SetSirensActive(ctx context.Context, networkID int64, active bool) error {
	intent := "sirens_deactivate"
	if active {
		intent = "sirens_activate"
	}
	return o.runIntent(ctx, intent, networkID, 0, func(ctx context.Context) (*cloud.Command, error) {
		if active {
			return o.api.ActivateSirens(ctx, networkID)
		}
		return o.api.DeactivateSirens(ctx, networkID)
	})
}

// CameraStatus returns the raw status document of a full camera.
func (o *Orchestrator) CameraStatus(ctx context.Context, cameraID int64) (map[string]any, error) {
	cam, err := o.fullCamera(cameraID, "status")
	if err != nil {
		return nil, err
	}
	return o.api.CameraStatus(ctx, cam.NetworkID(), cameraID, o.cfg.CameraInfoTTL)
}

// MotionRegions returns the motion detection zones of a full camera.
func (o *Orchestrator) MotionRegions(ctx context.Context, cameraID int64) (*cloud.MotionRegions, error) {
	cam, err := o.fullCamera(cameraID, "motion regions")
	if err != nil {
		return nil, err
	}
	return o.api.MotionRegions(ctx, cam.NetworkID(), cameraID, o.cfg.CameraInfoTTL)
}

func (o *Orchestrator) fullCamera(cameraID int64, what string) (*device.Camera, error) {
	cam, ok := o.registry.Camera(cameraID)
	if !ok {
		return nil, fmt.Errorf("camera %d: %w", cameraID, device.ErrCameraNotFound)
	}
	if cam.Mini() {
		return nil, fmt.Errorf("camera %d %s: %w", cameraID, what, cloud.ErrUnsupported)
	}
	return cam, nil
}

// AccountOptions returns the account options document, cached for SnapshotTTL.
func (o *Orchestrator) AccountOptions(ctx context.Context) (map[string]any, error) {
	return o.api.AccountOptions(ctx, o.cfg.SnapshotTTL)
}

// NotificationConfig returns the account's notification switches.
func (o *Orchestrator) NotificationConfig(ctx context.Context) (*cloud.NotificationConfig, error) {
	return o.api.NotificationConfig(ctx, o.cfg.SnapshotTTL)
}

// UpdateNotificationConfig replaces the account's notification switches.
func (o *Orchestrator) UpdateNotificationConfig(ctx context.Context, cfg cloud.NotificationConfig) error {
	return o.api.UpdateNotificationConfig(ctx, cfg)
}

// DeleteMedia deletes media records. The media listing stays cached for
// up to MediaTTL afterwards.
func (o *Orchestrator) DeleteMedia(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := o.api.DeleteMedia(ctx, ids); err != nil {
		return err
	}
	o.logger.Info("media deleted", "count", len(ids))
	return nil
}
