package device

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
)

const (
	defaultArmedDelay         = 60 * time.Second
	defaultMotionTriggerDecay = 90 * time.Second
	defaultThumbnailTTL       = time.Hour
)

// Logger defines the logging interface used by the Registry.
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

// Controller performs the cloud side of entity operations. The sync
// orchestrator implements it.
type Controller interface {
	SetArmedState(ctx context.Context, networkID int64, armed bool) error
	CameraLastMotion(ctx context.Context, networkID, cameraID int64) (*cloud.Media, error)
	FetchMedia(ctx context.Context, path string) ([]byte, error)
}

// Settings holds the timing that derived state depends on.
type Settings struct {
	// ArmedDelay widens the motion window backwards from the arm time.
	ArmedDelay time.Duration
	// MotionTriggerDecay is how long a motion event keeps a camera triggered.
	MotionTriggerDecay time.Duration
	// ThumbnailTTL is the capture age after which a thumbnail refresh is due.
	ThumbnailTTL time.Duration

	Now func() time.Time
}

// NetworkRecord is one network of a snapshot with its paired hub, if any.
type NetworkRecord struct {
	Network    cloud.Network
	SyncModule *cloud.SyncModule
}

// CameraRecord is one camera of a snapshot.
type CameraRecord struct {
	Camera cloud.Camera
	Mini   bool
}

// MergeStats summarises one Merge.
type MergeStats struct {
	NetworksCreated int
	NetworksUpdated int
	NetworksMissing int
	CamerasCreated  int
	CamerasUpdated  int
	CamerasMissing  int
}

// Registry is the arena of networks and cameras.
//
// All public methods are thread-safe. Entities guard their own fields; the
// registry lock only protects the indexes.
type Registry struct {
	mu           sync.RWMutex
	networks     map[int64]*Network
	networkOrder []int64
	cameras      map[int64]*Camera
	cameraOrder  []int64

	markerMu sync.Mutex
	markers  map[int64]int64

	settings   Settings
	controller Controller
	logger     Logger
}

// NewRegistry creates an empty registry. Zero settings fall back to a 60s
// armed delay, 90s motion decay and one hour thumbnail TTL.
func NewRegistry(settings Settings) *Registry {
	if settings.ArmedDelay <= 0 {
		settings.ArmedDelay = defaultArmedDelay
	}
	if settings.MotionTriggerDecay <= 0 {
		settings.MotionTriggerDecay = defaultMotionTriggerDecay
	}
	if settings.ThumbnailTTL <= 0 {
		settings.ThumbnailTTL = defaultThumbnailTTL
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Registry{
		networks: make(map[int64]*Network),
		cameras:  make(map[int64]*Camera),
		markers:  make(map[int64]int64),
		settings: settings,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetController attaches the orchestrator.
func (r *Registry) SetController(c Controller) {
	r.mu.Lock()
	r.controller = c
	r.mu.Unlock()
}

func (r *Registry) getController() Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.controller
}

// Settings returns the timing settings.
func (r *Registry) Settings() Settings {
	return r.settings
}

func (r *Registry) now() time.Time {
	return r.settings.Now()
}

// Merge folds a snapshot into the arena. Known identifiers are updated in
// place; new ones are created. Entities absent from the snapshot are kept
// but marked not present.
func (r *Registry) Merge(networks []NetworkRecord, cameras []CameraRecord) MergeStats {
	var stats MergeStats

	r.mu.Lock()
	seenNetworks := make(map[int64]bool, len(networks))
	for _, rec := range networks {
		seenNetworks[rec.Network.ID] = true
		if n, ok := r.networks[rec.Network.ID]; ok {
			n.update(rec)
			stats.NetworksUpdated++
			continue
		}
		r.networks[rec.Network.ID] = newNetwork(r, rec)
		r.networkOrder = append(r.networkOrder, rec.Network.ID)
		stats.NetworksCreated++
	}

	seenCameras := make(map[int64]bool, len(cameras))
	for _, rec := range cameras {
		seenCameras[rec.Camera.ID] = true
		if c, ok := r.cameras[rec.Camera.ID]; ok {
			c.update(rec)
			stats.CamerasUpdated++
			continue
		}
		r.cameras[rec.Camera.ID] = newCamera(r, rec)
		r.cameraOrder = append(r.cameraOrder, rec.Camera.ID)
		stats.CamerasCreated++
	}

	var missingNetworks, missingCameras []int64
	for _, id := range r.networkOrder {
		if !seenNetworks[id] && r.networks[id].markMissing() {
			missingNetworks = append(missingNetworks, id)
		}
	}
	for _, id := range r.cameraOrder {
		if !seenCameras[id] && r.cameras[id].markMissing() {
			missingCameras = append(missingCameras, id)
		}
	}
	r.mu.Unlock()

	stats.NetworksMissing = len(missingNetworks)
	stats.CamerasMissing = len(missingCameras)
	if len(missingNetworks) > 0 || len(missingCameras) > 0 {
		r.logger.Warn("devices missing from snapshot",
			"networks", missingNetworks,
			"cameras", missingCameras)
	}
	return stats
}

// Network returns the network with the given ID.
func (r *Registry) Network(id int64) (*Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.networks[id]
	return n, ok
}

// Camera returns the camera with the given ID.
func (r *Registry) Camera(id int64) (*Camera, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cameras[id]
	return c, ok
}

// Networks returns all networks in first-seen order.
func (r *Registry) Networks() []*Network {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Network, 0, len(r.networkOrder))
	for _, id := range r.networkOrder {
		out = append(out, r.networks[id])
	}
	return out
}

// Cameras returns all cameras in first-seen order.
func (r *Registry) Cameras() []*Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Camera, 0, len(r.cameraOrder))
	for _, id := range r.cameraOrder {
		out = append(out, r.cameras[id])
	}
	return out
}

// CamerasInNetwork returns the cameras whose parent is networkID.
func (r *Registry) CamerasInNetwork(networkID int64) []*Camera {
	var out []*Camera
	for _, c := range r.Cameras() {
		if c.NetworkID() == networkID {
			out = append(out, c)
		}
	}
	return out
}

// SetActiveCommand records the command currently awaited on a network.
// Zero clears it, which cancels the wait.
func (r *Registry) SetActiveCommand(networkID, commandID int64) {
	r.markerMu.Lock()
	defer r.markerMu.Unlock()
	if commandID == 0 {
		delete(r.markers, networkID)
		return
	}
	r.markers[networkID] = commandID
}

// ActiveCommand returns the command awaited on a network, or 0.
func (r *Registry) ActiveCommand(networkID int64) int64 {
	r.markerMu.Lock()
	defer r.markerMu.Unlock()
	return r.markers[networkID]
}

// ClearActiveCommand clears the marker only if it still holds commandID.
func (r *Registry) ClearActiveCommand(networkID, commandID int64) bool {
	r.markerMu.Lock()
	defer r.markerMu.Unlock()
	if r.markers[networkID] != commandID {
		return false
	}
	delete(r.markers, networkID)
	return true
}
