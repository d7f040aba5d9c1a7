package device

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
)

// Battery voltage range of two alkaline AA cells, mapped linearly onto
// 20-100%. A camera flagged low always reports lowBatteryPercent.
const (
	batteryMinVolts   = 1.2
	batteryMaxVolts   = 1.8
	batteryMinPercent = 20
	batteryMaxPercent = 100
	lowBatteryPercent = 10
)

// CameraState is the set of camera properties computed from loaded data.
// None of these methods perform I/O.
type CameraState interface {
	ID() int64
	NetworkID() int64
	Name() string
	Serial() string
	Firmware() string
	Type() string
	Mini() bool
	Enabled() bool
	Status() string
	Armed() bool
	LowBattery() bool
	Battery() (int, bool)
	TemperatureC() (float64, bool)
	WifiStrength() (int, bool)
	LFRStrength() (int, bool)
	ThumbnailPath() string
	ThumbnailCreatedAt() time.Time
	UpdatedAt() time.Time
	PrivacyMode() bool
	Present() bool
	NeedsThumbnailRefresh() bool
}

// Camera is a full camera or a mini camera.
type Camera struct {
	reg *Registry

	mu      sync.RWMutex
	raw     cloud.Camera
	info    *cloud.CameraInfo
	signals *cloud.Signals
	mini    bool
	present bool
	privacy bool

	thumbMu   sync.Mutex
	thumbPath string
	thumbBlob []byte
}

var (
	_ CameraState = (*Camera)(nil)
	_ CameraProbe = (*Camera)(nil)
)

func newCamera(reg *Registry, rec CameraRecord) *Camera {
	c := &Camera{reg: reg}
	c.update(rec)
	return c
}

// update replaces server-sourced fields. Privacy mode, the config info,
// the fetched signals and the thumbnail cache survive.
func (c *Camera) update(rec CameraRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = rec.Camera
	c.mini = rec.Mini
	c.present = true
}

func (c *Camera) markMissing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.present {
		return false
	}
	c.present = false
	return true
}

// UpdateInfo stores the per-camera config document (battery voltage,
// temperature) fetched separately from the snapshot.
func (c *Camera) UpdateInfo(info cloud.CameraInfo) {
	c.mu.Lock()
	c.info = &info
	c.mu.Unlock()
}

// UpdateSignals stores signal strengths fetched from the camera's own
// signals or config endpoint. They take precedence over the snapshot's.
func (c *Camera) UpdateSignals(s cloud.Signals) {
	c.mu.Lock()
	c.signals = &s
	c.mu.Unlock()
}

// currentSignals must be called with mu held.
func (c *Camera) currentSignals() *cloud.Signals {
	if c.signals != nil {
		return c.signals
	}
	return c.raw.Signals
}

// ID is the cloud-assigned camera id.
func (c *Camera) ID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.ID
}

// NetworkID is the id of the network the camera belongs to.
func (c *Camera) NetworkID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.NetworkID
}

// Name is the user-assigned camera name.
func (c *Camera) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.Name
}

func (c *Camera) Serial() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.Serial
}

// Firmware is the reported firmware version.
func (c *Camera) Firmware() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.FWVersion
}

func (c *Camera) Type() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.Type
}

// Mini reports the battery/Wi-Fi mini camera variant.
func (c *Camera) Mini() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mini
}

// Enabled is the camera's motion-detection flag.
func (c *Camera) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.Enabled
}

// Status is the raw status string from the last snapshot, e.g. "done".
func (c *Camera) Status() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.Status
}

// UpdatedAt is the camera's last server-side update.
func (c *Camera) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloud.ParseTime(c.raw.UpdatedAt)
}

// Present is false once a snapshot no longer lists the camera.
func (c *Camera) Present() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.present
}

// Raw returns a copy of the server-sourced fields.
func (c *Camera) Raw() cloud.Camera {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw
}

// Network returns the parent network.
func (c *Camera) Network() (*Network, bool) {
	return c.reg.Network(c.NetworkID())
}

// Armed is the parent network's armed state. A camera whose network is
// unknown is never armed.
func (c *Camera) Armed() bool {
	n, ok := c.Network()
	return ok && n.Armed()
}

// LowBattery reports the categorical low-battery flag.
func (c *Camera) LowBattery() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strings.EqualFold(c.raw.Battery, "low")
}

// Battery estimates the charge percentage from the battery voltage
// (centivolts). The second result is false when no voltage is known.
func (c *Camera) Battery() (int, bool) {
	if c.LowBattery() {
		return lowBatteryPercent, true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info == nil || c.info.BatteryVoltage <= 0 {
		return 0, false
	}
	return batteryPercent(c.info.BatteryVoltage), true
}

// batteryPercent rounds up over float volts, so a reading whose exact
// percentage is whole may land one higher: 159 centivolts is 52.000...01
// above the floor and reports 73, not 72.
func batteryPercent(centivolts int) int {
	volts := float64(centivolts) / 100
	span := batteryMaxVolts - batteryMinVolts
	pct := math.Ceil((volts-batteryMinVolts)/span*(batteryMaxPercent-batteryMinPercent) + batteryMinPercent)
	return int(math.Max(batteryMinPercent, math.Min(batteryMaxPercent, pct)))
}

// TemperatureC converts the reported Fahrenheit temperature. The config
// document is preferred over signals.
func (c *Camera) TemperatureC() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var f int
	sig := c.currentSignals()
	switch {
	case c.info != nil && c.info.Temperature != 0:
		f = c.info.Temperature
	case sig != nil && sig.Temp != 0:
		f = sig.Temp
	default:
		return 0, false
	}
	celsius := float64(f-32) * 5 / 9
	return math.Round(celsius*10) / 10, true
}

// WifiStrength is the Wi-Fi signal in bars.
func (c *Camera) WifiStrength() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sig := c.currentSignals()
	if sig == nil {
		return 0, false
	}
	return sig.Wifi, true
}

// LFRStrength is the camera-to-hub radio signal in bars. Mini cameras have none.
func (c *Camera) LFRStrength() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sig := c.currentSignals()
	if sig == nil || c.mini {
		return 0, false
	}
	return sig.LFR, true
}

// ThumbnailPath is the server path of the default thumbnail.
func (c *Camera) ThumbnailPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw.Thumbnail
}

// ThumbnailCreatedAt is parsed from the thumbnail path, falling back to the
// camera's UpdatedAt when the path carries no date.
func (c *Camera) ThumbnailCreatedAt() time.Time {
	c.mu.RLock()
	path, updated := c.raw.Thumbnail, c.raw.UpdatedAt
	c.mu.RUnlock()

	if t, ok := ParseThumbnailTime(path); ok {
		return t
	}
	return cloud.ParseTime(updated)
}

// PrivacyMode selects the privacy placeholder instead of the disabled one.
// It is local state and survives refreshes.
func (c *Camera) PrivacyMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.privacy
}

// SetPrivacyMode switches the placeholder served while disarmed.
func (c *Camera) SetPrivacyMode(on bool) {
	c.mu.Lock()
	c.privacy = on
	c.mu.Unlock()
}

// NeedsThumbnailRefresh reports whether an armed, enabled camera's last
// capture is older than the thumbnail TTL.
func (c *Camera) NeedsThumbnailRefresh() bool {
	if !c.Armed() || !c.Enabled() {
		return false
	}
	created := c.ThumbnailCreatedAt()
	if created.IsZero() {
		return true
	}
	return c.reg.now().Sub(created) > c.reg.settings.ThumbnailTTL
}
