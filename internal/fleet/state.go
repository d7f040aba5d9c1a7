package fleet

import (
	"time"

	"github.com/nerrad567/blink-sync-core/internal/device"
)

// NetworkState is the retained document for a network.
type NetworkState struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Armed            bool       `json:"armed"`
	ArmedAt          *time.Time `json:"armed_at,omitempty"`
	SyncModuleOnline bool       `json:"sync_module_online"`
	ActiveCommand    int64      `json:"active_command,omitempty"`
	Present          bool       `json:"present"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// CameraState is the retained document for a camera. Readings the camera
// does not report are omitted.
type CameraState struct {
	ID           int64      `json:"id"`
	NetworkID    int64      `json:"network_id"`
	Name         string     `json:"name"`
	Type         string     `json:"type,omitempty"`
	Mini         bool       `json:"mini"`
	Enabled      bool       `json:"motion_enabled"`
	Armed        bool       `json:"armed"`
	Privacy      bool       `json:"privacy"`
	Present      bool       `json:"present"`
	BatteryPct   *int       `json:"battery_pct,omitempty"`
	LowBattery   bool       `json:"low_battery"`
	TemperatureC *float64   `json:"temperature_c,omitempty"`
	Wifi         *int       `json:"wifi,omitempty"`
	LFR          *int       `json:"lfr,omitempty"`
	Thumbnail    string     `json:"thumbnail,omitempty"`
	ThumbnailAt  *time.Time `json:"thumbnail_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// NetworkStateOf snapshots n.
func NetworkStateOf(n *device.Network) NetworkState {
	hub, ok := n.SyncModule()
	return NetworkState{
		ID:               n.ID(),
		Name:             n.Name(),
		Armed:            n.Armed(),
		ArmedAt:          optionalTime(n.ArmedAt()),
		SyncModuleOnline: ok && hub.Online(),
		ActiveCommand:    n.ActiveCommand(),
		Present:          n.Present(),
		UpdatedAt:        optionalTime(n.UpdatedAt()),
	}
}

// CameraStateOf snapshots c.
func CameraStateOf(c *device.Camera) CameraState {
	s := CameraState{
		ID:          c.ID(),
		NetworkID:   c.NetworkID(),
		Name:        c.Name(),
		Type:        c.Type(),
		Mini:        c.Mini(),
		Enabled:     c.Enabled(),
		Armed:       c.Armed(),
		Privacy:     c.PrivacyMode(),
		Present:     c.Present(),
		LowBattery:  c.LowBattery(),
		Thumbnail:   c.ThumbnailPath(),
		ThumbnailAt: optionalTime(c.ThumbnailCreatedAt()),
		UpdatedAt:   optionalTime(c.UpdatedAt()),
	}
	if v, ok := c.Battery(); ok {
		s.BatteryPct = &v
	}
	if v, ok := c.TemperatureC(); ok {
		s.TemperatureC = &v
	}
	if v, ok := c.WifiStrength(); ok {
		s.Wifi = &v
	}
	if v, ok := c.LFRStrength(); ok {
		s.LFR = &v
	}
	return s
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
