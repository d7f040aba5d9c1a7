package cloud

import (
	"encoding/json"
	"strings"
	"time"
)

// Homescreen is the full account snapshot.
type Homescreen struct {
	Account     Account      `json:"account"`
	Networks    []Network    `json:"networks"`
	SyncModules []SyncModule `json:"sync_modules"`
	Cameras     []Camera     `json:"cameras"`
	Owls        []Camera     `json:"owls"`
	Sirens      []Siren      `json:"sirens"`
}

// Account identifies the logged-in account.
type Account struct {
	ID     int64  `json:"id"`
	Region string `json:"region"`
}

// Network is a site with one sync module and many cameras.
type Network struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Name      string `json:"name"`
	TimeZone  string `json:"time_zone"`
	Armed     bool   `json:"armed"`
	LVSave    bool   `json:"lv_save"`
}

// SyncModule is the hub paired with a network.
type SyncModule struct {
	ID           int64  `json:"id"`
	NetworkID    int64  `json:"network_id"`
	Name         string `json:"name"`
	Serial       string `json:"serial"`
	FWVersion    string `json:"fw_version"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updated_at"`
	LastHB       string `json:"last_hb"`
	WifiStrength int    `json:"wifi_strength"`
}

// Online reports whether the hub reports itself online.
func (s SyncModule) Online() bool {
	return strings.EqualFold(s.Status, "online")
}

// Camera is a camera entry of the snapshot. Mini cameras ("owls") use the
// same shape with fewer fields populated.
type Camera struct {
	ID        int64    `json:"id"`
	NetworkID int64    `json:"network_id"`
	Name      string   `json:"name"`
	Serial    string   `json:"serial"`
	FWVersion string   `json:"fw_version"`
	Type      string   `json:"type"`
	Enabled   bool     `json:"enabled"`
	Thumbnail string   `json:"thumbnail"`
	Status    string   `json:"status"`
	Battery   string   `json:"battery"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	Signals   *Signals `json:"signals,omitempty"`
}

// Signals are signal strengths in bars, plus temperature in Fahrenheit.
type Signals struct {
	LFR     int `json:"lfr"`
	Wifi    int `json:"wifi"`
	Temp    int `json:"temp"`
	Battery int `json:"battery"`
}

// CameraConfig is the per-camera configuration document.
type CameraConfig struct {
	Camera  []CameraInfo `json:"camera"`
	Signals *Signals     `json:"signals,omitempty"`
}

// CameraInfo carries the raw battery voltage (centivolts) and temperature.
type CameraInfo struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	BatteryVoltage int    `json:"battery_voltage"`
	BatteryState   string `json:"battery_state"`
	Temperature    int    `json:"temperature"`
	MotionAlert    bool   `json:"motion_alert"`
	Thumbnail      string `json:"thumbnail"`
	UpdatedAt      string `json:"updated_at"`
}

// OwlConfig is the mini camera configuration document.
type OwlConfig struct {
	Name      string   `json:"name"`
	Enabled   bool     `json:"enabled"`
	FWVersion string   `json:"fw_version"`
	Status    string   `json:"status"`
	Signals   *Signals `json:"signals,omitempty"`
}

// Command is a server-side asynchronous action descriptor.
type Command struct {
	ID         int64     `json:"id"`
	NetworkID  int64     `json:"network_id"`
	Command    string    `json:"command"`
	Complete   bool      `json:"complete"`
	StatusMsg  string    `json:"status_msg"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Commands   []Command `json:"commands"`

	// Stopped is set locally when a wait timed out and the command was cancelled remotely.
	Stopped bool `json:"-"`
	// Cancelled is set locally when a wait was abandoned through the network's active-command marker.
	Cancelled bool `json:"-"`
}

// UnmarshalJSON accepts both top-level descriptors and the {"commands":[...]}
// envelope returned when an action spawns sub-commands.
func (c *Command) UnmarshalJSON(data []byte) error {
	type plain Command
	var aux struct {
		plain
		Network int64 `json:"network"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Command(aux.plain)
	if c.NetworkID == 0 {
		c.NetworkID = aux.Network
	}
	return nil
}

// MediaList is a page of media records.
type MediaList struct {
	Limit   int     `json:"limit"`
	PurgeID int64   `json:"purge_id"`
	Media   []Media `json:"media"`
}

// Media is a motion clip record.
type Media struct {
	ID         int64  `json:"id"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	Deleted    bool   `json:"deleted"`
	Device     string `json:"device"`
	DeviceID   int64  `json:"device_id"`
	DeviceName string `json:"device_name"`
	NetworkID  int64  `json:"network_id"`
	Type       string `json:"type"`
	Source     string `json:"source"`
	Watched    bool   `json:"watched"`
	Thumbnail  string `json:"thumbnail"`
	Media      string `json:"media"`
}

// Created returns the parsed creation time.
func (m Media) Created() time.Time {
	return ParseTime(m.CreatedAt)
}

// LiveView is the response of a live-view request.
type LiveView struct {
	CommandID       int64  `json:"command_id"`
	Server          string `json:"server"`
	Duration        int    `json:"duration"`
	PollingInterval int    `json:"polling_interval"`
}

// Program is an arming schedule. Schedule is kept raw.
type Program struct {
	ID        int64           `json:"id"`
	NetworkID int64           `json:"network_id"`
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	Schedule  json.RawMessage `json:"schedule,omitempty"`
}

// Siren is a siren accessory attached to a network.
type Siren struct {
	ID        int64  `json:"id"`
	NetworkID int64  `json:"network_id"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	Activated bool   `json:"activated"`
}

// NotificationConfig maps notification kinds to their enabled flag.
type NotificationConfig struct {
	Notifications map[string]bool `json:"notifications"`
}

// MotionRegions holds a camera's detection zones in the service's own grid format.
type MotionRegions struct {
	Regions json.RawMessage `json:"regions"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime parses the API's timestamp formats. Unparseable input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
