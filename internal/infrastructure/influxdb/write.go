package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCamera  = "camera"
	MeasurementNetwork = "network"
)

// CameraSample is one telemetry reading for a camera. Optional readings are
// pointers and omitted from the point when nil.
type CameraSample struct {
	CameraID     int64
	NetworkID    int64
	Name         string
	Mini         bool
	Enabled      bool
	Armed        bool
	BatteryPct   *int
	TemperatureC *float64
	Wifi         *int
	LFR          *int
	Time         time.Time
}

// NetworkSample is one telemetry reading for a network.
type NetworkSample struct {
	NetworkID        int64
	Name             string
	Armed            bool
	SyncModuleOnline bool
	Time             time.Time
}

// WriteCameraSample queues a camera point. It is a no-op when disconnected.
func (c *Client) WriteCameraSample(s CameraSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(cameraPoint(s))
}

// WriteNetworkSample queues a network point. It is a no-op when disconnected.
func (c *Client) WriteNetworkSample(s NetworkSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(networkPoint(s))
}

func cameraPoint(s CameraSample) *write.Point {
	variant := "camera"
	if s.Mini {
		variant = "mini"
	}

	fields := map[string]interface{}{
		"enabled": s.Enabled,
		"armed":   s.Armed,
	}
	if s.BatteryPct != nil {
		fields["battery_pct"] = *s.BatteryPct
	}
	if s.TemperatureC != nil {
		fields["temperature_c"] = *s.TemperatureC
	}
	if s.Wifi != nil {
		fields["wifi"] = *s.Wifi
	}
	if s.LFR != nil {
		fields["lfr"] = *s.LFR
	}

	return write.NewPoint(
		MeasurementCamera,
		map[string]string{
			"camera_id":  strconv.FormatInt(s.CameraID, 10),
			"network_id": strconv.FormatInt(s.NetworkID, 10),
			"name":       s.Name,
			"variant":    variant,
		},
		fields,
		timestampOrNow(s.Time),
	)
}

func networkPoint(s NetworkSample) *write.Point {
	return write.NewPoint(
		MeasurementNetwork,
		map[string]string{
			"network_id": strconv.FormatInt(s.NetworkID, 10),
			"name":       s.Name,
		},
		map[string]interface{}{
			"armed":              s.Armed,
			"sync_module_online": s.SyncModuleOnline,
		},
		timestampOrNow(s.Time),
	)
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
