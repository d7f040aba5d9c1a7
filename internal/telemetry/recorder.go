package telemetry

import (
	"time"

	"github.com/nerrad567/blink-sync-core/internal/device"
	"github.com/nerrad567/blink-sync-core/internal/fleet"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/influxdb"
)

// SampleWriter accepts telemetry points. *influxdb.Client implements it.
type SampleWriter interface {
	WriteCameraSample(s influxdb.CameraSample)
	WriteNetworkSample(s influxdb.NetworkSample)
}

// Recorder samples the registry into a SampleWriter.
type Recorder struct {
	writer   SampleWriter
	registry *device.Registry
}

// NewRecorder creates a recorder over registry.
func NewRecorder(writer SampleWriter, registry *device.Registry) *Recorder {
	return &Recorder{writer: writer, registry: registry}
}

// HandleEvent records a sample set after each refresh. It is a fleet.Listener.
func (r *Recorder) HandleEvent(e fleet.Event) {
	if e.Kind != fleet.EventRefreshed {
		return
	}
	r.Record()
}

// Record writes one point per present network and camera.
func (r *Recorder) Record() {
	now := r.registry.Settings().Now()

	for _, n := range r.registry.Networks() {
		if !n.Present() {
			continue
		}
		hub, ok := n.SyncModule()
		r.writer.WriteNetworkSample(influxdb.NetworkSample{
			NetworkID:        n.ID(),
			Name:             n.Name(),
			Armed:            n.Armed(),
			SyncModuleOnline: ok && hub.Online(),
			Time:             now,
		})
	}

	for _, c := range r.registry.Cameras() {
		if !c.Present() {
			continue
		}
		r.writer.WriteCameraSample(cameraSample(c, now))
	}
}

func cameraSample(c *device.Camera, now time.Time) influxdb.CameraSample {
	s := influxdb.CameraSample{
		CameraID:  c.ID(),
		NetworkID: c.NetworkID(),
		Name:      c.Name(),
		Mini:      c.Mini(),
		Enabled:   c.Enabled(),
		Armed:     c.Armed(),
		Time:      now,
	}
	if pct, ok := c.Battery(); ok {
		s.BatteryPct = &pct
	}
	if temp, ok := c.TemperatureC(); ok {
		s.TemperatureC = &temp
	}
	if wifi, ok := c.WifiStrength(); ok {
		s.Wifi = &wifi
	}
	if lfr, ok := c.LFRStrength(); ok {
		s.LFR = &lfr
	}
	return s
}
