// Package influxdb records camera and network telemetry (battery, temperature,
// signal strength, armed state) to InfluxDB 2.x.
//
// Writes are asynchronous and batched; failures are reported through
// SetOnError rather than returned.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	client.WriteCameraSample(influxdb.CameraSample{CameraID: 7, NetworkID: 1, Armed: true})
package influxdb
