// Package telemetry exports fleet state to time-series and metrics backends.
//
// Two sinks are provided:
//   - Recorder writes one InfluxDB point per network and camera after every
//     registry refresh (battery, temperature, signal, armed state).
//   - Collector is a Prometheus collector. Entity gauges are computed from
//     the registry at scrape time; cloud client traffic and intent outcomes
//     are accumulated as counters.
//
// Both are fed by fleet events and never call the cloud themselves.
package telemetry
