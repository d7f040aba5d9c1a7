package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/blink-sync-core/internal/device"
	"github.com/nerrad567/blink-sync-core/internal/fleet"
)

const namespace = "blinksync"

var (
	networkArmedDesc = prometheus.NewDesc(
		namespace+"_network_armed", "Whether the network is armed (1) or disarmed (0).",
		[]string{"network_id", "name"}, nil,
	)
	networkHubOnlineDesc = prometheus.NewDesc(
		namespace+"_network_sync_module_online", "Whether the network's sync module is online.",
		[]string{"network_id"}, nil,
	)
	networkCommandDesc = prometheus.NewDesc(
		namespace+"_network_command_active", "Whether a command is being awaited on the network.",
		[]string{"network_id"}, nil,
	)
	cameraEnabledDesc = prometheus.NewDesc(
		namespace+"_camera_motion_enabled", "Whether motion detection is enabled on the camera.",
		[]string{"camera_id", "network_id", "name", "variant"}, nil,
	)
	cameraBatteryDesc = prometheus.NewDesc(
		namespace+"_camera_battery_percent", "Estimated battery charge.",
		[]string{"camera_id"}, nil,
	)
	cameraTempDesc = prometheus.NewDesc(
		namespace+"_camera_temperature_celsius", "Camera temperature.",
		[]string{"camera_id"}, nil,
	)
	cameraWifiDesc = prometheus.NewDesc(
		namespace+"_camera_wifi_bars", "Wi-Fi signal strength in bars.",
		[]string{"camera_id"}, nil,
	)
	entitiesDesc = prometheus.NewDesc(
		namespace+"_entities", "Known entities by kind and presence in the last snapshot.",
		[]string{"kind", "present"}, nil,
	)
)

// Collector exposes registry gauges and cloud client counters.
//
// Collector implements cloud.Observer so it can be attached with
// cloud.Client.SetObserver, and HandleEvent is a fleet.Listener.
type Collector struct {
	registry *device.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	retries   *prometheus.CounterVec
	cacheHits prometheus.Counter
	logins    prometheus.Counter
	intents   *prometheus.CounterVec
	refreshes prometheus.Counter
}

// NewCollector creates a collector over registry.
func NewCollector(registry *device.Registry) *Collector {
	return &Collector{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cloud_requests_total",
			Help:      "Cloud HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cloud_request_duration_seconds",
			Help:      "Cloud HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cloud_retries_total",
			Help:      "Cloud request retries by reason.",
		}, []string{"reason"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cloud_cache_hits_total",
			Help:      "Responses served from the response cache.",
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cloud_logins_total",
			Help:      "Successful cloud logins.",
		}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Finished intents by name and outcome.",
		}, []string{"intent", "outcome"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Snapshots merged into the registry.",
		}),
	}
}

// ObserveRequest counts one HTTP exchange. status is 0 for transport failures.
func (c *Collector) ObserveRequest(method string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRetry counts one retried request, labelled by reason.
func (c *Collector) ObserveRetry(reason string) {
	c.retries.WithLabelValues(reason).Inc()
}

// ObserveCacheHit counts one response served from the transport cache.
func (c *Collector) ObserveCacheHit() {
	c.cacheHits.Inc()
}

// ObserveLogin counts one successful login.
func (c *Collector) ObserveLogin() {
	c.logins.Inc()
}

// HandleEvent counts refreshes and intent outcomes.
func (c *Collector) HandleEvent(e fleet.Event) {
	switch e.Kind {
	case fleet.EventRefreshed:
		c.refreshes.Inc()
	case fleet.EventIntent:
		c.intents.WithLabelValues(e.Intent, e.Outcome).Inc()
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- networkArmedDesc
	ch <- networkHubOnlineDesc
	ch <- networkCommandDesc
	ch <- cameraEnabledDesc
	ch <- cameraBatteryDesc
	ch <- cameraTempDesc
	ch <- cameraWifiDesc
	ch <- entitiesDesc

	c.requests.Describe(ch)
	c.latency.Describe(ch)
	c.retries.Describe(ch)
	c.cacheHits.Describe(ch)
	c.logins.Describe(ch)
	c.intents.Describe(ch)
	c.refreshes.Describe(ch)
}

// Collect implements prometheus.Collector. Entity gauges are read from the
// registry on every scrape; entities missing from the last snapshot are
// only counted.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counts := map[[2]string]float64{}

	for _, n := range c.registry.Networks() {
		counts[[2]string{"network", strconv.FormatBool(n.Present())}]++
		if !n.Present() {
			continue
		}
		id := strconv.FormatInt(n.ID(), 10)
		ch <- prometheus.MustNewConstMetric(networkArmedDesc, prometheus.GaugeValue, boolValue(n.Armed()), id, n.Name())

		hub, ok := n.SyncModule()
		ch <- prometheus.MustNewConstMetric(networkHubOnlineDesc, prometheus.GaugeValue, boolValue(ok && hub.Online()), id)
		ch <- prometheus.MustNewConstMetric(networkCommandDesc, prometheus.GaugeValue, boolValue(n.ActiveCommand() != 0), id)
	}

	for _, cam := range c.registry.Cameras() {
		counts[[2]string{"camera", strconv.FormatBool(cam.Present())}]++
		if !cam.Present() {
			continue
		}
		id := strconv.FormatInt(cam.ID(), 10)
		variant := "camera"
		if cam.Mini() {
			variant = "mini"
		}
		ch <- prometheus.MustNewConstMetric(cameraEnabledDesc, prometheus.GaugeValue, boolValue(cam.Enabled()),
			id, strconv.FormatInt(cam.NetworkID(), 10), cam.Name(), variant)

		if pct, ok := cam.Battery(); ok {
			ch <- prometheus.MustNewConstMetric(cameraBatteryDesc, prometheus.GaugeValue, float64(pct), id)
		}
		if temp, ok := cam.TemperatureC(); ok {
			ch <- prometheus.MustNewConstMetric(cameraTempDesc, prometheus.GaugeValue, temp, id)
		}
		if wifi, ok := cam.WifiStrength(); ok {
			ch <- prometheus.MustNewConstMetric(cameraWifiDesc, prometheus.GaugeValue, float64(wifi), id)
		}
	}

	for key, n := range counts {
		ch <- prometheus.MustNewConstMetric(entitiesDesc, prometheus.GaugeValue, n, key[0], key[1])
	}

	c.requests.Collect(ch)
	c.latency.Collect(ch)
	c.retries.Collect(ch)
	c.cacheHits.Collect(ch)
	c.logins.Collect(ch)
	c.intents.Collect(ch)
	c.refreshes.Collect(ch)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
