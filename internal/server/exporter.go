package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vesaa/zmtalon/internal/metrics"
)

const namespace = "zm"

// Exporter renders the series registry and the latest cycle as Prometheus
// metrics. Only series that received a value in the latest successful cycle
// are emitted; series of vanished or disabled monitors stay registered but
// silent.
type Exporter struct {
	registry *metrics.Registry
	state    *State

	up         *prometheus.Desc
	cycles     *prometheus.Desc
	failures   *prometheus.Desc
	duration   *prometheus.Desc
	registered *prometheus.Desc
	storage    *prometheus.Desc
	disk       *prometheus.Desc
	groups     map[metrics.Group]*prometheus.Desc
}

// NewExporter creates an exporter over registry and state.
func NewExporter(registry *metrics.Registry, state *State) *Exporter {
	camera := []string{"monitor_id", "name"}
	return &Exporter{
		registry: registry,
		state:    state,

		up: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "up"),
			"Whether the last collection cycle returned data.", nil, nil),
		cycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, "collector", "cycles_total"),
			"Collection cycles run.", nil, nil),
		failures: prometheus.NewDesc(prometheus.BuildFQName(namespace, "collector", "failures_total"),
			"Collection cycles that returned no data, by error code.", []string{"code"}, nil),
		duration: prometheus.NewDesc(prometheus.BuildFQName(namespace, "collector", "last_cycle_duration_seconds"),
			"Duration of the last collection cycle.", nil, nil),
		registered: prometheus.NewDesc(prometheus.BuildFQName(namespace, "collector", "cameras_registered"),
			"Cameras with registered series.", nil, nil),
		storage: prometheus.NewDesc(prometheus.BuildFQName(namespace, "storage", "used_percent"),
			"Filesystem usage of the configured storage path.", nil, nil),
		disk: prometheus.NewDesc(prometheus.BuildFQName(namespace, "events", "disk_space_gigabytes"),
			"Disk space used by events across all monitors.", nil, nil),
		groups: map[metrics.Group]*prometheus.Desc{
			metrics.GroupFPS: prometheus.NewDesc(prometheus.BuildFQName(namespace, "camera", "capture_fps"),
				"Capture frame rate.", camera, nil),
			metrics.GroupBandwidth: prometheus.NewDesc(prometheus.BuildFQName(namespace, "camera", "capture_bandwidth_kilobytes_per_second"),
				"Capture bandwidth in kB/s.", camera, nil),
			metrics.GroupEvents: prometheus.NewDesc(prometheus.BuildFQName(namespace, "camera", "events"),
				"Events recorded by the monitor.", camera, nil),
		},
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.up
	ch <- e.cycles
	ch <- e.failures
	ch <- e.duration
	ch <- e.registered
	ch <- e.storage
	ch <- e.disk
	for _, d := range e.groups {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	cycles, failures := e.state.Counters()
	ch <- prometheus.MustNewConstMetric(e.cycles, prometheus.CounterValue, float64(cycles))
	for code, n := range failures {
		ch <- prometheus.MustNewConstMetric(e.failures, prometheus.CounterValue, float64(n), code)
	}
	ch <- prometheus.MustNewConstMetric(e.registered, prometheus.GaugeValue, float64(e.registry.Len()))

	snap, ok := e.state.Snapshot()
	up := 0.0
	if ok && snap.OK {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(e.up, prometheus.GaugeValue, up)
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(e.duration, prometheus.GaugeValue, snap.Duration.Seconds())
	if !snap.OK {
		return
	}

	for _, s := range e.registry.Series() {
		v, present := snap.Metrics[s.Name]
		if !present {
			continue
		}
		if s.Divisor != 0 {
			v /= s.Divisor
		}
		if s.Group == metrics.GroupDisk {
			ch <- prometheus.MustNewConstMetric(e.disk, prometheus.GaugeValue, v)
			continue
		}
		ch <- prometheus.MustNewConstMetric(e.groups[s.Group], prometheus.GaugeValue, v, s.MonitorID, s.Label)
	}
	if v, present := snap.Metrics[metrics.StorageUsedMetric]; present {
		ch <- prometheus.MustNewConstMetric(e.storage, prometheus.GaugeValue, v)
	}
}
