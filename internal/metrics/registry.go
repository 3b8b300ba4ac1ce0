// Package metrics maps the server-driven monitor list onto a stable set of
// named series and computes the per-cycle metric values.
package metrics

import (
	"sync"
)

// Group identifies one of the four series groups (charts).
type Group string

const (
	GroupFPS       Group = "camera_fps"
	GroupBandwidth Group = "camera_bandwidth"
	GroupEvents    Group = "events"
	GroupDisk      Group = "disk_usage"
)

// Chart describes how a group is presented.
type Chart struct {
	Group Group
	Title string
	Units string
	Type  string // line | stacked | area
}

// Charts lists the groups in display order.
var Charts = []Chart{
	{Group: GroupFPS, Title: "Capture FPS", Units: "FPS", Type: "line"},
	{Group: GroupBandwidth, Title: "Capture Bandwidth", Units: "kB/s", Type: "stacked"},
	{Group: GroupEvents, Title: "Events", Units: "count", Type: "stacked"},
	{Group: GroupDisk, Title: "Disk Space", Units: "GB", Type: "area"},
}

// Metric names.
const (
	DiskSpaceMetric   = "disk_space"
	StorageUsedMetric = "storage_used_percent"
)

// FPSMetric, BandwidthMetric and EventsMetric derive per-monitor metric
// names from the monitor id.
func FPSMetric(id string) string       { return "fps_" + id }
func BandwidthMetric(id string) string { return "bandwidth_" + id }
func EventsMetric(id string) string    { return "events_" + id }

// Series is one named stream of samples.
type Series struct {
	Name      string `json:"name"`
	Group     Group  `json:"group"`
	Label     string `json:"label"`
	MonitorID string `json:"monitor_id,omitempty"`
	// Divisor is applied when rendering: value / Divisor.
	Divisor float64 `json:"divisor"`
}

// CameraSeries are the three series owned by one monitor.
type CameraSeries struct {
	FPS       Series
	Bandwidth Series
	Events    Series
}

// Registry is the append-only set of series for the process lifetime. A
// camera's series are created the first time the monitor is seen active
// and are never removed, even when the monitor later disappears.
type Registry struct {
	mu      sync.RWMutex
	cameras map[string]CameraSeries
	order   []string
	disk    Series
}

// NewRegistry returns a registry holding only the disk usage series.
func NewRegistry() *Registry {
	return &Registry{
		cameras: make(map[string]CameraSeries),
		disk:    Series{Name: DiskSpaceMetric, Group: GroupDisk, Label: "used", Divisor: 1},
	}
}

// Ensure returns the series for monitor id, creating them labelled with name
// on first sight. created reports whether they were new.
func (r *Registry) Ensure(id, name string) (cs CameraSeries, created bool) {
	r.mu.RLock()
	cs, ok := r.cameras[id]
	r.mu.RUnlock()
	if ok {
		return cs, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cs, ok := r.cameras[id]; ok {
		return cs, false
	}
	cs = CameraSeries{
		FPS:       Series{Name: FPSMetric(id), Group: GroupFPS, Label: name, MonitorID: id, Divisor: 1},
		Bandwidth: Series{Name: BandwidthMetric(id), Group: GroupBandwidth, Label: name, MonitorID: id, Divisor: 1024},
		Events:    Series{Name: EventsMetric(id), Group: GroupEvents, Label: name, MonitorID: id, Divisor: 1},
	}
	r.cameras[id] = cs
	r.order = append(r.order, id)
	return cs, true
}

// Camera returns the series registered for monitor id.
func (r *Registry) Camera(id string) (CameraSeries, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs, ok := r.cameras[id]
	return cs, ok
}

// Len returns the number of registered cameras.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Series returns every registered series grouped in Charts order, cameras
// in first-seen order within a group.
func (r *Registry) Series() []Series {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Series, 0, 3*len(r.order)+1)
	for _, id := range r.order {
		out = append(out, r.cameras[id].FPS)
	}
	for _, id := range r.order {
		out = append(out, r.cameras[id].Bandwidth)
	}
	for _, id := range r.order {
		out = append(out, r.cameras[id].Events)
	}
	return append(out, r.disk)
}
