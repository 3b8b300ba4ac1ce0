package metrics

import (
	"github.com/vesaa/zmtalon/internal/models"
)

// BytesPerGB converts ZoneMinder's event disk space (bytes) to GB.
const BytesPerGB = 1073741824

// Reconcile turns one cycle's monitor list into metric values.
//
// Every monitor counts towards disk_space. Only active monitors (enabled,
// function other than None) get fps/bandwidth/events values, and their
// series are registered in reg on first sight. disk_space is always present.
func Reconcile(monitors []models.MonitorRecord, reg *Registry) models.Metrics {
	out := make(models.Metrics, 3*len(monitors)+1)

	var diskBytes float64
	for _, m := range monitors {
		diskBytes += m.TotalEventDiskSpaceBytes
		if !m.Active() {
			continue
		}

		cs, _ := reg.Ensure(m.ID, m.Name)
		out[cs.FPS.Name] = m.CaptureFPS
		out[cs.Bandwidth.Name] = m.CaptureBandwidth
		out[cs.Events.Name] = float64(m.TotalEvents)
	}

	out[DiskSpaceMetric] = diskBytes / BytesPerGB
	return out
}
