// Package server exposes the collected metrics over HTTP with Gin:
//   - GET /metrics      Prometheus exposition of the series registry
//   - GET /api/metrics  latest cycle snapshot as JSON
//   - GET /api/series   registered series with their latest values
//   - GET /healthz      liveness
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vesaa/zmtalon/internal/metrics"
)

// RegisterRoutes wires the exporter endpoints on r.
func RegisterRoutes(r *gin.Engine, registry *metrics.Registry, state *State) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		NewExporter(registry, state),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	{
		api.GET("/metrics", handleSnapshot(state))
		api.GET("/series", handleSeries(registry, state))
	}
}

// handleSnapshot returns the latest cycle outcome. 503 before the first
// cycle has completed.
func handleSnapshot(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := state.Snapshot()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no collection cycle has completed yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": snap})
	}
}

type seriesView struct {
	metrics.Series
	Value *float64 `json:"value"`
}

// handleSeries lists every registered series grouped by chart. Series with
// no value in the latest cycle report a null value.
func handleSeries(registry *metrics.Registry, state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, _ := state.Snapshot()

		byGroup := make(map[metrics.Group][]seriesView, len(metrics.Charts))
		for _, s := range registry.Series() {
			view := seriesView{Series: s}
			if v, ok := snap.Metrics[s.Name]; ok {
				v := v
				view.Value = &v
			}
			byGroup[s.Group] = append(byGroup[s.Group], view)
		}

		charts := make([]gin.H, 0, len(metrics.Charts))
		for _, ch := range metrics.Charts {
			series := byGroup[ch.Group]
			if series == nil {
				series = []seriesView{}
			}
			charts = append(charts, gin.H{
				"group":  ch.Group,
				"title":  ch.Title,
				"units":  ch.Units,
				"type":   ch.Type,
				"series": series,
			})
		}
		c.JSON(http.StatusOK, gin.H{"data": charts})
	}
}
