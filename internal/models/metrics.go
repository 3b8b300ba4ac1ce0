package models

import "time"

// Metrics is the flat metric name -> value mapping produced by one
// collection cycle.
type Metrics map[string]float64

// Snapshot is the outcome of the latest collection cycle as seen by the
// exporter. When OK is false, Metrics is nil and Error/ErrorCode describe
// why the cycle produced no data.
type Snapshot struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration_ns"`
	OK          bool          `json:"ok"`
	Error       string        `json:"error,omitempty"`
	ErrorCode   string        `json:"error_code,omitempty"`
	Metrics     Metrics       `json:"metrics"`
}
