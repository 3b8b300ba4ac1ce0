// Package models defines the data shared between the zmtalon components.
package models

import "strings"

// TokenPair is the access + refresh token pair issued by ZoneMinder. It is
// always created, persisted and replaced as a unit.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether either token is missing.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" || p.RefreshToken == ""
}

// FunctionNone is the ZoneMinder monitor function for an idle camera.
const FunctionNone = "None"

// MonitorRecord is one camera as reported by /api/monitors.json for a single
// cycle. It is never persisted.
type MonitorRecord struct {
	ID       string
	Name     string
	Function string
	Enabled  bool

	CaptureFPS float64
	// CaptureBandwidth is reported by ZoneMinder in bytes per second and is
	// rendered in kB/s.
	CaptureBandwidth float64

	TotalEvents              int64
	TotalEventDiskSpaceBytes float64
}

// Active reports whether the monitor contributes per-camera series: it must
// be enabled and have a function other than "None".
func (m MonitorRecord) Active() bool {
	return m.Enabled && !strings.EqualFold(m.Function, FunctionNone)
}
