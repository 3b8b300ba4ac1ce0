package server

import (
	"sync"

	"github.com/vesaa/zmtalon/internal/models"
)

// State keeps the latest cycle outcome and running counters. It implements
// agent.Sink.
type State struct {
	mu       sync.RWMutex
	snap     models.Snapshot
	has      bool
	cycles   uint64
	failures map[string]uint64
}

// NewState returns an empty State.
func NewState() *State {
	return &State{failures: make(map[string]uint64)}
}

// Publish records a cycle outcome.
func (s *State) Publish(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = snap
	s.has = true
	s.cycles++
	if !snap.OK {
		code := snap.ErrorCode
		if code == "" {
			code = "UNKNOWN"
		}
		s.failures[code]++
	}
}

// Snapshot returns the latest outcome; ok is false before the first cycle.
func (s *State) Snapshot() (snap models.Snapshot, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.has
}

// Counters returns the cycle count and failures per error code.
func (s *State) Counters() (cycles uint64, failures map[string]uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failures = make(map[string]uint64, len(s.failures))
	for k, v := range s.failures {
		failures[k] = v
	}
	return s.cycles, failures
}
