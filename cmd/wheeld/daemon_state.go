package main

import (
	"time"

	"prizewheel"
)

// DaemonState is the top-level, daemon-owned state container.
//
// It caches what the daemon last observed from the engine so the reducer can
// diff observations into broadcasts, and so snapshots can be published to
// other clients without touching the engine from their goroutines.
type DaemonState struct {
	Items []prizewheel.Item

	Wheel  WheelState
	Lights LightsState
	Stats  SpinStats
}

// WheelState is the daemon's cached view of the engine.
type WheelState struct {
	Current prizewheel.State
	Known   bool
	At      time.Time

	Visible bool

	// LastOutcome is the most recent completed spin, kept across resets.
	LastOutcome *prizewheel.Outcome
}

type LightsState struct {
	On bool
	At time.Time
}

// SpinStats counts spin requests by how the engine answered them.
type SpinStats struct {
	Requested uint64 `json:"requested"`
	Started   uint64 `json:"started"`
	Ignored   uint64 `json:"ignored"`
	Rejected  uint64 `json:"rejected"`
	Completed uint64 `json:"completed"`
	Cancelled uint64 `json:"cancelled"`
}

// NewDaemonState returns the initial state for a wheel with the given items.
func NewDaemonState(items []prizewheel.Item) *DaemonState {
	return &DaemonState{
		Items: append([]prizewheel.Item(nil), items...),
		Lights: LightsState{
			On: true,
		},
	}
}

// SetObservedWheel records an engine snapshot.
func (s *DaemonState) SetObservedWheel(st prizewheel.State, at time.Time) {
	s.Wheel.Current = st
	s.Wheel.Known = true
	s.Wheel.At = at
}

// StateSnapshot is a copy of the daemon state that is safe to hand to other goroutines.
type StateSnapshot struct {
	Wheel       prizewheel.State    `json:"wheel"`
	Visible     bool                `json:"visible"`
	LightsOn    bool                `json:"lights_on"`
	Items       []prizewheel.Item   `json:"items,omitempty"`
	LastOutcome *prizewheel.Outcome `json:"last_outcome,omitempty"`
	Stats       SpinStats           `json:"stats"`
	At          time.Time           `json:"at"`
}

// Snapshot returns a deep copy of the parts of the state exposed to clients.
func (s *DaemonState) Snapshot(at time.Time) StateSnapshot {
	snap := StateSnapshot{
		Wheel:    s.Wheel.Current,
		Visible:  s.Wheel.Visible,
		LightsOn: s.Lights.On,
		Items:    append([]prizewheel.Item(nil), s.Items...),
		Stats:    s.Stats,
		At:       at,
	}
	if s.Wheel.LastOutcome != nil {
		o := *s.Wheel.LastOutcome
		snap.LastOutcome = &o
	}
	return snap
}
