package main

import (
	"time"

	"prizewheel"
)

// This file implements the reducer-style architecture building blocks:
//
//   - Events: inputs to the reducer (user actions, engine observations, lights)
//   - Commands: side effects requested by the reducer (engine calls, replies)
//   - Broadcasts: externally visible state changes for the websocket stream
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// The daemon loop is responsible for executing Commands and feeding observations back as Events.

// ==============================
// Events
// ==============================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// TimedEvent wraps a payload event with the time the daemon received it.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// WheelObserved carries an engine snapshot read after the engine signalled a change.
type WheelObserved struct {
	State prizewheel.State
	At    time.Time
}

func (WheelObserved) eventMarker() {}

// SpinAccepted is emitted when the engine started a spin for a CmdSpin.
type SpinAccepted struct {
	State  prizewheel.State
	Origin string
	Forced bool
	Reply  chan<- SpinReply
	At     time.Time
}

func (SpinAccepted) eventMarker() {}

// SpinIgnored is emitted when a CmdSpin arrived while a spin was in flight.
type SpinIgnored struct {
	Origin string
	Reply  chan<- SpinReply
	At     time.Time
}

func (SpinIgnored) eventMarker() {}

// SpinRejected is emitted when the engine refused a CmdSpin with an error.
type SpinRejected struct {
	Err    error
	Origin string
	Reply  chan<- SpinReply
	At     time.Time
}

func (SpinRejected) eventMarker() {}

// SpinCompleted is emitted once per finished spin.
type SpinCompleted struct {
	Outcome prizewheel.Outcome
	At      time.Time
}

func (SpinCompleted) eventMarker() {}

// VisibilityObserved is emitted after the engine was activated or deactivated.
type VisibilityObserved struct {
	Visible bool
	At      time.Time
}

func (VisibilityObserved) eventMarker() {}

// LightsObserved is emitted on every border light toggle.
type LightsObserved struct {
	On bool
	At time.Time
}

func (LightsObserved) eventMarker() {}

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a state change published to websocket clients.
type StateBroadcast interface {
	broadcastMarker()
}

type BroadcastSpinStarted struct {
	SpinID string
	Target float64
	Origin string
	At     time.Time
}

func (BroadcastSpinStarted) broadcastMarker() {}

type BroadcastRotation struct {
	SpinID   string
	Rotation float64
	At       time.Time
}

func (BroadcastRotation) broadcastMarker() {}

type BroadcastSpinFinished struct {
	SpinID   string
	Result   string
	Index    int
	Rotation float64
	At       time.Time
}

func (BroadcastSpinFinished) broadcastMarker() {}

type BroadcastReset struct {
	At time.Time
}

func (BroadcastReset) broadcastMarker() {}

type BroadcastVisibility struct {
	Visible bool
	At      time.Time
}

func (BroadcastVisibility) broadcastMarker() {}

type BroadcastLights struct {
	On bool
	At time.Time
}

func (BroadcastLights) broadcastMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce(): next state, Commands to execute and
// Broadcasts to publish.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not touch the engine; it only requests Commands
func Reduce(s *DaemonState, e Event) ReduceResult {
	if s == nil {
		s = &DaemonState{}
	}

	var cmds []Command
	var bcasts []StateBroadcast

	switch ev := e.(type) {
	case TimedEvent:
		switch a := ev.Event.(type) {
		case SpinRequested:
			s.Stats.Requested++
			cmds = append(cmds, CmdSpin{Winner: a.Winner, Origin: a.Origin, Reply: a.Reply})

		case ActivateWheel:
			cmds = append(cmds, CmdActivate{})

		case DeactivateWheel:
			cmds = append(cmds, CmdDeactivate{})

		case RequestStateSnapshot:
			if a.Reply != nil {
				cmds = append(cmds, CmdPublishStateSnapshot{
					Reply:    a.Reply,
					Snapshot: s.Snapshot(ev.At),
				})
			}

		default:
			// no-op
		}

	case SpinAccepted:
		s.Stats.Started++
		s.SetObservedWheel(ev.State, ev.At)
		bcasts = append(bcasts, BroadcastSpinStarted{
			SpinID: ev.State.SpinID,
			Target: ev.State.Target,
			Origin: ev.Origin,
			At:     ev.At,
		})
		if ev.Reply != nil {
			cmds = append(cmds, CmdReplySpin{Reply: ev.Reply, Value: SpinReply{Started: true, State: ev.State}})
		}

	case SpinIgnored:
		s.Stats.Ignored++
		if ev.Reply != nil {
			cmds = append(cmds, CmdReplySpin{Reply: ev.Reply, Value: SpinReply{Started: false, State: s.Wheel.Current}})
		}

	case SpinRejected:
		s.Stats.Rejected++
		if ev.Reply != nil {
			cmds = append(cmds, CmdReplySpin{Reply: ev.Reply, Value: SpinReply{Err: ev.Err, State: s.Wheel.Current}})
		}

	case WheelObserved:
		prev := s.Wheel.Current
		next := ev.State
		s.SetObservedWheel(next, ev.At)

		switch {
		case next == (prizewheel.State{}) && prev != (prizewheel.State{}):
			if prev.Spinning {
				s.Stats.Cancelled++
			}
			bcasts = append(bcasts, BroadcastReset{At: ev.At})

		case next.Spinning && next.SpinID != prev.SpinID:
			bcasts = append(bcasts, BroadcastSpinStarted{SpinID: next.SpinID, Target: next.Target, At: ev.At})

		case next.Spinning && next.Rotation != prev.Rotation:
			bcasts = append(bcasts, BroadcastRotation{SpinID: next.SpinID, Rotation: next.Rotation, At: ev.At})
		}

	case SpinCompleted:
		o := ev.Outcome
		s.Stats.Completed++
		s.Wheel.LastOutcome = &o

		// A newer spin may already be current if the completion raced a request.
		if cur := s.Wheel.Current; cur.SpinID == o.SpinID {
			cur.Rotation = o.Rotation
			cur.Spinning = false
			cur.Result = o.Label
			cur.Index = o.Index
			s.SetObservedWheel(cur, ev.At)
		}

		bcasts = append(bcasts, BroadcastSpinFinished{
			SpinID:   o.SpinID,
			Result:   o.Label,
			Index:    o.Index,
			Rotation: o.Rotation,
			At:       ev.At,
		})

	case VisibilityObserved:
		if s.Wheel.Visible != ev.Visible {
			s.Wheel.Visible = ev.Visible
			bcasts = append(bcasts, BroadcastVisibility{Visible: ev.Visible, At: ev.At})
		}

	case LightsObserved:
		if s.Lights.On != ev.On {
			s.Lights.On = ev.On
			s.Lights.At = ev.At
			bcasts = append(bcasts, BroadcastLights{On: ev.On, At: ev.At})
		}

	default:
		// Unknown event type: no-op.
	}

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcasts,
	}
}
