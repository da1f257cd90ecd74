package main

import (
	"log/slog"
	"time"

	"prizewheel"
)

// Wheel is the part of the spin engine the daemon drives.
// *prizewheel.Engine implements it.
type Wheel interface {
	Spin(winner string) (bool, error)
	Activate()
	Deactivate()
	State() prizewheel.State
}

// runEffect executes a single reducer-emitted Command against the engine and
// emits observation Events via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O.
// - It must never call Reduce() directly; it only emits Events to be reduced by the daemon loop.
func runEffect(
	wheel Wheel,
	cmd Command,
	m *metrics,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		// No place to report observations/errors; nothing sensible to do.
		return
	}

	now := time.Now()

	switch c := cmd.(type) {
	case CmdSpin:
		if wheel == nil {
			onEvent(SpinRejected{Err: errNoWheel{}, Origin: c.Origin, Reply: c.Reply, At: now})
			return
		}

		started, err := wheel.Spin(c.Winner)
		switch {
		case err != nil:
			logger.Warn("spin rejected", "error", err, "winner", c.Winner, "origin", c.Origin)
			m.spinRejected()
			onEvent(SpinRejected{Err: err, Origin: c.Origin, Reply: c.Reply, At: now})

		case !started:
			logger.Debug("spin ignored (already spinning)", "origin", c.Origin)
			m.spinIgnored()
			onEvent(SpinIgnored{Origin: c.Origin, Reply: c.Reply, At: now})

		default:
			forced := c.Winner != ""
			m.spinStarted(forced)
			onEvent(SpinAccepted{State: wheel.State(), Origin: c.Origin, Forced: forced, Reply: c.Reply, At: now})
		}

	case CmdActivate:
		if wheel == nil {
			return
		}
		wheel.Activate()
		onEvent(VisibilityObserved{Visible: true, At: now})

	case CmdDeactivate:
		if wheel == nil {
			return
		}
		wheel.Deactivate()
		onEvent(VisibilityObserved{Visible: false, At: now})
		onEvent(WheelObserved{State: wheel.State(), At: now})

	case CmdReplySpin:
		// Replies are buffered by the requester; never block the daemon loop on them.
		select {
		case c.Reply <- c.Value:
		default:
			logger.Warn("spin reply channel not ready; dropping reply")
		}

	case CmdPublishStateSnapshot:
		// Deliver reducer-produced snapshot to the requester.
		// This keeps the reducer pure by moving the channel send into the effects layer.
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the effects worker indefinitely.
		select {
		case c.Reply <- c.Snapshot:
			// delivered
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
	}
}

// errNoWheel indicates the daemon was asked to spin without an engine.
type errNoWheel struct{}

func (errNoWheel) Error() string { return "no wheel engine" }
